package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzchzchz/freqshow/radio"
)

// FileStore keeps IQ captures and spectrogram images in one directory per
// center frequency.
type FileStore struct {
	baseDir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir}, nil
}

func (fs *FileStore) bandDir(fb radio.FreqBand) (string, error) {
	fdir := filepath.Join(fs.baseDir, fmt.Sprintf("%.3f", fb.Center))
	return fdir, os.MkdirAll(fdir, 0755)
}

// Recording is an open IQ capture. Close finishes the container.
type Recording struct {
	*radio.IQWriter
	f *os.File
}

func (r *Recording) Path() string { return r.f.Name() }

func (r *Recording) Close() error {
	if err := r.IQWriter.Close(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

// CreateRecording opens a new u8 IQ capture named so a FileTuner picks up
// its tuning. Format is "iq8" for raw samples or "wav" for an 8-bit stereo
// WAV file.
func (fs *FileStore) CreateRecording(hzb radio.HzBand, format string) (*Recording, error) {
	if format != "iq8" && format != "wav" {
		return nil, fmt.Errorf("unknown recording format %q", format)
	}
	fdir, err := fs.bandDir(hzb.ToMHz())
	if err != nil {
		return nil, err
	}
	fn := filepath.Join(
		fdir,
		fmt.Sprintf("%d[%d].%d.%s", hzb.Center, hzb.Width, time.Now().UnixNano(), format))
	f, err := os.OpenFile(fn, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if format == "iq8" {
		return &Recording{IQWriter: radio.NewIQWriter(f), f: f}, nil
	}
	iqw, err := radio.NewWavIQWriter(f, uint32(hzb.Width))
	if err != nil {
		f.Close()
		os.Remove(fn)
		return nil, err
	}
	return &Recording{IQWriter: iqw, f: f}, nil
}

// CreateSpectrogram opens a new JPEG for a waterfall of fb.
func (fs *FileStore) CreateSpectrogram(fb radio.FreqBand) (*os.File, error) {
	fdir, err := fs.bandDir(fb)
	if err != nil {
		return nil, err
	}
	fn := filepath.Join(
		fdir,
		fmt.Sprintf("%d.%d.jpg", time.Now().UnixNano(), int(fb.Width*1e6)))
	return os.OpenFile(fn, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
}

type SpectrogramFile struct {
	Band radio.FreqBand `json:"band"`
	Date time.Time      `json:"date"`
	Path string         `json:"path"`
}

// Spectrograms lists stored images whose center falls in fb, oldest first.
func (fs *FileStore) Spectrograms(fb radio.FreqBand) (ret []SpectrogramFile, err error) {
	files, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		mhz, err := strconv.ParseFloat(file.Name(), 64)
		if err != nil {
			continue
		}
		if !fb.Overlaps(radio.FreqBand{Center: mhz, Width: 100.0 / 1e6}) {
			continue
		}
		fdir := filepath.Join(fs.baseDir, file.Name())
		ffiles, err := os.ReadDir(fdir)
		if err != nil {
			continue
		}
		for _, ffile := range ffiles {
			if !strings.HasSuffix(ffile.Name(), ".jpg") {
				continue
			}
			spl := strings.Split(ffile.Name(), ".")
			ntime, bwhz := spl[0], spl[1]
			ntime64, err := strconv.ParseInt(ntime, 10, 64)
			if err != nil {
				continue
			}
			bwhz64, err := strconv.ParseUint(bwhz, 10, 64)
			if err != nil {
				continue
			}
			sf := SpectrogramFile{
				Band: radio.FreqBand{Center: mhz, Width: float64(bwhz64) / 1e6},
				Date: time.Unix(0, ntime64),
				Path: filepath.Join(fdir, ffile.Name()),
			}
			ret = append(ret, sf)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Date.Before(ret[j].Date) })
	return ret, nil
}
