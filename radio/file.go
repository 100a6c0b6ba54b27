package radio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzchzchz/freqshow/radio/wav"
)

// FileTuner plays back a u8 IQ recording as if it were a tuner. Setters are
// accepted and echoed by the getters; the samples do not change. Reads wrap
// around at the end of the recording.
type FileTuner struct {
	rs         io.ReadSeeker
	dataOffset int64
	iqr        *IQReader
	closer     func() error

	center float64
	rate   uint32
	gain   float64
	manual bool

	initCenter float64
	initRate   uint32
}

func NewFileTuner(rs io.ReadSeeker, dataOffset int64, hzb HzBand) *FileTuner {
	ft := &FileTuner{
		rs:         rs,
		dataOffset: dataOffset,
		iqr:        NewIQReader(rs),
		closer:     func() error { return nil },
		initCenter: float64(hzb.Center),
		initRate:   uint32(hzb.Width),
	}
	ft.center, ft.rate = ft.initCenter, ft.initRate
	return ft
}

// OpenFileTuner opens an .iq8 or 8-bit stereo .wav recording. Recordings
// named "<center>[<rate>]..." report that tuning; a wav header's rate takes
// precedence over the name.
func OpenFileTuner(path string) (*FileTuner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	hzb := HzBand{Width: rtlDefaultRate}
	var rs io.ReadSeeker = f
	isWav := strings.HasSuffix(path, ".wav")
	if isWav {
		h, err := wav.ReadHeader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		hzb.Width = uint64(h.SampleRate)
		// trailing chunks are not samples
		rs = io.NewSectionReader(f, h.DataOffset, int64(h.DataLen))
	}
	var c, w uint64
	if n, _ := fmt.Sscanf(filepath.Base(path), "%d[%d]", &c, &w); n == 2 {
		hzb.Center = c
		if !isWav {
			hzb.Width = w
		}
	}
	ft := NewFileTuner(rs, 0, hzb)
	ft.closer = f.Close
	return ft, nil
}

func (ft *FileTuner) CenterFreq() float64 { return ft.center }

func (ft *FileTuner) SetCenterFreq(hz float64) error {
	ft.center = hz
	return nil
}

func (ft *FileTuner) SampleRate() uint32 { return ft.rate }

func (ft *FileTuner) SetSampleRate(rate uint32) error {
	if !IsValidRate(rate) {
		return ErrRateOutOfRange
	}
	ft.rate = rate
	return nil
}

func (ft *FileTuner) Gain() float64 { return ft.gain }

func (ft *FileTuner) SetGain(db float64) error {
	ft.gain, ft.manual = db, true
	return nil
}

func (ft *FileTuner) SetManualGainEnabled(enabled bool) error {
	ft.manual = enabled
	return nil
}

func (ft *FileTuner) ReadSamples(n int) ([]complex64, error) {
	samps, err := ft.iqr.Read64(n)
	if err == nil {
		return samps, nil
	}
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	if err := ft.rewind(); err != nil {
		return nil, err
	}
	if samps, err = ft.iqr.Read64(n); err != nil {
		return nil, fmt.Errorf("recording shorter than %d samples: %w", n, err)
	}
	return samps, nil
}

func (ft *FileTuner) rewind() error {
	_, err := ft.rs.Seek(ft.dataOffset, io.SeekStart)
	return err
}

func (ft *FileTuner) Reinitialize() error {
	ft.center, ft.rate, ft.gain, ft.manual = ft.initCenter, ft.initRate, 0, false
	return ft.rewind()
}

func (ft *FileTuner) Close() error { return ft.closer() }
