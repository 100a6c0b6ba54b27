package radio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chzchzchz/freqshow/radio/wav"
)

func TestFileTunerWraps(t *testing.T) {
	// three samples: (1,0), (0,1), (-127/128,-127/128)
	rec := []byte{255, 127, 127, 255, 0, 0}
	ft := NewFileTuner(bytes.NewReader(rec), 0, HzBand{Center: 1e8, Width: 240000})
	samps, err := ft.ReadSamples(2)
	if err != nil {
		t.Fatal(err)
	}
	if samps[0] != complex(1, 0) || samps[1] != complex(0, 1) {
		t.Fatalf("unexpected samples %v", samps)
	}
	// only one sample left; the read must restart from the beginning.
	if samps, err = ft.ReadSamples(2); err != nil {
		t.Fatal(err)
	}
	if samps[0] != complex(1, 0) {
		t.Fatalf("expected wrap to first sample, got %v", samps)
	}
	if _, err := ft.ReadSamples(4); err == nil {
		t.Fatal("expected error reading more samples than recorded")
	}
}

func TestFileTunerEcho(t *testing.T) {
	ft := NewFileTuner(bytes.NewReader(make([]byte, 16)), 0, HzBand{Center: 1e8, Width: 240000})
	if err := ft.SetCenterFreq(145e6); err != nil {
		t.Fatal(err)
	}
	if err := ft.SetSampleRate(2400000); err != nil {
		t.Fatal(err)
	}
	if err := ft.SetSampleRate(600000); err != ErrRateOutOfRange {
		t.Fatalf("expected ErrRateOutOfRange, got %v", err)
	}
	if err := ft.SetGain(19.7); err != nil {
		t.Fatal(err)
	}
	if ft.CenterFreq() != 145e6 || ft.SampleRate() != 2400000 || ft.Gain() != 19.7 {
		t.Fatalf("setters not echoed: %v %v %v", ft.CenterFreq(), ft.SampleRate(), ft.Gain())
	}
	if err := ft.Reinitialize(); err != nil {
		t.Fatal(err)
	}
	if ft.CenterFreq() != 1e8 || ft.SampleRate() != 240000 || ft.Gain() != 0 {
		t.Fatalf("reinitialize kept tuning: %v %v %v", ft.CenterFreq(), ft.SampleRate(), ft.Gain())
	}
}

func TestOpenWavRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	iqw, err := NewWavIQWriter(f, 960000)
	if err != nil {
		t.Fatal(err)
	}
	if err := iqw.Write64([]complex64{complex(1, 0), complex(0, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := iqw.Close(); err != nil {
		t.Fatal(err)
	}
	// a metadata chunk after the samples must not be played back
	f.Write([]byte("LIST\x04\x00\x00\x00INFO"))
	f.Close()

	ft, err := OpenFileTuner(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ft.Close()
	if ft.SampleRate() != 960000 {
		t.Fatalf("expected wav rate, got %d", ft.SampleRate())
	}
	for i := 0; i < 3; i++ {
		samps, err := ft.ReadSamples(2)
		if err != nil {
			t.Fatal(err)
		}
		if samps[0] != complex(1, 0) || samps[1] != complex(0, 1) {
			t.Fatalf("read %d: unexpected samples %v", i, samps)
		}
	}
}

func TestOpenWavRejects16Bit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "145000000[2400000].wav")
	hdr := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00" +
		"\x01\x00\x02\x00\x00\x24\xf4\x00\x00\x90\xd0\x03\x04\x00\x10\x00" +
		"data\x00\x00\x00\x00")
	if err := os.WriteFile(path, hdr, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFileTuner(path); !errors.Is(err, wav.ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
}
