package dsp

import (
	"math"
	"testing"
)

func TestPowerPeaks(t *testing.T) {
	p := NewPower(16)
	for n := 0; n < 4; n++ {
		frame := make([]float64, 16)
		for i := range frame {
			frame[i] = -50
		}
		frame[5] = 0
		if n == 0 {
			frame[12] = math.Inf(-1)
		}
		p.Add(frame)
	}
	if p.Frames() != 4 {
		t.Fatalf("expected 4 frames, got %d", p.Frames())
	}
	if floor := p.NoiseFloor(); floor != -50 {
		t.Fatalf("expected floor -50, got %v", floor)
	}
	if avg := p.Average(); avg[12] != -50 {
		t.Fatalf("expected -Inf bins skipped, got %v", avg[12])
	}
	peaks := p.Peaks()
	if len(peaks) != 1 || peaks[0] != 5 {
		t.Fatalf("expected peak at bin 5, got %v", peaks)
	}
	bands := p.Bands()
	if len(bands) != 1 || bands[0] != (BinRange{Begin: 5, Bins: 1, DB: 50}) {
		t.Fatalf("unexpected bands %+v", bands)
	}
}

func TestPowerNeverFinite(t *testing.T) {
	p := NewPower(4)
	p.Add([]float64{math.Inf(-1), 1, 1, 1})
	if avg := p.Average(); !math.IsInf(avg[0], -1) {
		t.Fatalf("expected -Inf, got %v", avg[0])
	}
	if bands := p.Bands(); bands != nil {
		t.Fatalf("expected no bands on a flat spectrum, got %v", bands)
	}
}

func TestPowerFloorEvenCount(t *testing.T) {
	p := NewPower(5)
	p.Add([]float64{4, 1, math.NaN(), 3, 2})
	if floor := p.NoiseFloor(); floor != 2 {
		t.Fatalf("expected lower median 2, got %v", floor)
	}
	// deviations from 2 are -1, 0, 1, 2
	if sdev := p.Stddev(); math.Abs(sdev-math.Sqrt(1.5)) > 1e-12 {
		t.Fatalf("expected sqrt(1.5), got %v", sdev)
	}
	if one := NewPower(1); one.Stddev() != 0 {
		t.Fatal("expected zero deviation without bins")
	}
}
