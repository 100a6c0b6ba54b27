package radio

import "testing"

func TestToHzBandRounds(t *testing.T) {
	// 1.001MHz is 1000999.9999999999Hz in floating point
	fb := FreqBand{Center: 1.001, Width: 0.24}
	if hzb := fb.ToHzBand(); hzb != (HzBand{Center: 1001000, Width: 240000}) {
		t.Fatalf("unexpected band %+v", hzb)
	}
	if fb2 := (HzBand{Center: 145100000, Width: 2400000}).ToMHz(); fb2.ToHzBand() != (HzBand{145100000, 2400000}) {
		t.Fatalf("round trip changed band: %+v", fb2)
	}
}
