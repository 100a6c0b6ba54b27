package radio

import "math"

type HzBand struct {
	Center uint64 `json:"center_hz"`
	Width  uint64 `json:"width_hz"`
}

func (hzb HzBand) ToMHz() FreqBand {
	return FreqBand{
		float64(hzb.Center) / 1e6,
		float64(hzb.Width) / 1e6,
	}
}

// FreqBand is a band in MHz.
type FreqBand struct {
	Center float64 `json:"center_mhz"`
	Width  float64 `json:"width_mhz"`
}

func (f FreqBand) BeginMHz() float64     { return f.Center - f.Width/2.0 }
func (f FreqBand) EndMHz() float64       { return f.Center + f.Width/2.0 }
func (f FreqBand) BandwidthKHz() float64 { return f.Width * 1e3 }

// ToHzBand rounds to the nearest hertz.
func (f FreqBand) ToHzBand() HzBand {
	return HzBand{
		Center: uint64(math.Round(f.Center * 1e6)),
		Width:  uint64(math.Round(f.Width * 1e6)),
	}
}

// ColumnMHz maps column x of a cols wide display of the band to the
// frequency at the column's left edge.
func (f FreqBand) ColumnMHz(x, cols int) float64 {
	return f.BeginMHz() + float64(x)*f.Width/float64(cols)
}

func (f FreqBand) Overlaps(fb2 FreqBand) bool {
	return !(fb2.EndMHz() < f.BeginMHz() || fb2.BeginMHz() > f.EndMHz())
}
