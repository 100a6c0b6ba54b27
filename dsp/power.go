package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Power accumulates dB frames of one width and reports the noise floor and
// the bins that stand out of it.
type Power struct {
	sum    []float64
	counts []int
	frames int
}

// BinRange is a run of adjacent bins with their mean level above the floor.
type BinRange struct {
	Begin int
	Bins  int
	DB    float64
}

func NewPower(width int) *Power {
	return &Power{sum: make([]float64, width), counts: make([]int, width)}
}

// Add folds frame into the running average. Non-finite bins are skipped.
func (p *Power) Add(frame []float64) {
	if len(frame) != len(p.sum) {
		panic("dsp: frame width does not match")
	}
	for i, v := range frame {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		p.sum[i] += v
		p.counts[i]++
	}
	p.frames++
}

func (p *Power) Frames() int { return p.frames }

// Average is the per bin mean; bins that never had a finite value are -Inf.
func (p *Power) Average() []float64 {
	avg := make([]float64, len(p.sum))
	for i := range avg {
		if p.counts[i] == 0 {
			avg[i] = math.Inf(-1)
			continue
		}
		avg[i] = p.sum[i] / float64(p.counts[i])
	}
	return avg
}

func finite(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// NoiseFloor is the median of the averaged bins, taking the lower middle
// bin when the count is even.
func (p *Power) NoiseFloor() float64 {
	avg := finite(p.Average())
	if len(avg) == 0 {
		return math.Inf(-1)
	}
	sort.Float64s(avg)
	return stat.Quantile(0.5, stat.Empirical, avg, nil)
}

// Stddev is the RMS deviation of the averaged bins around the noise floor.
func (p *Power) Stddev() float64 {
	avg := finite(p.Average())
	if len(avg) < 2 {
		return 0
	}
	return math.Sqrt(stat.MomentAbout(2, avg, p.NoiseFloor(), nil))
}

// Peaks returns single bins more than two deviations above both neighbours.
func (p *Power) Peaks() (ret []int) {
	avg := p.Average()
	floor, sdev := p.NoiseFloor(), p.Stddev()
	for i := 1; i < len(avg)-1; i++ {
		left, mid, right := avg[i-1]-floor, avg[i]-floor, avg[i+1]-floor
		if mid < 0 || math.IsInf(mid, 0) {
			continue
		}
		if mid-left > 2.0*sdev && mid-right > 2.0*sdev {
			ret = append(ret, i)
		}
	}
	return ret
}

// Bands returns runs of bins at least 1.5 deviations above the floor.
func (p *Power) Bands() (ret []BinRange) {
	avg := p.Average()
	floor, sdev := p.NoiseFloor(), p.Stddev()
	if sdev == 0 {
		return nil
	}
	begin, end, db := -1, -1, 0.0
	flush := func() {
		n := end - begin + 1
		ret = append(ret, BinRange{Begin: begin, Bins: n, DB: db / float64(n)})
		begin, db = -1, 0
	}
	for i, v := range avg {
		if v-floor >= 1.5*sdev && !math.IsInf(v, 0) {
			if begin == -1 {
				begin = i
			}
			end = i
			db += v - floor
		} else if begin != -1 {
			flush()
		}
	}
	if begin != -1 {
		flush()
	}
	return ret
}
