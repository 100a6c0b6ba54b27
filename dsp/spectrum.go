package dsp

import (
	"math"
	"math/cmplx"
	"sync"
)

// Magnitudes returns |v| for each coefficient.
func Magnitudes(coeffs []complex128) []float64 {
	mags := make([]float64, len(coeffs))
	for i, v := range coeffs {
		mags[i] = cmplx.Abs(v)
	}
	return mags
}

// Shift rotates x right by len(x)/2 so the zero frequency bin moves to the
// middle. Odd lengths rotate by the floor of half.
func Shift(x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	k := n / 2
	for i, v := range x {
		out[(i+k)%n] = v
	}
	return out
}

// Decibels converts magnitudes in place to 20*log10(m). A zero magnitude
// becomes -Inf.
func Decibels(mags []float64) []float64 {
	for i, m := range mags {
		mags[i] = 20 * math.Log10(m)
	}
	return mags
}

// MinMax returns the smallest and largest values of v, ignoring NaN. An
// empty or all-NaN slice returns (+Inf, -Inf).
func MinMax(v []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}

// Analyzer turns width+2 complex samples into a width bin dB frame: the
// edge bins of the DFT are dropped and the rest is shifted so the center
// frequency sits at index width/2.
type Analyzer struct {
	width int
	eng   *engine
	out   []complex128
	mu    sync.Mutex
}

func NewAnalyzer(width int) *Analyzer {
	n := width + 2
	return &Analyzer{width: width, eng: newEngine(n), out: make([]complex128, n)}
}

// Samples is how many samples Frame needs.
func (a *Analyzer) Samples() int { return a.width + 2 }

func (a *Analyzer) Width() int { return a.width }

// Frame computes the dB frame for samps, which must hold Samples() values.
func (a *Analyzer) Frame(samps []complex64) []float64 {
	if len(samps) != a.Samples() {
		panic("dsp: sample count does not match analyzer size")
	}
	a.mu.Lock()
	a.out = a.eng.transform(a.out, samps)
	mags := Magnitudes(a.out[1 : len(a.out)-1])
	a.mu.Unlock()
	return Decibels(Shift(mags))
}

var (
	analyzersMu sync.Mutex
	analyzers   = make(map[int]*Analyzer)
)

// AnalyzerFor returns a shared Analyzer for width, creating it on first use.
func AnalyzerFor(width int) *Analyzer {
	analyzersMu.Lock()
	defer analyzersMu.Unlock()
	if a, ok := analyzers[width]; ok {
		return a
	}
	a := NewAnalyzer(width)
	analyzers[width] = a
	return a
}
