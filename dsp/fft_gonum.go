//go:build !fftw

package dsp

import "gonum.org/v1/gonum/dsp/fourier"

// engine is the pure Go transform used unless built with -tags fftw.
type engine struct {
	fft *fourier.CmplxFFT
	in  []complex128
}

func newEngine(n int) *engine {
	return &engine{fft: fourier.NewCmplxFFT(n), in: make([]complex128, n)}
}

// transform returns the unnormalised DFT of samps into dst.
func (e *engine) transform(dst []complex128, samps []complex64) []complex128 {
	for i, v := range samps {
		e.in[i] = complex128(v)
	}
	return e.fft.Coefficients(dst, e.in)
}
