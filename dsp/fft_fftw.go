//go:build fftw

package dsp

import "github.com/runningwild/go-fftw/fftw32"

// engine hands the transform to libfftw3f.
type engine struct {
	arr *fftw32.Array
}

func newEngine(n int) *engine {
	return &engine{arr: fftw32.NewArray(n)}
}

func (e *engine) transform(dst []complex128, samps []complex64) []complex128 {
	copy(e.arr.Elems, samps)
	out := fftw32.FFT(e.arr).Elems
	if dst == nil {
		dst = make([]complex128, len(out))
	}
	for i, v := range out {
		dst[i] = complex128(v)
	}
	return dst
}
