package radio

import (
	"io"

	"github.com/chzchzchz/freqshow/radio/wav"
)

// IQReader reads u8 interleaved I/Q samples.
type IQReader struct {
	r   io.Reader
	buf []byte
}

// NewIQReader takes a reader that uses u8 I/Q samples.
func NewIQReader(r io.Reader) *IQReader {
	if r == nil {
		panic("nil reader")
	}
	return &IQReader{r: r}
}

// Read64 blocks until n samples have been read.
func (iq *IQReader) Read64(n int) ([]complex64, error) {
	if cap(iq.buf) < 2*n {
		iq.buf = make([]byte, 2*n)
	}
	iq8buf := iq.buf[:2*n]
	if _, err := io.ReadFull(iq.r, iq8buf); err != nil {
		return nil, err
	}
	samps := make([]complex64, n)
	for i := range samps {
		samps[i] = complex(
			(float32(iq8buf[2*i])-127)/128.0,
			(float32(iq8buf[2*i+1])-127)/128.0)
	}
	return samps, nil
}

// IQWriter writes u8 interleaved I/Q samples, optionally inside a container.
type IQWriter struct {
	w      io.Writer
	finish func() error
}

func NewIQWriter(w io.Writer) *IQWriter { return &IQWriter{w: w} }

// NewWavIQWriter writes samples as an 8-bit stereo wav at the given rate.
func NewWavIQWriter(w io.Writer, rate uint32) (*IQWriter, error) {
	ww, err := wav.NewWriter(w, rate)
	if err != nil {
		return nil, err
	}
	return &IQWriter{w: ww, finish: ww.Close}, nil
}

// Close finishes any container header; it leaves the destination open.
func (iq *IQWriter) Close() error {
	if iq.finish == nil {
		return nil
	}
	return iq.finish()
}

func (iq *IQWriter) Write64(out []complex64) error {
	buf := make([]byte, 2*len(out))
	for i := range out {
		buf[2*i] = byte((real(out[i]) * 128.0) + 127.0)
		buf[2*i+1] = byte((imag(out[i]) * 128.0) + 127.0)
	}
	_, err := iq.w.Write(buf)
	return err
}
