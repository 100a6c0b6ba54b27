// Package wav reads and writes the WAV container used for IQ recordings:
// 8-bit unsigned PCM, I on the left channel and Q on the right.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrBadFormat = errors.New("not an 8-bit stereo wav")

const (
	pcmFormat  = 1
	iqChannels = 2
	iqBits     = 8

	// headerLen is what Writer puts before the samples.
	headerLen = 12 + 8 + 16 + 8
	// streamLen marks a data chunk whose length was never filled in.
	streamLen = 1 << 31
)

type chunkHeader struct {
	ID   [4]byte
	Size uint32
}

type pcmFormatChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Header locates the samples of a recording.
type Header struct {
	SampleRate uint32
	// DataOffset is the file offset of the first sample.
	DataOffset int64
	DataLen    uint32
}

// ReadHeader reads r up to the first sample. Chunks other than "fmt " are
// skipped, so LIST and fact chunks ahead of the data are fine.
func ReadHeader(r io.Reader) (Header, error) {
	var (
		h      Header
		riff   chunkHeader
		wave   [4]byte
		gotFmt bool
	)
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return h, err
	}
	if err := binary.Read(r, binary.LittleEndian, &wave); err != nil {
		return h, err
	}
	if string(riff.ID[:]) != "RIFF" || string(wave[:]) != "WAVE" {
		return h, fmt.Errorf("%w: no RIFF/WAVE header", ErrBadFormat)
	}
	off := int64(12)
	for {
		var ch chunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if errors.Is(err, io.EOF) {
				return h, fmt.Errorf("%w: no data chunk", ErrBadFormat)
			}
			return h, err
		}
		off += 8
		// chunks are padded to an even length
		size := int64(ch.Size) + int64(ch.Size&1)
		switch string(ch.ID[:]) {
		case "fmt ":
			if ch.Size < 16 {
				return h, fmt.Errorf("%w: short fmt chunk", ErrBadFormat)
			}
			var pf pcmFormatChunk
			if err := binary.Read(r, binary.LittleEndian, &pf); err != nil {
				return h, err
			}
			if pf.AudioFormat != pcmFormat || pf.NumChannels != iqChannels || pf.BitsPerSample != iqBits {
				return h, fmt.Errorf("%w: format %d with %d channels of %d bits",
					ErrBadFormat, pf.AudioFormat, pf.NumChannels, pf.BitsPerSample)
			}
			if _, err := io.CopyN(io.Discard, r, size-16); err != nil {
				return h, err
			}
			h.SampleRate, gotFmt = pf.SampleRate, true
		case "data":
			if !gotFmt {
				return h, fmt.Errorf("%w: data before fmt", ErrBadFormat)
			}
			h.DataOffset, h.DataLen = off, ch.Size
			return h, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size); err != nil {
				return h, err
			}
		}
		off += size
	}
}

// Writer writes IQ samples after a header. Close fills in the lengths when
// the destination can seek.
type Writer struct {
	w       io.Writer
	rate    uint32
	dataLen uint32
}

func NewWriter(w io.Writer, rate uint32) (*Writer, error) {
	if rate == 0 {
		return nil, fmt.Errorf("%w: zero sample rate", ErrBadFormat)
	}
	ww := &Writer{w: w, rate: rate}
	if err := ww.writeHeader(streamLen); err != nil {
		return nil, err
	}
	return ww, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.dataLen += uint32(n)
	return n, err
}

func (w *Writer) Close() error {
	ws, ok := w.w.(io.WriteSeeker)
	if !ok {
		return nil
	}
	if _, err := ws.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := w.writeHeader(w.dataLen); err != nil {
		return err
	}
	_, err := ws.Seek(0, io.SeekEnd)
	return err
}

func (w *Writer) writeHeader(dataLen uint32) error {
	blockAlign := uint16(iqChannels * iqBits / 8)
	hdr := struct {
		RIFF chunkHeader
		WAVE [4]byte
		Fmt  chunkHeader
		PCM  pcmFormatChunk
		Data chunkHeader
	}{
		RIFF: chunkHeader{ID: [4]byte{'R', 'I', 'F', 'F'}, Size: dataLen + headerLen - 8},
		WAVE: [4]byte{'W', 'A', 'V', 'E'},
		Fmt:  chunkHeader{ID: [4]byte{'f', 'm', 't', ' '}, Size: 16},
		PCM: pcmFormatChunk{
			AudioFormat:   pcmFormat,
			NumChannels:   iqChannels,
			SampleRate:    w.rate,
			ByteRate:      w.rate * uint32(blockAlign),
			BlockAlign:    blockAlign,
			BitsPerSample: iqBits,
		},
		Data: chunkHeader{ID: [4]byte{'d', 'a', 't', 'a'}, Size: dataLen},
	}
	return binary.Write(w.w, binary.LittleEndian, &hdr)
}
