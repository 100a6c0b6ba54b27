package radio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrRateOutOfRange = errors.New("sample rate out of range")
var ErrFrequencyOutOfRange = errors.New("frequency out of range")

// Tuner is the hardware capability a spectrum display drives. All calls are
// blocking; implementations are not expected to be safe for concurrent use
// except for Close.
type Tuner interface {
	CenterFreq() float64
	SetCenterFreq(hz float64) error
	SampleRate() uint32
	SetSampleRate(hz uint32) error
	Gain() float64
	SetGain(db float64) error
	SetManualGainEnabled(enabled bool) error
	// ReadSamples blocks until n samples are delivered or the read fails.
	ReadSamples(n int) ([]complex64, error)
	// Reinitialize resets the device to its power-on state after a failure.
	Reinitialize() error
	Close() error
}

// Sample rates the RTL2832 can produce without aliasing artifacts.
const (
	MinLowRate  = 225001
	MaxLowRate  = 300000
	MinHighRate = 900001
	MaxHighRate = 3200000
)

func IsValidRate(rate uint32) bool {
	return !((rate < MinLowRate) || (rate > MaxHighRate) ||
		((rate > MaxLowRate) && (rate < MinHighRate)))
}

// Open returns a tuner for a device uri:
//
//	rtl://<serial or index>   launch a local rtl_tcp for the device
//	rtltcp://host:port        connect to a running rtl_tcp
//	path.iq8, path.wav        play back a recording
func Open(ctx context.Context, uri string) (Tuner, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return OpenFileTuner(uri)
	}
	switch u.Scheme {
	case "rtl":
		ser := strings.TrimPrefix(u.Host+u.Path, "/")
		if ser == "" {
			ser = "0"
		}
		return NewLocalRTLTCP(ctx, ser)
	case "rtltcp":
		if u.Host == "" {
			return nil, fmt.Errorf("no rtl_tcp address in %q", uri)
		}
		return DialRTLTCP(ctx, u.Host)
	case "file":
		return OpenFileTuner(u.Path)
	}
	return nil, fmt.Errorf("unsupported tuner uri %q", uri)
}
