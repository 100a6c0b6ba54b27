package freqshow

import (
	"errors"
	"math"

	"github.com/golang/glog"

	"github.com/chzchzchz/freqshow/dsp"
	"github.com/chzchzchz/freqshow/radio"
)

// DefaultOffsetHz is added to hardware frequencies in offset mode, for
// upconverters that shift HF into the tuner's range.
const DefaultOffsetHz = 125_000_000

// Tuning applied at startup and after every hardware failure.
const (
	DefaultCenterMHz    = 145.0
	DefaultSampleRateHz = 2_400_000
)

var ErrBadGeometry = errors.New("display width and height must be positive")

// Model holds the tuner configuration and intensity scale of a spectrum
// display. It is not safe for concurrent use.
type Model struct {
	tuner  radio.Tuner
	an     *dsp.Analyzer
	width  int
	height int

	offsetHz  float64
	offsetted bool
	autoGain  bool

	minAuto, maxAuto bool
	minIntensity     float64
	maxIntensity     float64
	hasMin, hasMax   bool
	rng              float64
	hasRange         bool
}

type Option func(*Model)

// WithOffsetHz overrides the frequency added in offset mode.
func WithOffsetHz(hz float64) Option {
	return func(m *Model) { m.offsetHz = hz }
}

// NewModel takes ownership of t and tunes it to the defaults. width is the
// number of bins per frame.
func NewModel(t radio.Tuner, width, height int, opts ...Option) (*Model, error) {
	if width < 1 || height < 1 {
		return nil, ErrBadGeometry
	}
	m := &Model{
		tuner:    t,
		an:       dsp.AnalyzerFor(width),
		width:    width,
		height:   height,
		offsetHz: DefaultOffsetHz,
		minAuto:  true,
		maxAuto:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.applyDefaults(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) Width() int  { return m.width }
func (m *Model) Height() int { return m.height }

func (m *Model) Close() error { return m.tuner.Close() }

func (m *Model) applyDefaults() error {
	m.offsetted = false
	if err := m.tuner.SetCenterFreq(DefaultCenterMHz * 1e6); err != nil {
		return &HardwareError{Action: "set center frequency", Err: err}
	}
	if err := m.tuner.SetSampleRate(DefaultSampleRateHz); err != nil {
		return &HardwareError{Action: "set sample rate", Err: err}
	}
	if err := m.tuner.SetManualGainEnabled(false); err != nil {
		return &HardwareError{Action: "set gain", Err: err}
	}
	m.autoGain = true
	m.clearScaling()
	return nil
}

// hardwareFailure logs the failure, puts the tuner back into its default
// state and returns the error for the caller.
func (m *Model) hardwareFailure(action string, err error) error {
	herr := &HardwareError{Action: action, Err: err}
	glog.Warningf("%s: %s", herr.Summary(), herr.Detail())
	if err := m.tuner.Reinitialize(); err != nil {
		glog.Errorf("reinitialize tuner: %v", err)
	}
	if err := m.applyDefaults(); err != nil {
		glog.Errorf("restore tuner defaults: %v", err)
		m.offsetted = false
		m.clearScaling()
	}
	return herr
}

func (m *Model) clearScaling() {
	if m.minAuto {
		m.hasMin = false
	}
	if m.maxAuto {
		m.hasMax = false
	}
	m.hasRange = false
}

func (m *Model) IsOffsetted() bool { return m.offsetted }

// SetOffsetted retunes so the nominal frequency is unchanged under the new
// offset.
func (m *Model) SetOffsetted(enabled bool) error {
	mhz := m.NominalCenterFreq()
	m.offsetted = enabled
	return m.SetNominalCenterFreq(mhz)
}

func (m *Model) OffsetMHz() float64 {
	if m.offsetted {
		return m.offsetHz / 1e6
	}
	return 0
}

// NominalCenterFreq is the tuned frequency in MHz with the offset removed.
func (m *Model) NominalCenterFreq() float64 {
	return m.tuner.CenterFreq()/1e6 - m.OffsetMHz()
}

func (m *Model) SetNominalCenterFreq(mhz float64) error {
	if err := m.tuner.SetCenterFreq((mhz + m.OffsetMHz()) * 1e6); err != nil {
		return m.hardwareFailure("set center frequency", err)
	}
	m.clearScaling()
	return nil
}

// SampleRate is in MHz.
func (m *Model) SampleRate() float64 {
	return float64(m.tuner.SampleRate()) / 1e6
}

// SetSampleRate rejects rates outside the tuner's bands with a
// *ValidationError before touching the tuner.
func (m *Model) SetSampleRate(mhz float64) error {
	hz, err := sampleRateHz(mhz)
	if err != nil {
		return err
	}
	if err := m.tuner.SetSampleRate(hz); err != nil {
		return m.hardwareFailure("set sample rate", err)
	}
	m.clearScaling()
	return nil
}

// sampleRateHz converts MHz to Hz, keeping millihertz so a rate a fraction
// of a hertz outside a band is still rejected.
func sampleRateHz(mhz float64) (uint32, error) {
	hz := math.Round(mhz*1e9) / 1e3
	inLow := hz >= radio.MinLowRate && hz <= radio.MaxLowRate
	inHigh := hz >= radio.MinHighRate && hz <= radio.MaxHighRate
	if !inLow && !inHigh {
		return 0, errSampleRate()
	}
	return uint32(math.Round(hz)), nil
}

// Gain reports AutoGain or the tuner's manual gain.
func (m *Model) Gain() Gain {
	if m.autoGain {
		return AutoGain
	}
	return ManualGain(m.tuner.Gain())
}

func (m *Model) GainString() string { return m.Gain().String() }

func (m *Model) SetGain(g Gain) error {
	db, manual := g.DB()
	if !manual {
		if err := m.tuner.SetManualGainEnabled(false); err != nil {
			return m.hardwareFailure("set gain", err)
		}
		m.autoGain = true
		m.clearScaling()
		return nil
	}
	m.autoGain = false
	m.clearScaling()
	if err := m.tuner.SetGain(db); err != nil {
		return m.hardwareFailure("set gain", err)
	}
	return nil
}

func (m *Model) MinBound() Bound {
	if m.minAuto {
		return AutoBound
	}
	return FixedBound(m.minIntensity)
}

func (m *Model) MaxBound() Bound {
	if m.maxAuto {
		return AutoBound
	}
	return FixedBound(m.maxIntensity)
}

func (m *Model) MinString() string { return m.MinBound().String() }
func (m *Model) MaxString() string { return m.MaxBound().String() }

// SetMinIntensity sets the dB value at the bottom of the scale. No check is
// made against the maximum.
func (m *Model) SetMinIntensity(b Bound) {
	db, fixed := b.DB()
	m.minAuto = !fixed
	if fixed {
		m.minIntensity, m.hasMin = db, true
	}
	m.clearScaling()
}

// SetMaxIntensity sets the dB value at the top of the scale.
func (m *Model) SetMaxIntensity(b Bound) {
	db, fixed := b.DB()
	m.maxAuto = !fixed
	if fixed {
		m.maxIntensity, m.hasMax = db, true
	}
	m.clearScaling()
}

func (m *Model) MinIntensity() (float64, bool) { return m.minIntensity, m.hasMin }
func (m *Model) MaxIntensity() (float64, bool) { return m.maxIntensity, m.hasMax }

// Range is max minus min as of the last acquisition.
func (m *Model) Range() (float64, bool) { return m.rng, m.hasRange }

func (m *Model) Scaling() Scaling {
	return Scaling{
		Min:   m.minIntensity,
		Max:   m.maxIntensity,
		Range: m.rng,
		Valid: m.hasMin && m.hasMax && m.hasRange,
	}
}

// Band is the nominal span of a frame in MHz.
func (m *Model) Band() radio.FreqBand {
	return radio.FreqBand{Center: m.NominalCenterFreq(), Width: m.SampleRate()}
}
