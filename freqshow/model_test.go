package freqshow

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/chzchzchz/freqshow/radio"
)

var errIO = errors.New("usb transfer failed")

// fakeTuner echoes settings and returns queued sample blocks.
type fakeTuner struct {
	center float64
	rate   uint32
	gain   float64
	manual bool

	blocks [][]complex64
	reads  []int

	failCenter bool
	failRate   bool
	failGain   bool
	failRead   bool
	reinits    int
	closed     bool
}

func (f *fakeTuner) CenterFreq() float64 { return f.center }

func (f *fakeTuner) SetCenterFreq(hz float64) error {
	if f.failCenter {
		return errIO
	}
	f.center = hz
	return nil
}

func (f *fakeTuner) SampleRate() uint32 { return f.rate }

func (f *fakeTuner) SetSampleRate(hz uint32) error {
	if f.failRate {
		return errIO
	}
	f.rate = hz
	return nil
}

func (f *fakeTuner) Gain() float64 { return f.gain }

func (f *fakeTuner) SetGain(db float64) error {
	if f.failGain {
		return errIO
	}
	f.gain, f.manual = db, true
	return nil
}

func (f *fakeTuner) SetManualGainEnabled(enabled bool) error {
	f.manual = enabled
	return nil
}

func (f *fakeTuner) ReadSamples(n int) ([]complex64, error) {
	f.reads = append(f.reads, n)
	if f.failRead {
		return nil, errIO
	}
	if len(f.blocks) == 0 {
		return make([]complex64, n), nil
	}
	b := f.blocks[0]
	f.blocks = f.blocks[1:]
	return b, nil
}

func (f *fakeTuner) Reinitialize() error {
	f.reinits++
	f.failCenter, f.failRate, f.failGain, f.failRead = false, false, false, false
	f.center, f.rate, f.gain, f.manual = 100e6, 2048000, 0, false
	return nil
}

func (f *fakeTuner) Close() error {
	f.closed = true
	return nil
}

var _ radio.Tuner = &fakeTuner{}

func newTestModel(t *testing.T, width int) (*Model, *fakeTuner) {
	ft := &fakeTuner{}
	m, err := NewModel(ft, width, 10)
	if err != nil {
		t.Fatal(err)
	}
	return m, ft
}

func impulse(n int, amp float32) []complex64 {
	samps := make([]complex64, n)
	samps[0] = complex(amp, 0)
	return samps
}

func tone(n, bin int) []complex64 {
	samps := make([]complex64, n)
	for i := range samps {
		samps[i] = complex64(cmplx.Exp(complex(0, 2*math.Pi*float64(bin*i)/float64(n))))
	}
	return samps
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestNewModelDefaults(t *testing.T) {
	m, ft := newTestModel(t, 8)
	if m.NominalCenterFreq() != 145 {
		t.Fatalf("expected 145MHz, got %v", m.NominalCenterFreq())
	}
	if ft.rate != 2400000 || m.SampleRate() != 2.4 {
		t.Fatalf("expected 2.4MHz, got %d", ft.rate)
	}
	if !m.Gain().IsAuto() || ft.manual {
		t.Fatal("expected auto gain")
	}
	if m.IsOffsetted() || m.OffsetMHz() != 0 {
		t.Fatal("expected offset disabled")
	}
	if m.MinString() != "AUTO" || m.MaxString() != "AUTO" || m.GainString() != "AUTO" {
		t.Fatalf("unexpected strings %q %q %q", m.MinString(), m.MaxString(), m.GainString())
	}
	if _, ok := m.Range(); ok {
		t.Fatal("expected no range before acquiring")
	}
}

func TestNewModelBadGeometry(t *testing.T) {
	if _, err := NewModel(&fakeTuner{}, 0, 10); err != ErrBadGeometry {
		t.Fatalf("expected ErrBadGeometry, got %v", err)
	}
}

func TestNewModelHardwareFailure(t *testing.T) {
	_, err := NewModel(&fakeTuner{failCenter: true}, 8, 8)
	var herr *HardwareError
	if !errors.As(err, &herr) || herr.Action != "set center frequency" {
		t.Fatalf("expected hardware error, got %v", err)
	}
}

func TestCenterFreqRoundTrip(t *testing.T) {
	m, ft := newTestModel(t, 8)
	for _, f := range []float64{88.5, 433.92, 1090} {
		if err := m.SetNominalCenterFreq(f); err != nil {
			t.Fatal(err)
		}
		if !near(m.NominalCenterFreq(), f) {
			t.Fatalf("expected %v, got %v", f, m.NominalCenterFreq())
		}
		if !near(ft.center, f*1e6) {
			t.Fatalf("expected hardware at %v, got %v", f*1e6, ft.center)
		}
	}
}

func TestOffsetToggle(t *testing.T) {
	m, ft := newTestModel(t, 8)
	if err := m.SetNominalCenterFreq(7.1); err != nil {
		t.Fatal(err)
	}
	if err := m.SetOffsetted(true); err != nil {
		t.Fatal(err)
	}
	if !m.IsOffsetted() || m.OffsetMHz() != 125 {
		t.Fatal("expected 125MHz offset")
	}
	if !near(m.NominalCenterFreq(), 7.1) {
		t.Fatalf("nominal frequency moved to %v", m.NominalCenterFreq())
	}
	if !near(ft.center, 132.1e6) {
		t.Fatalf("expected hardware at 132.1MHz, got %v", ft.center)
	}
	if err := m.SetOffsetted(false); err != nil {
		t.Fatal(err)
	}
	if !near(m.NominalCenterFreq(), 7.1) || !near(ft.center, 7.1e6) {
		t.Fatalf("unexpected tuning %v / %v", m.NominalCenterFreq(), ft.center)
	}
}

func TestWithOffsetHz(t *testing.T) {
	ft := &fakeTuner{}
	m, err := NewModel(ft, 8, 8, WithOffsetHz(100e6))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetOffsetted(true); err != nil {
		t.Fatal(err)
	}
	if m.OffsetMHz() != 100 || !near(ft.center, 245e6) {
		t.Fatalf("unexpected offset %v, hardware %v", m.OffsetMHz(), ft.center)
	}
}

func TestSampleRateBands(t *testing.T) {
	tests := []struct {
		mhz float64
		ok  bool
	}{
		{0.225, false},
		{0.225001, true},
		{0.25, true},
		{0.3, true},
		{0.3000001, false},
		{0.6, false},
		{0.9, false},
		{0.900001, true},
		{2.048, true},
		{3.2, true},
		{3.2000001, false},
		{0, false},
		{-1, false},
		{math.NaN(), false},
	}
	for _, tt := range tests {
		m, ft := newTestModel(t, 8)
		err := m.SetSampleRate(tt.mhz)
		if tt.ok {
			if err != nil {
				t.Fatalf("%v: %v", tt.mhz, err)
			}
			if !near(m.SampleRate(), tt.mhz) {
				t.Fatalf("%v: got %v", tt.mhz, m.SampleRate())
			}
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%v: expected validation error, got %v", tt.mhz, err)
		}
		if verr.Summary() != "Specified sample rate out of range!" {
			t.Fatalf("unexpected summary %q", verr.Summary())
		}
		if ft.rate != 2400000 {
			t.Fatalf("%v: rejected rate reached tuner (%d)", tt.mhz, ft.rate)
		}
	}
}

func TestRejectedSampleRateKeepsScaling(t *testing.T) {
	m, ft := newTestModel(t, 8)
	ft.blocks = [][]complex64{impulse(10, 1)}
	if _, err := m.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := m.SetSampleRate(0.5); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := m.Range(); !ok {
		t.Fatal("rejected sample rate cleared scaling")
	}
}

func TestSettersClearScaling(t *testing.T) {
	setters := map[string]func(m *Model) error{
		"center":      func(m *Model) error { return m.SetNominalCenterFreq(100) },
		"sample rate": func(m *Model) error { return m.SetSampleRate(1.024) },
		"manual gain": func(m *Model) error { return m.SetGain(ManualGain(20)) },
		"auto gain":   func(m *Model) error { return m.SetGain(AutoGain) },
		"offset":      func(m *Model) error { return m.SetOffsetted(true) },
	}
	for name, set := range setters {
		m, ft := newTestModel(t, 8)
		ft.blocks = [][]complex64{impulse(10, 1)}
		if _, err := m.Acquire(); err != nil {
			t.Fatal(err)
		}
		if _, ok := m.MinIntensity(); !ok {
			t.Fatalf("%s: expected min after acquire", name)
		}
		if err := set(m); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if _, ok := m.MinIntensity(); ok {
			t.Fatalf("%s: min not cleared", name)
		}
		if _, ok := m.MaxIntensity(); ok {
			t.Fatalf("%s: max not cleared", name)
		}
		if _, ok := m.Range(); ok {
			t.Fatalf("%s: range not cleared", name)
		}
	}
}

func TestGain(t *testing.T) {
	m, ft := newTestModel(t, 8)
	if err := m.SetGain(ManualGain(19.7)); err != nil {
		t.Fatal(err)
	}
	if ft.gain != 19.7 || !ft.manual {
		t.Fatalf("expected manual 19.7dB on tuner, got %v", ft.gain)
	}
	if db, ok := m.Gain().DB(); !ok || db != 19.7 {
		t.Fatalf("expected manual gain, got %v", m.Gain())
	}
	if m.GainString() != "19.7" {
		t.Fatalf("unexpected gain string %q", m.GainString())
	}
	if err := m.SetGain(AutoGain); err != nil {
		t.Fatal(err)
	}
	if ft.manual || !m.Gain().IsAuto() {
		t.Fatal("expected auto gain")
	}
}

func TestHardwareFailureRecovers(t *testing.T) {
	m, ft := newTestModel(t, 8)
	if err := m.SetOffsetted(true); err != nil {
		t.Fatal(err)
	}
	if err := m.SetGain(ManualGain(10)); err != nil {
		t.Fatal(err)
	}
	ft.failCenter = true
	err := m.SetNominalCenterFreq(50)
	var herr *HardwareError
	if !errors.As(err, &herr) {
		t.Fatalf("expected hardware error, got %v", err)
	}
	if herr.Summary() != "Can't set center frequency" || herr.Detail() != errIO.Error() {
		t.Fatalf("unexpected report (%q, %q)", herr.Summary(), herr.Detail())
	}
	if !errors.Is(err, errIO) {
		t.Fatal("expected wrapped tuner error")
	}
	if ft.reinits != 1 {
		t.Fatalf("expected one reinitialize, got %d", ft.reinits)
	}
	if m.IsOffsetted() || m.NominalCenterFreq() != 145 || ft.rate != 2400000 || !m.Gain().IsAuto() {
		t.Fatal("expected defaults after recovery")
	}
}

func TestHardwareFailureActions(t *testing.T) {
	tests := []struct {
		action string
		fail   func(ft *fakeTuner)
		set    func(m *Model) error
	}{
		{"set sample rate", func(ft *fakeTuner) { ft.failRate = true }, func(m *Model) error { return m.SetSampleRate(1) }},
		{"set gain", func(ft *fakeTuner) { ft.failGain = true }, func(m *Model) error { return m.SetGain(ManualGain(3)) }},
		{"read samples", func(ft *fakeTuner) { ft.failRead = true }, func(m *Model) error { _, err := m.Acquire(); return err }},
	}
	for _, tt := range tests {
		m, ft := newTestModel(t, 8)
		tt.fail(ft)
		var herr *HardwareError
		if err := tt.set(m); !errors.As(err, &herr) || herr.Action != tt.action {
			t.Fatalf("%s: expected hardware error, got %v", tt.action, err)
		}
		if ft.reinits != 1 {
			t.Fatalf("%s: expected reinitialize", tt.action)
		}
	}
}

func TestAcquireReadFailureKeepsScaling(t *testing.T) {
	m, ft := newTestModel(t, 8)
	m.SetMinIntensity(FixedBound(-40))
	ft.failRead = true
	if _, err := m.Acquire(); err == nil {
		t.Fatal("expected error")
	}
	if lo, ok := m.MinIntensity(); !ok || lo != -40 {
		t.Fatalf("fixed min lost on read failure: %v %v", lo, ok)
	}
}

func TestAcquireShortRead(t *testing.T) {
	m, ft := newTestModel(t, 8)
	ft.blocks = [][]complex64{make([]complex64, 4)}
	var herr *HardwareError
	if _, err := m.Acquire(); !errors.As(err, &herr) {
		t.Fatalf("expected hardware error on short read, got %v", err)
	}
}

func TestAcquireSize(t *testing.T) {
	m, ft := newTestModel(t, 30)
	frame, err := m.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 30 || ft.reads[0] != 32 {
		t.Fatalf("expected 30 bins from 32 samples, got %d from %d", len(frame), ft.reads[0])
	}
}

func TestAcquireFlatRange(t *testing.T) {
	m, ft := newTestModel(t, 16)
	ft.blocks = [][]complex64{impulse(18, 0.5)}
	if _, err := m.Acquire(); err != nil {
		t.Fatal(err)
	}
	if r, ok := m.Range(); !ok || math.Abs(r) > 1e-9 {
		t.Fatalf("expected zero range, got %v %v", r, ok)
	}
}

func TestAcquireWidens(t *testing.T) {
	m, ft := newTestModel(t, 16)
	ft.blocks = [][]complex64{impulse(18, 1), impulse(18, 0.1), impulse(18, 0.5), impulse(18, 2)}
	if _, err := m.Acquire(); err != nil {
		t.Fatal(err)
	}
	lo1, _ := m.MinIntensity()
	hi1, _ := m.MaxIntensity()
	if !near(lo1, 0) || !near(hi1, 0) {
		t.Fatalf("expected 0dB bounds, got %v %v", lo1, hi1)
	}
	if _, err := m.Acquire(); err != nil {
		t.Fatal(err)
	}
	lo2, _ := m.MinIntensity()
	if !near(lo2, -20) {
		t.Fatalf("expected min to widen to -20, got %v", lo2)
	}
	if _, err := m.Acquire(); err != nil {
		t.Fatal(err)
	}
	lo3, _ := m.MinIntensity()
	hi3, _ := m.MaxIntensity()
	if !near(lo3, -20) || !near(hi3, 0) {
		t.Fatalf("bounds narrowed to %v %v", lo3, hi3)
	}
	if r, _ := m.Range(); !near(r, 20) {
		t.Fatalf("expected range 20, got %v", r)
	}
	if _, err := m.Acquire(); err != nil {
		t.Fatal(err)
	}
	lo4, _ := m.MinIntensity()
	hi4, _ := m.MaxIntensity()
	if up := 20 * math.Log10(2); !near(lo4, -20) || !near(hi4, up) {
		t.Fatalf("expected max to widen to %v, got %v %v", up, lo4, hi4)
	}
	if r, _ := m.Range(); !near(r, 20+20*math.Log10(2)) {
		t.Fatalf("expected range %v, got %v", 20+20*math.Log10(2), r)
	}
}

func TestAcquireSilenceIsData(t *testing.T) {
	m, _ := newTestModel(t, 8)
	frame, err := m.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range frame {
		if !math.IsInf(v, -1) {
			t.Fatalf("expected -Inf bins, got %v", frame)
		}
	}
	if lo, ok := m.MinIntensity(); !ok || !math.IsInf(lo, -1) {
		t.Fatalf("expected -Inf min, got %v", lo)
	}
}

func TestAcquireCenterTone(t *testing.T) {
	width := 62
	m, ft := newTestModel(t, width)
	n := width + 2
	ft.blocks = [][]complex64{tone(n, n/4)}
	frame, err := m.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	peak := 0
	for i := range frame {
		if frame[i] > frame[peak] {
			peak = i
		}
	}
	// bin 0 is dropped, so bin k lands at k-1 past the middle.
	if expected := n/4 - 1 + width/2; peak != expected {
		t.Fatalf("expected tone at %d, got %d", expected, peak)
	}
	if hi, _ := m.MaxIntensity(); !near(hi, frame[peak]) {
		t.Fatalf("expected max %v, got %v", frame[peak], hi)
	}
}

func TestFixedBounds(t *testing.T) {
	m, ft := newTestModel(t, 16)
	m.SetMinIntensity(FixedBound(10))
	m.SetMaxIntensity(FixedBound(-10))
	if m.MinString() != "10" || m.MaxString() != "-10" {
		t.Fatalf("unexpected strings %q %q", m.MinString(), m.MaxString())
	}
	ft.blocks = [][]complex64{impulse(18, 1)}
	if _, err := m.Acquire(); err != nil {
		t.Fatal(err)
	}
	if r, ok := m.Range(); !ok || r != -20 {
		t.Fatalf("expected range -20, got %v %v", r, ok)
	}
	if lo, _ := m.MinIntensity(); lo != 10 {
		t.Fatalf("fixed min moved to %v", lo)
	}
	if err := m.SetNominalCenterFreq(200); err != nil {
		t.Fatal(err)
	}
	if lo, ok := m.MinIntensity(); !ok || lo != 10 {
		t.Fatal("fixed min cleared by retune")
	}
	m.SetMinIntensity(AutoBound)
	if _, ok := m.MinIntensity(); ok || m.MinString() != "AUTO" {
		t.Fatal("expected auto min to be cleared")
	}
}

func TestScalingNormalize(t *testing.T) {
	m, ft := newTestModel(t, 16)
	if s := m.Scaling(); s.Valid || s.Normalize(3) != 0 {
		t.Fatal("expected invalid scaling before acquiring")
	}
	m.SetMinIntensity(FixedBound(-40))
	m.SetMaxIntensity(FixedBound(0))
	ft.blocks = [][]complex64{impulse(18, 1)}
	if _, err := m.Acquire(); err != nil {
		t.Fatal(err)
	}
	s := m.Scaling()
	tests := []struct{ db, v float64 }{
		{-40, 0}, {-20, 0.5}, {0, 1}, {10, 1}, {math.Inf(-1), 0}, {math.Inf(1), 1},
	}
	for _, tt := range tests {
		if v := s.Normalize(tt.db); !near(v, tt.v) {
			t.Fatalf("Normalize(%v) = %v, expected %v", tt.db, v, tt.v)
		}
	}
}

func TestBand(t *testing.T) {
	m, _ := newTestModel(t, 8)
	b := m.Band()
	if b.Center != 145 || b.Width != 2.4 {
		t.Fatalf("unexpected band %+v", b)
	}
	if m.Close() != nil {
		t.Fatal("close failed")
	}
}
