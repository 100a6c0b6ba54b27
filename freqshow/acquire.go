package freqshow

import (
	"fmt"

	"github.com/chzchzchz/freqshow/dsp"
)

// Acquire reads width+2 samples and returns width dB bins with the tuned
// frequency at index width/2. Auto scaled bounds are widened to cover the
// frame. Silent bins are -Inf.
func (m *Model) Acquire() ([]float64, error) {
	n := m.an.Samples()
	samps, err := m.tuner.ReadSamples(n)
	if err == nil && len(samps) != n {
		err = fmt.Errorf("short read: got %d of %d samples", len(samps), n)
	}
	if err != nil {
		return nil, m.hardwareFailure("read samples", err)
	}
	frame := m.an.Frame(samps)
	m.widen(frame)
	return frame, nil
}

func (m *Model) widen(frame []float64) {
	lo, hi := dsp.MinMax(frame)
	if m.minAuto && (!m.hasMin || lo < m.minIntensity) {
		m.minIntensity, m.hasMin = lo, true
	}
	if m.maxAuto && (!m.hasMax || hi > m.maxIntensity) {
		m.maxIntensity, m.hasMax = hi, true
	}
	m.rng, m.hasRange = m.maxIntensity-m.minIntensity, m.hasMin && m.hasMax
}
