package freqshow

import (
	"fmt"
	"strconv"
	"strings"
)

// Gain is either automatic or a fixed number of decibels.
type Gain struct {
	manual bool
	db     float64
}

// AutoGain hands gain control to the tuner.
var AutoGain = Gain{}

func ManualGain(db float64) Gain { return Gain{manual: true, db: db} }

func (g Gain) IsAuto() bool { return !g.manual }

// DB returns the manual gain; ok is false for AutoGain.
func (g Gain) DB() (db float64, ok bool) { return g.db, g.manual }

func (g Gain) String() string {
	if !g.manual {
		return "AUTO"
	}
	return fmt.Sprintf("%0.1f", g.db)
}

// ParseGain accepts "AUTO" (any case) or a decibel value.
func ParseGain(s string) (Gain, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "auto") {
		return AutoGain, nil
	}
	db, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Gain{}, fmt.Errorf("bad gain %q: want AUTO or dB", s)
	}
	return ManualGain(db), nil
}
