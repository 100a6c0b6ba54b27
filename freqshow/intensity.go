package freqshow

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bound is one end of the intensity scale: auto scaled or fixed in dB.
type Bound struct {
	fixed bool
	db    float64
}

var AutoBound = Bound{}

func FixedBound(db float64) Bound { return Bound{fixed: true, db: db} }

func (b Bound) IsAuto() bool { return !b.fixed }

func (b Bound) DB() (db float64, ok bool) { return b.db, b.fixed }

func (b Bound) String() string {
	if !b.fixed {
		return "AUTO"
	}
	return fmt.Sprintf("%0.0f", b.db)
}

// ParseBound accepts "AUTO" (any case) or a decibel value.
func ParseBound(s string) (Bound, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "auto") {
		return AutoBound, nil
	}
	db, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Bound{}, fmt.Errorf("bad intensity %q: want AUTO or dB", s)
	}
	return FixedBound(db), nil
}

// Scaling is a snapshot of the intensity scale in effect.
type Scaling struct {
	Min   float64
	Max   float64
	Range float64
	// Valid is false until both bounds are known.
	Valid bool
}

// Normalize maps db into [0, 1] on the scale. Values outside the scale are
// clamped; anything that can't be placed maps to 0.
func (s Scaling) Normalize(db float64) float64 {
	if !s.Valid || !(s.Range > 0) || math.IsNaN(db) {
		return 0
	}
	v := (db - s.Min) / s.Range
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
