package store

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/chzchzchz/freqshow/radio"
)

// BandPlan labels known channels so detected signals can be named.
type BandPlan struct {
	bands map[float64]BandRecord
	rwmu  sync.RWMutex
}

type BandRecord struct {
	radio.FreqBand
	Name       string `json:"name"`
	Modulation string `json:"modulation"`
}

func NewBandPlan() *BandPlan {
	return &BandPlan{bands: make(map[float64]BandRecord)}
}

// ImportCSV reads "center_hz; name; modulation; bandwidth_hz; comment"
// records. Lines starting with # are skipped; the first record for a
// center wins.
func (b *BandPlan) ImportCSV(r io.Reader) error {
	csvr := csv.NewReader(r)
	csvr.Comma, csvr.Comment, csvr.FieldsPerRecord = ';', '#', -1
	records, err := csvr.ReadAll()
	if err != nil {
		return err
	}
	b.rwmu.Lock()
	defer b.rwmu.Unlock()
	for _, v := range records {
		if len(v) != 5 {
			continue
		}
		for i := range v {
			v[i] = strings.TrimSpace(v[i])
		}
		centerhzStr, name, mod, bwhzStr := v[0], v[1], v[2], v[3]
		centerhz, err := strconv.ParseInt(centerhzStr, 10, 64)
		if err != nil {
			continue
		}
		bwhz, _ := strconv.ParseInt(bwhzStr, 10, 64)
		fb := radio.FreqBand{Center: float64(centerhz) / 1e6, Width: float64(bwhz) / 1e6}
		rec := BandRecord{
			FreqBand:   fb,
			Name:       name,
			Modulation: mod,
		}
		if _, ok := b.bands[rec.Center]; !ok {
			b.bands[rec.Center] = rec
		}
	}
	return nil
}

func LoadBandPlan(fpath string) (*BandPlan, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bp := NewBandPlan()
	if err := bp.ImportCSV(f); err != nil {
		return nil, err
	}
	return bp, nil
}

// Range returns the records overlapping fb ordered by frequency.
func (b *BandPlan) Range(fb radio.FreqBand) (ret []BandRecord) {
	b.rwmu.RLock()
	defer b.rwmu.RUnlock()
	for _, v := range b.bands {
		if fb.Overlaps(v.FreqBand) {
			ret = append(ret, v)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Center < ret[j].Center })
	return ret
}

// Lookup names the closest record covering mhz.
func (b *BandPlan) Lookup(mhz float64) (BandRecord, bool) {
	recs := b.Range(radio.FreqBand{Center: mhz})
	if len(recs) == 0 {
		return BandRecord{}, false
	}
	best := recs[0]
	for _, r := range recs[1:] {
		if abs(r.Center-mhz) < abs(best.Center-mhz) {
			best = r
		}
	}
	return best, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
