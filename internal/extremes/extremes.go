// Package extremes picks the most extreme windowed changes that are spaced far
// enough apart to be distinct market events.
package extremes

import (
	"sort"
	"time"

	"github.com/bighogz/stock-extremes/internal/models"
)

const (
	DefaultK              = 10
	DefaultMinSpacingDays = 20
)

// Key extracts the ranking value of a record. A nil result excludes the record.
type Key func(models.ChangeRecord) *float64

// ByPctChange ranks by the windowed percentage change.
func ByPctChange(r models.ChangeRecord) *float64 { return r.PctChange }

type Options struct {
	Key            Key
	K              int
	MinSpacingDays int
	Worst          bool
}

type candidate struct {
	rec   models.ChangeRecord
	value float64
	day   int64
}

// SelectTopK walks the records from most to least extreme and accepts one only
// if its date is more than MinSpacingDays calendar days from every date already
// accepted. It stops after K acceptances. Equal values are taken earliest date
// first. The result is in acceptance order with Rank unset.
func SelectTopK(records []models.ChangeRecord, opts Options) []models.SelectedPeriod {
	key := opts.Key
	if key == nil {
		key = ByPctChange
	}
	k := opts.K
	if k == 0 {
		k = DefaultK
	}
	if k < 0 || len(records) == 0 {
		return []models.SelectedPeriod{}
	}

	cands := make([]candidate, 0, len(records))
	for _, r := range records {
		v := key(r)
		if v == nil {
			continue
		}
		cands = append(cands, candidate{rec: r, value: *v, day: dayNumber(r.Date)})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.value != b.value {
			if opts.Worst {
				return a.value < b.value
			}
			return a.value > b.value
		}
		return a.day < b.day
	})

	spacing := int64(opts.MinSpacingDays)
	accepted := make([]int64, 0, k)
	out := make([]models.SelectedPeriod, 0, min(k, len(cands)))
	for _, c := range cands {
		if len(out) == k {
			break
		}
		if tooClose(c.day, accepted, spacing) {
			continue
		}
		accepted = append(accepted, c.day)
		out = append(out, models.SelectedPeriod{ChangeRecord: c.rec})
	}
	return out
}

// Best selects the K largest changes with the default key.
func Best(records []models.ChangeRecord, k, spacing int) []models.SelectedPeriod {
	return SelectTopK(records, Options{K: k, MinSpacingDays: spacing})
}

// Worst selects the K smallest changes with the default key.
func Worst(records []models.ChangeRecord, k, spacing int) []models.SelectedPeriod {
	return SelectTopK(records, Options{K: k, MinSpacingDays: spacing, Worst: true})
}

func tooClose(day int64, accepted []int64, spacing int64) bool {
	for _, a := range accepted {
		d := day - a
		if d < 0 {
			d = -d
		}
		if d <= spacing {
			return true
		}
	}
	return false
}

// dayNumber is the civil date of t as days since the Unix epoch.
func dayNumber(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}
