package extremes

import (
	"math/rand"
	"testing"
	"time"

	"github.com/bighogz/stock-extremes/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rec(date string, pct float64) models.ChangeRecord {
	p := pct
	end := 100 * (1 + pct/100)
	return models.ChangeRecord{Date: day(date), StartClose: 100, EndClose: &end, PctChange: &p}
}

func dates(ps []models.SelectedPeriod) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Date.Format("2006-01-02")
	}
	return out
}

func TestSelectTopKScenario(t *testing.T) {
	records := []models.ChangeRecord{
		rec("2020-01-01", 50),
		rec("2020-01-03", 40),
		rec("2020-03-01", 30),
	}
	got := SelectTopK(records, Options{K: 10, MinSpacingDays: 20})
	want := []string{"2020-01-01", "2020-03-01"}
	if g := dates(got); len(g) != 2 || g[0] != want[0] || g[1] != want[1] {
		t.Fatalf("selected %v, want %v", g, want)
	}
	if *got[0].PctChange != 50 || *got[1].PctChange != 30 {
		t.Errorf("changes = %v, %v", *got[0].PctChange, *got[1].PctChange)
	}
}

func TestSelectTopKEmpty(t *testing.T) {
	got := SelectTopK(nil, Options{})
	if got == nil || len(got) != 0 {
		t.Fatalf("SelectTopK(nil) = %v, want empty non-nil slice", got)
	}
	got = Worst([]models.ChangeRecord{}, 10, 20)
	if len(got) != 0 {
		t.Fatalf("Worst(empty) = %v", got)
	}
}

func TestSelectTopKSkipsUndefined(t *testing.T) {
	records := []models.ChangeRecord{
		{Date: day("2020-01-01"), StartClose: 1},
		rec("2020-06-01", -5),
		{Date: day("2020-09-01"), StartClose: 1},
	}
	got := Best(records, 10, 20)
	if len(got) != 1 || got[0].Date != day("2020-06-01") {
		t.Fatalf("selected %v, want only 2020-06-01", dates(got))
	}
}

func TestSelectTopKWorst(t *testing.T) {
	records := []models.ChangeRecord{
		rec("2020-01-01", 5),
		rec("2020-02-15", -30),
		rec("2020-02-20", -35),
		rec("2020-06-01", -10),
	}
	got := Worst(records, 10, 20)
	want := []string{"2020-02-20", "2020-06-01", "2020-01-01"}
	g := dates(got)
	if len(g) != len(want) {
		t.Fatalf("selected %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("selected %v, want %v", g, want)
			break
		}
	}
}

func TestSelectTopKSpacingIsExclusive(t *testing.T) {
	records := []models.ChangeRecord{
		rec("2020-01-01", 10),
		rec("2020-01-21", 9), // exactly 20 days
		rec("2020-01-22", 8), // 21 days
	}
	got := Best(records, 10, 20)
	g := dates(got)
	if len(g) != 2 || g[0] != "2020-01-01" || g[1] != "2020-01-22" {
		t.Fatalf("selected %v, want [2020-01-01 2020-01-22]", g)
	}
}

func TestSelectTopKStopsAtK(t *testing.T) {
	var records []models.ChangeRecord
	start := day("2010-01-01")
	for i := 0; i < 50; i++ {
		d := start.AddDate(0, 0, i*30).Format("2006-01-02")
		records = append(records, rec(d, float64(i)))
	}
	got := Best(records, 10, 20)
	if len(got) != 10 {
		t.Fatalf("got %d periods, want 10", len(got))
	}
	if *got[0].PctChange != 49 || *got[9].PctChange != 40 {
		t.Errorf("first/last = %v/%v, want 49/40", *got[0].PctChange, *got[9].PctChange)
	}
}

func TestSelectTopKTieBreakEarliestFirst(t *testing.T) {
	records := []models.ChangeRecord{
		rec("2020-01-10", 7),
		rec("2020-01-05", 7),
	}
	got := Best(records, 10, 20)
	if len(got) != 1 || got[0].Date != day("2020-01-05") {
		t.Fatalf("selected %v, want [2020-01-05]", dates(got))
	}
}

func TestSelectTopKCustomKey(t *testing.T) {
	records := []models.ChangeRecord{
		rec("2020-01-01", 50),
		rec("2020-06-01", 10),
	}
	byStart := func(r models.ChangeRecord) *float64 {
		v := -float64(r.Date.Unix())
		return &v
	}
	got := SelectTopK(records, Options{Key: byStart, K: 1, MinSpacingDays: 20})
	if len(got) != 1 || got[0].Date != day("2020-01-01") {
		t.Fatalf("selected %v, want [2020-01-01]", dates(got))
	}
}

func TestSelectTopKProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	start := day("2015-01-01")
	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(120)
		records := make([]models.ChangeRecord, 0, n)
		defined := 0
		var maxVal float64
		var maxDate time.Time
		for i := 0; i < n; i++ {
			d := start.AddDate(0, 0, i+rng.Intn(3)*i)
			if rng.Intn(10) == 0 {
				records = append(records, models.ChangeRecord{Date: d, StartClose: 1})
				continue
			}
			v := rng.NormFloat64() * 10
			p := v
			records = append(records, models.ChangeRecord{Date: d, StartClose: 1, PctChange: &p})
			if defined == 0 || v > maxVal {
				maxVal, maxDate = v, d
			}
			defined++
		}
		k := 1 + rng.Intn(12)
		spacing := rng.Intn(30)
		for _, worst := range []bool{false, true} {
			got := SelectTopK(records, Options{K: k, MinSpacingDays: spacing, Worst: worst})
			if len(got) > k || len(got) > defined {
				t.Fatalf("trial %d: %d selected, k=%d defined=%d", trial, len(got), k, defined)
			}
			for i := range got {
				for j := i + 1; j < len(got); j++ {
					diff := dayNumber(got[i].Date) - dayNumber(got[j].Date)
					if diff < 0 {
						diff = -diff
					}
					if diff <= int64(spacing) {
						t.Fatalf("trial %d: %s and %s within %d days", trial,
							got[i].Date.Format("2006-01-02"), got[j].Date.Format("2006-01-02"), spacing)
					}
				}
			}
			if !worst && defined > 0 {
				if len(got) == 0 || *got[0].PctChange != maxVal || !got[0].Date.Equal(maxDate) {
					t.Fatalf("trial %d: global maximum %v on %s not selected first", trial,
						maxVal, maxDate.Format("2006-01-02"))
				}
			}
		}
	}
}
