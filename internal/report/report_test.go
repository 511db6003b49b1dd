package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bighogz/stock-extremes/internal/analysis"
	"github.com/bighogz/stock-extremes/internal/models"
	"github.com/bighogz/stock-extremes/internal/news"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func period(date string, v float64) models.SelectedPeriod {
	p := v
	end := 100 * (1 + v/100)
	return models.SelectedPeriod{ChangeRecord: models.ChangeRecord{
		Date: day(date), StartClose: 100, EndClose: &end, PctChange: &p,
	}}
}

func sampleResult() *analysis.Result {
	return &analysis.Result{
		Ticker: "AAPL", Years: 5, Days: 20, Spacing: 20,
		AsOf:  day("2024-06-30"),
		Best:  []models.SelectedPeriod{period("2020-04-01", 12.34), period("2021-01-04", 30.06)},
		Worst: []models.SelectedPeriod{period("2020-02-20", -10.5), period("2022-05-02", -25.25)},
	}
}

func TestFormatPct(t *testing.T) {
	cases := map[float64]string{
		12.34:   "12.3%",
		-25.26:  "-25.3%",
		0:       "0.0%",
		7:       "7.0%",
		-0.04:   "0.0%",
		100.019: "100.0%",
		0.25:    "0.3%",
		0.35:    "0.4%",
		-0.05:   "-0.1%",
		-0.0001: "0.0%",
	}
	for in, want := range cases {
		if got := FormatPct(in); got != want {
			t.Errorf("FormatPct(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRank(t *testing.T) {
	best := Rank([]models.SelectedPeriod{period("2020-01-01", 5), period("2021-01-01", 9), period("2022-01-01", 7)}, false)
	if pct(best[0]) != 9 || pct(best[2]) != 5 || best[0].Rank != 1 || best[2].Rank != 3 {
		t.Errorf("best ranking = %+v", best)
	}
	worst := Rank([]models.SelectedPeriod{period("2020-01-01", -5), period("2021-01-01", -9), period("2022-01-01", 3)}, true)
	if pct(worst[0]) != -9 || pct(worst[1]) != -5 || pct(worst[2]) != 3 {
		t.Errorf("worst should sort by signed change ascending, got %v %v %v", pct(worst[0]), pct(worst[1]), pct(worst[2]))
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := []models.SelectedPeriod{period("2020-01-01", 1), period("2021-01-01", 2)}
	Rank(in, false)
	if in[0].Rank != 0 || pct(in[0]) != 1 {
		t.Errorf("input modified: %+v", in[0])
	}
}

func TestBuild(t *testing.T) {
	r := Build(sampleResult())
	if r.Best[0].Date != "2021-01-04" || r.Best[0].Change != "30.1%" || r.Best[0].Rank != 1 {
		t.Errorf("best[0] = %+v", r.Best[0])
	}
	if r.Worst[0].Date != "2022-05-02" || r.Worst[0].Change != "-25.3%" {
		t.Errorf("worst[0] = %+v", r.Worst[0])
	}
	dates := r.WorstDates()
	if len(dates) != 2 || !dates[0].Equal(day("2022-05-02")) {
		t.Errorf("WorstDates = %v", dates)
	}
}

func TestRenderTables(t *testing.T) {
	var buf bytes.Buffer
	RenderTables(&buf, Build(sampleResult()))
	out := buf.String()
	for _, want := range []string{"best 20-day periods for AAPL", "worst 20-day periods", "2021-01-04", "30.1%", "-10.5%", "100.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("tables missing %q:\n%s", want, out)
		}
	}
}

func TestChart(t *testing.T) {
	out := Chart(Build(sampleResult()), 40)
	lines := strings.Split(out, "\n")
	var barLines int
	for _, l := range lines {
		if strings.Contains(l, "│") {
			barLines++
		}
	}
	if barLines != 4 {
		t.Errorf("chart has %d bar lines, want 4:\n%s", barLines, out)
	}
	for _, want := range []string{"2021-01-04", "2022-05-02", "-30.1%", "┼", "% change"} {
		if !strings.Contains(out, want) {
			t.Errorf("chart missing %q:\n%s", want, out)
		}
	}
}

func TestChartEmpty(t *testing.T) {
	out := Chart(&Report{Ticker: "X", Days: 5}, 40)
	if !strings.Contains(out, "nothing to plot") {
		t.Errorf("empty chart = %q", out)
	}
}

func TestRenderNews(t *testing.T) {
	results := []news.Result{
		{Date: day("2020-03-16"), Articles: []news.Article{{
			Published: day("2020-03-17"), Headline: "Markets plunge", URL: "https://nyt.example/x",
		}}},
		{Date: day("2008-10-06"), Err: errors.New("status 429")},
		{Date: day("2001-09-17")},
	}
	var buf bytes.Buffer
	RenderNews(&buf, "Apple Inc.", results)
	out := buf.String()
	for _, want := range []string{"News for Apple Inc. from 2020-03-16", "Markets plunge", "https://nyt.example/x", "lookup failed: status 429", "No articles found."} {
		if !strings.Contains(out, want) {
			t.Errorf("news output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	r := Build(sampleResult())
	r.AttachNews("Apple Inc.", []news.Result{{Date: day("2022-05-02"), Err: errors.New("boom")}})
	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var back Report
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if back.Company != "Apple Inc." || len(back.News) != 1 || back.News[0].Error != "boom" {
		t.Errorf("decoded = %+v", back)
	}
	if !strings.Contains(buf.String(), "\n  \"ticker\"") {
		t.Errorf("output not indented:\n%s", buf.String())
	}
}
