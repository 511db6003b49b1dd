// Package report turns selected periods into ranked tables, a terminal bar
// chart, news listings and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/pretty"

	"github.com/bighogz/stock-extremes/internal/analysis"
	"github.com/bighogz/stock-extremes/internal/models"
	"github.com/bighogz/stock-extremes/internal/news"
)

const dateLayout = "2006-01-02"

// Rank copies periods, sorts them for display and numbers them from 1.
// Best periods sort by change descending; worst periods by signed change
// ascending (largest loss first).
func Rank(periods []models.SelectedPeriod, worst bool) []models.SelectedPeriod {
	out := make([]models.SelectedPeriod, len(periods))
	copy(out, periods)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := pct(out[i]), pct(out[j])
		if worst {
			return a < b
		}
		return a > b
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func pct(p models.SelectedPeriod) float64 {
	if p.PctChange == nil {
		return 0
	}
	return *p.PctChange
}

// FormatPct renders v with one decimal place and a trailing percent sign.
// v is taken at its shortest decimal form and rounded half away from zero,
// so 0.25 prints 0.3% and values that round to zero print 0.0% with no sign.
func FormatPct(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1) + "%"
}

func formatChange(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return FormatPct(*v)
}

func formatClose(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

type Row struct {
	Rank       int      `json:"rank"`
	Date       string   `json:"date"`
	StartClose float64  `json:"start_close"`
	EndClose   *float64 `json:"end_close"`
	PctChange  *float64 `json:"pct_change"`
	Change     string   `json:"change"`
}

type NewsItem struct {
	Date     string         `json:"date"`
	Articles []news.Article `json:"articles"`
	Error    string         `json:"error,omitempty"`
}

type Report struct {
	Ticker  string     `json:"ticker"`
	Company string     `json:"company,omitempty"`
	Years   int        `json:"years"`
	Days    int        `json:"days"`
	Spacing int        `json:"spacing_days"`
	AsOf    string     `json:"as_of"`
	Best    []Row      `json:"best"`
	Worst   []Row      `json:"worst"`
	News    []NewsItem `json:"news,omitempty"`
}

// Build ranks both sets and flattens the result for output.
func Build(res *analysis.Result) *Report {
	return &Report{
		Ticker:  res.Ticker,
		Years:   res.Years,
		Days:    res.Days,
		Spacing: res.Spacing,
		AsOf:    res.AsOf.Format(dateLayout),
		Best:    rows(Rank(res.Best, false)),
		Worst:   rows(Rank(res.Worst, true)),
	}
}

func rows(periods []models.SelectedPeriod) []Row {
	out := make([]Row, len(periods))
	for i, p := range periods {
		out[i] = Row{
			Rank:       p.Rank,
			Date:       p.Date.Format(dateLayout),
			StartClose: p.StartClose,
			EndClose:   p.EndClose,
			PctChange:  p.PctChange,
			Change:     formatChange(p.PctChange),
		}
	}
	return out
}

// WorstDates returns the worst period dates in display order.
func (r *Report) WorstDates() []time.Time {
	out := make([]time.Time, 0, len(r.Worst))
	for _, row := range r.Worst {
		if t, err := time.Parse(dateLayout, row.Date); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// AttachNews records lookup results on the report.
func (r *Report) AttachNews(company string, results []news.Result) {
	r.Company = company
	r.News = make([]NewsItem, 0, len(results))
	for _, res := range results {
		item := NewsItem{Date: res.Date.Format(dateLayout), Articles: res.Articles}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		if item.Articles == nil {
			item.Articles = []news.Article{}
		}
		r.News = append(r.News, item)
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = w.Write(pretty.Pretty(body))
	return err
}
