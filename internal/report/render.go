package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bighogz/stock-extremes/internal/news"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

const barChar = "█"

// Table renders one ranked set.
func Table(title string, rs []Row, worst bool) string {
	changeStyle := gainStyle
	if worst {
		changeStyle = lossStyle
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Date", "Start", "End", "Change").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 4:
				return cellStyle.Inherit(changeStyle).Align(lipgloss.Right)
			case col == 0 || col == 2 || col == 3:
				return cellStyle.Align(lipgloss.Right)
			default:
				return cellStyle
			}
		})
	for _, r := range rs {
		t.Row(fmt.Sprint(r.Rank), r.Date, formatClose(&r.StartClose), formatClose(r.EndClose), r.Change)
	}
	if len(rs) == 0 {
		return titleStyle.Render(title) + "\n" + dimStyle.Render("  (no periods)") + "\n"
	}
	return titleStyle.Render(title) + "\n" + t.String() + "\n"
}

// RenderTables writes the best and worst tables.
func RenderTables(w io.Writer, r *Report) {
	fmt.Fprintf(w, "\n%s\n", Table(
		fmt.Sprintf("Top %d best %d-day periods for %s (last %d years)", len(r.Best), r.Days, r.Ticker, r.Years),
		r.Best, false))
	fmt.Fprintf(w, "%s\n", Table(
		fmt.Sprintf("Top %d worst %d-day periods for %s (last %d years)", len(r.Worst), r.Days, r.Ticker, r.Years),
		r.Worst, true))
}

// Chart draws a horizontal bar per period: gains to the right of the zero
// axis in green, losses to the left in red. width is the total bar area.
func Chart(r *Report, width int) string {
	if width < 10 {
		width = 10
	}
	half := width / 2

	type bar struct {
		label string
		value float64
		loss  bool
	}
	var bars []bar
	for _, row := range r.Best {
		if row.PctChange != nil {
			bars = append(bars, bar{row.Date, *row.PctChange, false})
		}
	}
	for _, row := range r.Worst {
		if row.PctChange != nil {
			bars = append(bars, bar{row.Date, *row.PctChange, true})
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s: best and worst %d-day changes (%%)", r.Ticker, r.Days)))
	b.WriteString("\n")
	if len(bars) == 0 {
		b.WriteString(dimStyle.Render("  (nothing to plot)"))
		b.WriteString("\n")
		return b.String()
	}

	maxAbs := 0.0
	for _, br := range bars {
		maxAbs = math.Max(maxAbs, math.Abs(br.value))
	}
	if maxAbs == 0 {
		maxAbs = 1
	}

	for _, br := range bars {
		n := int(math.Round(math.Abs(br.value) / maxAbs * float64(half)))
		style := gainStyle
		if br.loss {
			style = lossStyle
		}
		fill := style.Render(strings.Repeat(barChar, n))
		var left, right string
		if br.value < 0 {
			left = strings.Repeat(" ", half-n) + fill
			right = strings.Repeat(" ", half)
		} else {
			left = strings.Repeat(" ", half)
			right = fill + strings.Repeat(" ", half-n)
		}
		fmt.Fprintf(&b, "%s %s│%s %s\n", br.label, left, right, style.Render(FormatPct(br.value)))
	}

	// x axis
	pad := strings.Repeat(" ", len(dateLayout)+1)
	b.WriteString(pad + strings.Repeat("─", half) + "┼" + strings.Repeat("─", half) + "\n")
	lo, hi := FormatPct(-maxAbs), FormatPct(maxAbs)
	gap := max(1, 2*half+1-len(lo)-len(hi)-1)
	mid := gap / 2
	b.WriteString(pad + lo + strings.Repeat(" ", mid) + "0" + strings.Repeat(" ", gap-mid) + hi + "\n")
	b.WriteString(pad + dimStyle.Render("% change") + "  " +
		gainStyle.Render(barChar+" best") + "  " + lossStyle.Render(barChar+" worst") + "\n")
	return b.String()
}

// RenderNews writes the articles found for each looked-up date.
func RenderNews(w io.Writer, company string, results []news.Result) {
	for _, res := range results {
		fmt.Fprintf(w, "\n%s\n", titleStyle.Render(fmt.Sprintf("News for %s from %s:", company, res.Date.Format(dateLayout))))
		if res.Err != nil {
			fmt.Fprintf(w, "  %s\n", lossStyle.Render("lookup failed: "+res.Err.Error()))
			continue
		}
		if len(res.Articles) == 0 {
			fmt.Fprintf(w, "  %s\n", dimStyle.Render("No articles found."))
			continue
		}
		for _, a := range res.Articles {
			fmt.Fprintf(w, "  %s  %s\n    %s\n", a.Published.Format(dateLayout), a.Headline, dimStyle.Render(a.URL))
		}
	}
}
