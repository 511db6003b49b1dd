// Package analysis runs one ticker through load, windowed change and
// extremal selection.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bighogz/stock-extremes/internal/extremes"
	"github.com/bighogz/stock-extremes/internal/models"
	"github.com/bighogz/stock-extremes/internal/trend"
)

var tracer = otel.Tracer("github.com/bighogz/stock-extremes/internal/analysis")

// Loader is satisfied by *prices.Loader.
type Loader interface {
	Load(ctx context.Context, ticker string) ([]models.PricePoint, error)
}

type Params struct {
	Ticker string
	Years  int
	Days   int
}

type Result struct {
	Ticker   string                  `json:"ticker"`
	Years    int                     `json:"years"`
	Days     int                     `json:"days"`
	Spacing  int                     `json:"spacing_days"`
	Points   int                     `json:"points"`
	Records  []models.ChangeRecord   `json:"-"`
	Best     []models.SelectedPeriod `json:"best"`
	Worst    []models.SelectedPeriod `json:"worst"`
	AsOf     time.Time               `json:"as_of"`
	Duration time.Duration           `json:"-"`
}

type Analyzer struct {
	Loader Loader
	TopK   int
	// Spacing maps the window size to the spacing radius.
	Spacing func(days int) int
	Now     func() time.Time
	Logger  *zap.Logger
}

func (a *Analyzer) Run(ctx context.Context, p Params) (*Result, error) {
	started := time.Now()
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	ctx, span := tracer.Start(ctx, "analysis.Run", trace.WithAttributes(
		attribute.String("ticker", p.Ticker),
		attribute.Int("years", p.Years),
		attribute.Int("days", p.Days),
	))
	defer span.End()

	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	asOf := now()

	points, err := a.Loader.Load(ctx, p.Ticker)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load")
		return nil, err
	}
	records, err := trend.ProcessContext(ctx, points, p.Years, p.Days, asOf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "process")
		return nil, fmt.Errorf("process %s: %w", p.Ticker, err)
	}

	k := a.TopK
	if k <= 0 {
		k = extremes.DefaultK
	}
	spacing := extremes.DefaultMinSpacingDays
	if a.Spacing != nil {
		spacing = a.Spacing(p.Days)
	}

	_, selSpan := tracer.Start(ctx, "extremes.Select", trace.WithAttributes(
		attribute.Int("k", k),
		attribute.Int("spacing_days", spacing),
		attribute.Int("records", len(records)),
	))
	best := extremes.Best(records, k, spacing)
	worst := extremes.Worst(records, k, spacing)
	selSpan.SetAttributes(attribute.Int("best", len(best)), attribute.Int("worst", len(worst)))
	selSpan.End()

	res := &Result{
		Ticker:   p.Ticker,
		Years:    p.Years,
		Days:     p.Days,
		Spacing:  spacing,
		Points:   len(points),
		Records:  records,
		Best:     best,
		Worst:    worst,
		AsOf:     asOf,
		Duration: time.Since(started),
	}
	logger.Info("analysis complete",
		zap.String("ticker", p.Ticker),
		zap.Int("points", len(points)),
		zap.Int("records", len(records)),
		zap.Int("best", len(best)),
		zap.Int("worst", len(worst)),
		zap.Duration("took", res.Duration))
	return res, nil
}
