// Package trend derives forward N-row percentage changes from a daily close series.
package trend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bighogz/stock-extremes/internal/models"
)

var (
	ErrMissingField  = errors.New("trend: date field missing")
	ErrInvalidWindow = errors.New("trend: years and days must be positive")
)

var tracer = otel.Tracer("github.com/bighogz/stock-extremes/internal/trend")

// Process keeps the points dated on or after now minus years, and for each
// kept row i emits the change from close[i] to close[i+days]. Rows with no
// row days ahead are emitted with nil EndClose and PctChange.
func Process(series []models.PricePoint, years, days int, now time.Time) ([]models.ChangeRecord, error) {
	if years <= 0 || days <= 0 {
		return nil, fmt.Errorf("%w: years=%d days=%d", ErrInvalidWindow, years, days)
	}
	for i, p := range series {
		if p.Date.IsZero() {
			return nil, fmt.Errorf("%w: row %d", ErrMissingField, i)
		}
	}

	cutoff := now.AddDate(-years, 0, 0)
	window := make([]models.PricePoint, 0, len(series))
	for _, p := range series {
		if !p.Date.Before(cutoff) {
			window = append(window, p)
		}
	}

	out := make([]models.ChangeRecord, len(window))
	for i, p := range window {
		out[i] = models.ChangeRecord{Date: p.Date, StartClose: p.Close}
		if i+days >= len(window) {
			continue
		}
		end := window[i+days].Close
		out[i].EndClose = &end
		if pct, ok := PctChange(p.Close, end); ok {
			out[i].PctChange = &pct
		}
	}
	return out, nil
}

// ProcessContext is Process wrapped in a trace span.
func ProcessContext(ctx context.Context, series []models.PricePoint, years, days int, now time.Time) ([]models.ChangeRecord, error) {
	_, span := tracer.Start(ctx, "trend.Process")
	defer span.End()
	span.SetAttributes(
		attribute.Int("years", years),
		attribute.Int("days", days),
		attribute.Int("points", len(series)),
	)
	recs, err := Process(series, years, days, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("records", len(recs)))
	return recs, nil
}

// PctChange is (end-start)/start*100. ok is false when start is zero.
func PctChange(start, end float64) (float64, bool) {
	if start == 0 {
		return 0, false
	}
	return (end - start) / start * 100, true
}
