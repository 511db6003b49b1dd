// Package prices loads a ticker's daily series through the per-ticker cache,
// refetching from the remote providers when the cache is missing or stale.
package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bighogz/stock-extremes/internal/cache"
	"github.com/bighogz/stock-extremes/internal/models"
)

var ErrNotFound = errors.New("prices: no data for ticker")

var tracer = otel.Tracer("github.com/bighogz/stock-extremes/internal/prices")

// Fetcher is a remote daily price provider.
type Fetcher interface {
	FetchDaily(ctx context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error)
}

// Chain tries each fetcher in order and returns the first non-empty result.
type Chain []Fetcher

func (c Chain) FetchDaily(ctx context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error) {
	var errs []error
	for _, f := range c {
		if f == nil {
			continue
		}
		bars, err := f.FetchDaily(ctx, ticker, from, to)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no provider returned data for %s", ticker)
	}
	return nil, errors.Join(errs...)
}

type Loader struct {
	Store   *cache.Store
	Fetcher Fetcher
	Start   time.Time
	Now     func() time.Time
	Logger  *zap.Logger
}

func NewLoader(store *cache.Store, fetcher Fetcher, start time.Time, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Store: store, Fetcher: fetcher, Start: start, Now: time.Now, Logger: logger}
}

// Load returns the cached series for ticker, refreshing it first when it is
// missing, older than the store's MaxAge, or unreadable.
func (l *Loader) Load(ctx context.Context, ticker string) ([]models.PricePoint, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	ctx, span := tracer.Start(ctx, "prices.Load", trace.WithAttributes(attribute.String("ticker", ticker)))
	defer span.End()

	if ticker == "" {
		span.SetStatus(codes.Error, "empty ticker")
		return nil, fmt.Errorf("%w: empty ticker", ErrNotFound)
	}

	if l.Store.Fresh(ticker) {
		points, err := l.Store.Read(ticker)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true), attribute.Int("points", len(points)))
			l.Logger.Debug("price cache hit", zap.String("ticker", ticker), zap.Int("points", len(points)))
			return points, nil
		}
		l.Logger.Warn("price cache unreadable, refetching", zap.String("ticker", ticker), zap.Error(err))
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	if err := l.refresh(ctx, ticker); err != nil {
		l.Logger.Error("price fetch failed", zap.String("ticker", ticker), zap.Error(err))
		span.RecordError(err)
	}

	points, err := l.Store.Read(ticker)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read after refresh")
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, ticker, err)
	}
	span.SetAttributes(attribute.Int("points", len(points)))
	return points, nil
}

// Refresh forces a refetch and cache overwrite.
func (l *Loader) Refresh(ctx context.Context, ticker string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	ctx, span := tracer.Start(ctx, "prices.Refresh", trace.WithAttributes(attribute.String("ticker", ticker)))
	defer span.End()
	if err := l.refresh(ctx, ticker); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (l *Loader) refresh(ctx context.Context, ticker string) error {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	bars, err := l.Fetcher.FetchDaily(ctx, ticker, l.Start, now())
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars for %s", ticker)
	}
	if err := l.Store.Write(ticker, bars); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	l.Logger.Info("price cache refreshed", zap.String("ticker", ticker), zap.Int("points", len(bars)))
	return nil
}
