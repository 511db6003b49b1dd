// Package app wires the components of a run from a config.Config.
package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/bighogz/stock-extremes/internal/analysis"
	"github.com/bighogz/stock-extremes/internal/cache"
	"github.com/bighogz/stock-extremes/internal/config"
	"github.com/bighogz/stock-extremes/internal/fmp"
	"github.com/bighogz/stock-extremes/internal/news"
	"github.com/bighogz/stock-extremes/internal/prices"
	"github.com/bighogz/stock-extremes/internal/report"
	"github.com/bighogz/stock-extremes/internal/sp500"
	"github.com/bighogz/stock-extremes/internal/yahoo"
)

type App struct {
	Config   *config.Config
	Store    *cache.Store
	Loader   *prices.Loader
	Analyzer *analysis.Analyzer
	Names    *news.Names
	News     *news.Client
	Logger   *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start, err := cfg.HistoryStartDate()
	if err != nil {
		return nil, err
	}

	yc := yahoo.New(logger.Named("yahoo"))
	fetchers := prices.Chain{yc}
	nameSources := []news.NameSource{sp500.NewDirectory(), yc}
	if cfg.FMP.APIKey != "" {
		fc := fmp.New(cfg.FMP.APIKey, logger.Named("fmp"))
		fc.BaseURL = cfg.FMP.BaseURL
		fetchers = append(fetchers, fc)
		nameSources = append(nameSources, fc)
	}

	store := cache.New(cfg.DataDir, cfg.CacheMaxAge)
	loader := prices.NewLoader(store, fetchers, start, logger.Named("prices"))

	return &App{
		Config: cfg,
		Store:  store,
		Loader: loader,
		Analyzer: &analysis.Analyzer{
			Loader:  loader,
			TopK:    cfg.TopK,
			Spacing: cfg.SpacingFor,
			Logger:  logger.Named("analysis"),
		},
		Names:  &news.Names{Sources: nameSources, Logger: logger.Named("names")},
		News:   news.New(cfg.NYT.APIKey, cfg.NYT.BaseURL, cfg.NYT.Delay, logger.Named("news")),
		Logger: logger,
	}, nil
}

// Analyze runs the pipeline and returns the ranked report.
func (a *App) Analyze(ctx context.Context, p analysis.Params) (*report.Report, error) {
	res, err := a.Analyzer.Run(ctx, p)
	if err != nil {
		return nil, err
	}
	return report.Build(res), nil
}

// LookupNews resolves the company name and searches news for the report's
// worst periods. A failed name lookup returns ErrNameLookup and no results.
func (a *App) LookupNews(ctx context.Context, r *report.Report) (string, []news.Result, error) {
	name, err := a.Names.Resolve(ctx, r.Ticker)
	if err != nil {
		a.Logger.Warn("company name lookup failed", zap.String("ticker", r.Ticker), zap.Error(err))
		return "", nil, err
	}
	results := a.News.Lookup(ctx, name, r.WorstDates())
	r.AttachNews(name, results)
	return name, results, nil
}

// IsNameLookup reports whether err is a company-name lookup failure.
func IsNameLookup(err error) bool {
	return errors.Is(err, news.ErrNameLookup)
}
