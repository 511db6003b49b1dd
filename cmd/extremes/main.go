package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bighogz/stock-extremes/internal/analysis"
	"github.com/bighogz/stock-extremes/internal/app"
	"github.com/bighogz/stock-extremes/internal/config"
	"github.com/bighogz/stock-extremes/internal/logging"
	"github.com/bighogz/stock-extremes/internal/prices"
	"github.com/bighogz/stock-extremes/internal/report"
	"github.com/bighogz/stock-extremes/internal/telemetry"
)

const chartWidth = 60

func main() {
	if err := run(os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(stdin io.Reader, stdout, stderr io.Writer) error {
	cfgPath := config.Get("EXTREMES_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	runID := uuid.NewString()
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", runID))

	shutdown, err := telemetry.Setup(cfg.Trace.Enabled, cfg.Trace.File, attribute.String("run.id", runID))
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("trace shutdown", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	p := newPrompter(stdin, stdout)
	ticker, err := p.ticker("Enter the stock ticker symbol: ")
	if err != nil {
		return err
	}
	years, err := p.positiveInt("Enter the number of years to look back: ")
	if err != nil {
		return err
	}
	days, err := p.positiveInt("Enter the window size in days: ")
	if err != nil {
		return err
	}

	rep, err := a.Analyze(ctx, analysis.Params{Ticker: ticker, Years: years, Days: days})
	if err != nil {
		if errors.Is(err, prices.ErrNotFound) {
			return fmt.Errorf("no price data for %s: %w", ticker, err)
		}
		return err
	}

	if cfg.Output == "json" {
		return writeJSON(ctx, a, rep, stdout, stderr)
	}

	report.RenderTables(stdout, rep)
	fmt.Fprintln(stdout, report.Chart(rep, chartWidth))
	p.wait("Press Enter to close the chart and look up news...")

	company, results, err := a.LookupNews(ctx, rep)
	if err != nil {
		if app.IsNameLookup(err) {
			fmt.Fprintf(stdout, "\nCould not find a company name for %s; skipping news.\n", ticker)
			return nil
		}
		return err
	}
	report.RenderNews(stdout, company, results)
	return nil
}

// writeJSON prints the report with news attached. A failed news lookup is
// reported on stderr and the report is still written.
func writeJSON(ctx context.Context, a *app.App, rep *report.Report, stdout, stderr io.Writer) error {
	if _, _, err := a.LookupNews(ctx, rep); err != nil {
		fmt.Fprintf(stderr, "Skipping news: %v\n", err)
	}
	return report.WriteJSON(stdout, rep)
}
