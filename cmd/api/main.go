package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bighogz/stock-extremes/internal/analysis"
	"github.com/bighogz/stock-extremes/internal/app"
	"github.com/bighogz/stock-extremes/internal/config"
	"github.com/bighogz/stock-extremes/internal/logging"
	"github.com/bighogz/stock-extremes/internal/prices"
	"github.com/bighogz/stock-extremes/internal/telemetry"
	"github.com/bighogz/stock-extremes/internal/trend"
)

const (
	maxYears = 30
	maxDays  = 365
)

func main() {
	cfgPath := config.Get("EXTREMES_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("invalid config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	shutdown, err := telemetry.Setup(cfg.Trace.Enabled, cfg.Trace.File)
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}
	defer shutdown(context.Background())

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("wiring", zap.Error(err))
	}
	s := &server{app: a, logger: logger}

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, s.routes(cfg.AdminAPIKey)); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

type server struct {
	app    *app.App
	logger *zap.Logger
}

func (s *server) routes(adminKey string) http.Handler {
	periodsLimiter := newRateLimiter(2 * time.Second)
	refreshLimiter := newRateLimiter(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/periods", securityHeaders(rateLimited(periodsLimiter, s.handlePeriods)))
	mux.HandleFunc("/api/cache/refresh", securityHeaders(adminOrRateLimit(adminKey, refreshLimiter, s.handleRefresh)))
	mux.HandleFunc("/api/cache/meta", securityHeaders(s.handleMeta))
	mux.HandleFunc("/api/health", securityHeaders(handleHealth))
	return mux
}

func (s *server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	ticker := strings.ToUpper(strings.TrimSpace(q.Get("ticker")))
	if ticker == "" {
		errorResponse(w, http.StatusBadRequest, "ticker is required")
		return
	}
	years := clamp(parseInt(q.Get("years"), 5), 1, maxYears)
	days := clamp(parseInt(q.Get("days"), 20), 1, maxDays)

	rep, err := s.app.Analyze(r.Context(), analysis.Params{Ticker: ticker, Years: years, Days: days})
	switch {
	case errors.Is(err, prices.ErrNotFound):
		errorResponse(w, http.StatusNotFound, "no price data for "+ticker)
		return
	case errors.Is(err, trend.ErrMissingField), errors.Is(err, trend.ErrInvalidWindow):
		errorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.logger.Error("analyze", zap.String("ticker", ticker), zap.Error(err))
		errorResponse(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	if q.Get("news") == "1" || q.Get("news") == "true" {
		if _, _, err := s.app.LookupNews(r.Context(), rep); err != nil {
			s.logger.Warn("news skipped", zap.String("ticker", ticker), zap.Error(err))
		}
	}
	jsonResponse(w, rep)
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		errorResponse(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if err := s.app.Loader.Refresh(r.Context(), ticker); err != nil {
		s.logger.Error("refresh", zap.String("ticker", ticker), zap.Error(err))
		errorResponse(w, http.StatusBadGateway, "refresh failed")
		return
	}
	jsonResponse(w, map[string]string{"status": "refreshed", "ticker": ticker})
}

func (s *server) handleMeta(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		errorResponse(w, http.StatusBadRequest, "ticker is required")
		return
	}
	var last *string
	if t := s.app.Store.ModTime(ticker); t != nil {
		formatted := t.UTC().Format(time.RFC3339)
		last = &formatted
	}
	jsonResponse(w, map[string]interface{}{
		"ticker":       ticker,
		"last_updated": last,
		"fresh":        s.app.Store.Fresh(ticker),
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"})
}

func jsonResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func errorResponse(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
