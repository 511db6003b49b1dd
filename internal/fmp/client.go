package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bighogz/stock-extremes/internal/httpclient"
	"github.com/bighogz/stock-extremes/internal/models"
)

const baseURL = "https://financialmodelingprep.com/stable"

var (
	ErrNoKey     = errors.New("fmp: no api key configured")
	ErrRateLimit = errors.New("fmp: rate limited")
	ErrNoData    = errors.New("fmp: no data returned")
)

type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Logger  *zap.Logger
}

func New(apiKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{APIKey: apiKey, BaseURL: baseURL, HTTP: httpclient.Default, Logger: logger}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (interface{}, error) {
	if c.APIKey == "" {
		return nil, ErrNoKey
	}
	base := c.BaseURL
	if base == "" {
		base = baseURL
	}
	params.Set("apikey", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	client := c.HTTP
	if client == nil {
		client = httpclient.Default
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fmp %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimit
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fmp %s: status %d", path, resp.StatusCode)
	}
	var data interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("fmp %s decode: %w", path, err)
	}
	if m, ok := data.(map[string]interface{}); ok {
		if msg, ok := m["Error Message"].(string); ok && msg != "" {
			return nil, fmt.Errorf("fmp %s: %s", path, msg)
		}
	}
	return data, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	s = s[:min(10, len(s))]
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FetchDaily returns end-of-day bars for [from, to], oldest first.
func (c *Client) FetchDaily(ctx context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("fmp: empty ticker")
	}
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	data, err := c.get(ctx, "/historical-price-eod/full", params)
	if err != nil {
		return nil, err
	}

	var items []interface{}
	switch v := data.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		if hist, ok := v["historical"].([]interface{}); ok {
			items = hist
		}
	}
	out := make([]models.PricePoint, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		d, ok := parseDate(str(m["date"]))
		if !ok {
			continue
		}
		cl := toFloat(m["close"], m["adjClose"])
		if cl <= 0 {
			continue
		}
		out = append(out, models.PricePoint{
			Date:   d,
			Open:   toFloat(m["open"]),
			High:   toFloat(m["high"]),
			Low:    toFloat(m["low"]),
			Close:  cl,
			Volume: toFloat(m["volume"]),
		})
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	c.Logger.Debug("fmp daily bars", zap.String("ticker", ticker), zap.Int("bars", len(out)))
	return out, nil
}

// CompanyName looks the ticker up in the /profile endpoint.
func (c *Client) CompanyName(ctx context.Context, ticker string) (string, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(strings.TrimSpace(ticker)))
	data, err := c.get(ctx, "/profile", params)
	if err != nil {
		return "", err
	}
	if arr, ok := data.([]interface{}); ok {
		for _, v := range arr {
			if m, ok := v.(map[string]interface{}); ok {
				if name := strOr(m["companyName"], m["name"]); name != "" {
					return name, nil
				}
			}
		}
	}
	return "", ErrNoData
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func strOr(vals ...interface{}) string {
	for _, v := range vals {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

func toFloat(vals ...interface{}) float64 {
	for _, v := range vals {
		if v == nil {
			continue
		}
		switch x := v.(type) {
		case float64:
			return x
		case int:
			return float64(x)
		case string:
			f, _ := strconv.ParseFloat(x, 64)
			return f
		}
	}
	return 0
}
