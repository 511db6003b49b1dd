package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
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

const chartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

var ErrNoData = errors.New("yahoo: no data returned")

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *zap.Logger
}

func New(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{BaseURL: chartURL, HTTP: httpclient.Default, Logger: logger}
}

func toYahooSymbol(sym string) string {
	switch sym {
	case "BRK.B":
		return "BRK-B"
	case "BF.B":
		return "BF-B"
	default:
		return sym
	}
}

// ToYahooSymbol converts S&P 500 symbols to Yahoo format: BRK.B -> BRK-B
func ToYahooSymbol(s string) string { return toYahooSymbol(strings.ToUpper(strings.TrimSpace(s))) }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) chart(ctx context.Context, ticker string, params url.Values) (*chartResponse, error) {
	base := c.BaseURL
	if base == "" {
		base = chartURL
	}
	u := base + "/" + url.PathEscape(ToYahooSymbol(ticker)) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpclient.Do(c.HTTP, req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, preview)
	}
	var data chartResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if data.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", data.Chart.Error.Description)
	}
	if len(data.Chart.Result) == 0 {
		return nil, ErrNoData
	}
	return &data, nil
}

// FetchDaily returns daily bars for [from, to], oldest first. Null bars
// (holidays, halted days) are skipped.
func (c *Client) FetchDaily(ctx context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error) {
	if strings.TrimSpace(ticker) == "" {
		return nil, fmt.Errorf("yahoo: empty ticker")
	}
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.Unix(), 10))
	params.Set("events", "history")

	data, err := c.chart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}
	r := data.Chart.Result[0]
	if len(r.Timestamp) == 0 || len(r.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}
	q := r.Indicators.Quote[0]
	bars := make([]models.PricePoint, 0, len(r.Timestamp))
	skipped := 0
	for i, ts := range r.Timestamp {
		cl := at(q.Close, i)
		if cl == nil {
			skipped++
			continue
		}
		t := time.Unix(ts, 0).UTC()
		bars = append(bars, models.PricePoint{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   deref(at(q.Open, i)),
			High:   deref(at(q.High, i)),
			Low:    deref(at(q.Low, i)),
			Close:  *cl,
			Volume: deref(at(q.Volume, i)),
		})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	c.Logger.Debug("yahoo daily bars",
		zap.String("ticker", ticker),
		zap.Int("bars", len(bars)),
		zap.Int("skipped", skipped))
	return bars, nil
}

// CompanyName returns the long (or short) name Yahoo reports for ticker.
func (c *Client) CompanyName(ctx context.Context, ticker string) (string, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")
	data, err := c.chart(ctx, ticker, params)
	if err != nil {
		return "", err
	}
	m := data.Chart.Result[0].Meta
	if m.LongName != "" {
		return m.LongName, nil
	}
	if m.ShortName != "" {
		return m.ShortName, nil
	}
	return "", fmt.Errorf("yahoo: no name for %s", ticker)
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
