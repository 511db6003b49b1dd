// Package news searches the NYTimes article search API for coverage around a date.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bighogz/stock-extremes/internal/httpclient"
)

const (
	dateParam = "20060102"
	// WindowDays is how far past the period start articles are searched.
	WindowDays = 10
)

var (
	ErrDecode = errors.New("news: malformed response")
	ErrStatus = errors.New("news: unexpected status")
)

var tracer = otel.Tracer("github.com/bighogz/stock-extremes/internal/news")

type Article struct {
	Published time.Time `json:"published"`
	Headline  string    `json:"headline"`
	URL       string    `json:"url"`
}

// Result is the outcome of one date's search. Err is set instead of Articles on failure.
type Result struct {
	Date     time.Time `json:"date"`
	Articles []Article `json:"articles"`
	Err      error     `json:"-"`
}

type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Delay   time.Duration
	Logger  *zap.Logger
	Sleep   func(context.Context, time.Duration) error
}

func New(apiKey, baseURL string, delay time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: baseURL,
		HTTP:    httpclient.Default,
		Delay:   delay,
		Logger:  logger,
		Sleep:   sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type searchResponse struct {
	Response struct {
		Docs []struct {
			PubDate  string `json:"pub_date"`
			WebURL   string `json:"web_url"`
			Headline struct {
				Main string `json:"main"`
			} `json:"headline"`
		} `json:"docs"`
	} `json:"response"`
}

// Search queries for q between begin and end (inclusive days) and returns the
// articles oldest first.
func (c *Client) Search(ctx context.Context, q string, begin, end time.Time) ([]Article, error) {
	ctx, span := tracer.Start(ctx, "news.Search", trace.WithAttributes(
		attribute.String("query", q),
		attribute.String("begin_date", begin.Format(dateParam)),
	))
	defer span.End()

	arts, err := c.search(ctx, q, begin, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("articles", len(arts)))
	return arts, nil
}

func (c *Client) search(ctx context.Context, q string, begin, end time.Time) ([]Article, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("begin_date", begin.Format(dateParam))
	params.Set("end_date", end.Format(dateParam))
	params.Set("api-key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	client := c.HTTP
	if client == nil {
		client = httpclient.Default
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news fetch: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("news read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	var data searchResponse
	if err := json.Unmarshal(body, &data); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(string(body))
		if rerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if err := json.Unmarshal([]byte(repaired), &data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		c.Logger.Warn("news response repaired", zap.String("query", q))
	}

	arts := make([]Article, 0, len(data.Response.Docs))
	for _, d := range data.Response.Docs {
		pub, err := parsePubDate(d.PubDate)
		if err != nil {
			c.Logger.Debug("skipping article with bad pub_date", zap.String("pub_date", d.PubDate))
			continue
		}
		arts = append(arts, Article{
			Published: pub,
			Headline:  strings.TrimSpace(d.Headline.Main),
			URL:       d.WebURL,
		})
	}
	sort.SliceStable(arts, func(i, j int) bool { return arts[i].Published.Before(arts[j].Published) })
	return arts, nil
}

// Lookup searches name for every other date (indexes 0, 2, 4, ...), each over a
// WindowDays window starting at that date. Delay is waited before every request.
// Failures are kept per date and never stop the loop.
func (c *Client) Lookup(ctx context.Context, name string, dates []time.Time) []Result {
	wait := c.Sleep
	if wait == nil {
		wait = sleep
	}
	results := make([]Result, 0, (len(dates)+1)/2)
	for i := 0; i < len(dates); i += 2 {
		d := dates[i]
		res := Result{Date: d}
		if err := wait(ctx, c.Delay); err != nil {
			res.Err = err
			results = append(results, res)
			break
		}
		arts, err := c.Search(ctx, name, d, d.AddDate(0, 0, WindowDays))
		if err != nil {
			c.Logger.Warn("news lookup failed",
				zap.String("name", name),
				zap.String("date", d.Format("2006-01-02")),
				zap.Error(err))
			res.Err = err
		} else {
			res.Articles = arts
		}
		results = append(results, res)
	}
	return results
}

func parsePubDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339, "2006-01-02T15:04:05Z0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised pub_date %q", s)
}
