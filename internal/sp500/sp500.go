package sp500

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/bighogz/stock-extremes/internal/httpclient"
)

const csvURL = "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/master/data/constituents.csv"

var ErrUnknownSymbol = errors.New("sp500: symbol not in index")

type Company struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Directory lazily loads the constituents list and answers name lookups.
// A failed load is retried on the next lookup.
type Directory struct {
	URL  string
	HTTP *http.Client

	mu       sync.Mutex
	loaded   bool
	bySymbol map[string]Company
}

func NewDirectory() *Directory {
	return &Directory{URL: csvURL, HTTP: httpclient.Default}
}

func Load(ctx context.Context, client *http.Client, u string) ([]Company, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = httpclient.Default
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sp500 fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sp500 fetch: status %d", resp.StatusCode)
	}
	reader := csv.NewReader(resp.Body)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sp500 parse: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sp500 parse: no rows")
	}
	headers := rows[0]
	symIdx, nameIdx := -1, -1
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "symbol":
			symIdx = i
		case "security":
			nameIdx = i
		}
	}
	if symIdx < 0 {
		return nil, fmt.Errorf("sp500 parse: no Symbol column")
	}
	seen := make(map[string]bool)
	out := make([]Company, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if symIdx >= len(row) {
			continue
		}
		sym := strings.TrimSpace(row[symIdx])
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		c := Company{Symbol: sym}
		if nameIdx >= 0 && nameIdx < len(row) {
			c.Name = strings.TrimSpace(row[nameIdx])
		}
		out = append(out, c)
	}
	return out, nil
}

// CompanyName returns the Security name listed for ticker. BRK-B and BRK.B
// both match.
func (d *Directory) CompanyName(ctx context.Context, ticker string) (string, error) {
	if err := d.load(ctx); err != nil {
		return "", err
	}
	d.mu.Lock()
	c, ok := d.bySymbol[normalize(ticker)]
	d.mu.Unlock()
	if !ok || c.Name == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownSymbol, ticker)
	}
	return c.Name, nil
}

func (d *Directory) load(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return nil
	}
	companies, err := Load(ctx, d.HTTP, d.URL)
	if err != nil {
		return err
	}
	d.bySymbol = make(map[string]Company, len(companies))
	for _, c := range companies {
		d.bySymbol[normalize(c.Symbol)] = c
	}
	d.loaded = true
	return nil
}

func normalize(sym string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(sym)), "-", ".")
}
