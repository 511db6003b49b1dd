package sp500

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const constituents = `Symbol,Security,GICS Sector,GICS Sub-Industry
AAPL,Apple Inc.,Information Technology,Technology Hardware
BRK.B,Berkshire Hathaway,Financials,Multi-Sector Holdings
AAPL,Apple duplicate,Information Technology,
`

func newDirectory(t *testing.T, hits *int) *Directory {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Write([]byte(constituents))
	}))
	t.Cleanup(srv.Close)
	return &Directory{URL: srv.URL, HTTP: srv.Client()}
}

func TestLoad(t *testing.T) {
	hits := 0
	d := newDirectory(t, &hits)
	companies, err := Load(context.Background(), d.HTTP, d.URL)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(companies) != 2 {
		t.Fatalf("got %d companies, want 2 (duplicate dropped)", len(companies))
	}
	if companies[0].Name != "Apple Inc." || companies[0].Symbol != "AAPL" {
		t.Errorf("companies[0] = %+v", companies[0])
	}
}

func TestCompanyName(t *testing.T) {
	hits := 0
	d := newDirectory(t, &hits)
	ctx := context.Background()

	name, err := d.CompanyName(ctx, "brk-b")
	if err != nil || name != "Berkshire Hathaway" {
		t.Fatalf("CompanyName(brk-b) = %q, %v", name, err)
	}
	name, err = d.CompanyName(ctx, "AAPL")
	if err != nil || name != "Apple Inc." {
		t.Fatalf("CompanyName(AAPL) = %q, %v", name, err)
	}
	if _, err := d.CompanyName(ctx, "ZZZZ"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("CompanyName(ZZZZ) err = %v, want ErrUnknownSymbol", err)
	}
	if hits != 1 {
		t.Errorf("constituents fetched %d times, want 1", hits)
	}
}

func TestCompanyNameRetriesAfterFailedLoad(t *testing.T) {
	hits := 0
	d := newDirectory(t, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.CompanyName(ctx, "AAPL"); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled lookup err = %v, want context.Canceled", err)
	}

	name, err := d.CompanyName(context.Background(), "AAPL")
	if err != nil || name != "Apple Inc." {
		t.Fatalf("CompanyName after failed load = %q, %v", name, err)
	}
	if hits != 1 {
		t.Errorf("constituents fetched %d times, want 1", hits)
	}
}
