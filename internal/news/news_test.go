package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const docsBody = `{"status":"OK","response":{"docs":[
{"web_url":"https://nyt.example/b","pub_date":"2020-03-18T09:00:00+0000","headline":{"main":"Second"}},
{"web_url":"https://nyt.example/a","pub_date":"2020-03-16T12:30:00+0000","headline":{"main":" First "}},
{"web_url":"https://nyt.example/bad","pub_date":"whenever","headline":{"main":"Undated"}}
]}}`

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New("secret", srv.URL, time.Second, nil)
	c.HTTP = srv.Client()
	var waits []time.Duration
	c.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func TestSearch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "Apple Inc." {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("begin_date") != "20200316" || q.Get("end_date") != "20200326" {
			t.Errorf("dates = %s..%s", q.Get("begin_date"), q.Get("end_date"))
		}
		if q.Get("api-key") != "secret" {
			t.Errorf("api-key = %q", q.Get("api-key"))
		}
		w.Write([]byte(docsBody))
	})
	arts, err := c.Search(context.Background(), "Apple Inc.", day("2020-03-16"), day("2020-03-26"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("got %d articles, want 2", len(arts))
	}
	if arts[0].Headline != "First" || arts[1].Headline != "Second" {
		t.Errorf("articles not sorted by publication date: %+v", arts)
	}
	if arts[0].URL != "https://nyt.example/a" {
		t.Errorf("url = %q", arts[0].URL)
	}
}

func TestSearchRepairsTruncatedJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"docs":[{"web_url":"u","pub_date":"2020-03-16T12:30:00+0000","headline":{"main":"Cut"}}`))
	})
	arts, err := c.Search(context.Background(), "X", day("2020-03-16"), day("2020-03-26"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(arts) != 1 || arts[0].Headline != "Cut" {
		t.Errorf("arts = %+v", arts)
	}
}

func TestSearchDecodeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1, 2, 3]`))
	})
	_, err := c.Search(context.Background(), "X", day("2020-03-16"), day("2020-03-26"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestSearchStatusError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Search(context.Background(), "X", day("2020-03-16"), day("2020-03-26"))
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
}

func TestLookupEveryOtherDateAndIsolatesFailures(t *testing.T) {
	var calls int32
	var begins []string
	c, waits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		begins = append(begins, r.URL.Query().Get("begin_date"))
		if n == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(docsBody))
	})
	dates := []time.Time{
		day("2020-03-16"), day("2008-10-06"), day("2001-09-17"),
		day("2002-07-01"), day("2015-08-20"),
	}
	results := c.Lookup(context.Background(), "Apple Inc.", dates)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	want := []string{"20200316", "20010917", "20150820"}
	for i, w := range want {
		if begins[i] != w {
			t.Errorf("request %d begin_date = %s, want %s", i, begins[i], w)
		}
	}
	if results[0].Err != nil || len(results[0].Articles) != 2 {
		t.Errorf("result 0 = %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("result 1 should carry the server error")
	}
	if results[2].Err != nil || len(results[2].Articles) != 2 {
		t.Errorf("result 2 = %+v, loop should continue after a failure", results[2])
	}
	if len(*waits) != 3 {
		t.Fatalf("waited %d times, want 3", len(*waits))
	}
	for _, d := range *waits {
		if d != time.Second {
			t.Errorf("wait = %v, want 1s", d)
		}
	}
}

func TestLookupStopsOnCancel(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected after cancel")
	})
	c.Sleep = sleep
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := c.Lookup(ctx, "X", []time.Time{day("2020-01-01"), day("2020-02-01"), day("2020-03-01")})
	if len(results) != 1 || !errors.Is(results[0].Err, context.Canceled) {
		t.Fatalf("results = %+v", results)
	}
}

type fixedName struct {
	name string
	err  error
}

func (f fixedName) CompanyName(ctx context.Context, ticker string) (string, error) {
	return f.name, f.err
}

func TestNamesResolve(t *testing.T) {
	n := &Names{Sources: []NameSource{
		fixedName{err: errors.New("not in index")},
		fixedName{name: "Tesla, Inc."},
	}}
	name, err := n.Resolve(context.Background(), "tsla")
	if err != nil || name != "Tesla, Inc." {
		t.Fatalf("Resolve = %q, %v", name, err)
	}

	n = &Names{Sources: []NameSource{fixedName{err: errors.New("down")}}}
	if _, err := n.Resolve(context.Background(), "tsla"); !errors.Is(err, ErrNameLookup) {
		t.Fatalf("err = %v, want ErrNameLookup", err)
	}
}
