// Package cache stores one CSV file of daily prices per ticker.
package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bighogz/stock-extremes/internal/models"
)

const maxAgeHours = 24

var (
	ErrMissingColumn = errors.New("cache: required column missing")
	ErrMalformed     = errors.New("cache: malformed row")
)

var header = []string{"", "Date", "Open", "High", "Low", "Close", "Volume"}

// Store reads and writes <Dir>/<TICKER>.csv.
type Store struct {
	Dir    string
	MaxAge time.Duration
	Now    func() time.Time
}

func New(dir string, maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = maxAgeHours * time.Hour
	}
	return &Store{Dir: dir, MaxAge: maxAge, Now: time.Now}
}

func (s *Store) Path(ticker string) string {
	name := strings.ToUpper(strings.TrimSpace(ticker))
	name = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
	return filepath.Join(s.Dir, name+".csv")
}

// ModTime returns the cache file's mtime, or nil if it doesn't exist.
func (s *Store) ModTime(ticker string) *time.Time {
	info, err := os.Stat(s.Path(ticker))
	if err != nil {
		return nil
	}
	t := info.ModTime()
	return &t
}

// Fresh reports whether the cache exists and is no older than MaxAge.
func (s *Store) Fresh(ticker string) bool {
	mt := s.ModTime(ticker)
	if mt == nil {
		return false
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().Sub(*mt) <= s.MaxAge
}

// Read parses the cached series. Columns are located by header name;
// the first column is a row index and is ignored.
func (s *Store) Read(ticker string) ([]models.PricePoint, error) {
	f, err := os.Open(s.Path(ticker))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cache read %s: %w", ticker, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateIdx, ok := idx["date"]
	if !ok {
		return nil, fmt.Errorf("%w: Date", ErrMissingColumn)
	}
	closeIdx, ok := idx["close"]
	if !ok {
		return nil, fmt.Errorf("%w: Close", ErrMissingColumn)
	}

	out := make([]models.PricePoint, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if dateIdx >= len(row) || closeIdx >= len(row) {
			return nil, fmt.Errorf("%w: line %d", ErrMalformed, n+2)
		}
		d, err := parseDate(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, n+2, err)
		}
		c, err := strconv.ParseFloat(strings.TrimSpace(row[closeIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, n+2, err)
		}
		p := models.PricePoint{Date: d, Close: c}
		p.Open = optFloat(row, idx, "open")
		p.High = optFloat(row, idx, "high")
		p.Low = optFloat(row, idx, "low")
		p.Volume = optFloat(row, idx, "volume")
		out = append(out, p)
	}
	return out, nil
}

// Write overwrites the ticker's cache file.
func (s *Store) Write(ticker string, points []models.PricePoint) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	path := s.Path(ticker)
	f, err := os.CreateTemp(s.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	w := csv.NewWriter(f)
	w.Write(header)
	for i, p := range points {
		w.Write([]string{
			strconv.Itoa(i),
			p.Date.Format("2006-01-02"),
			formatFloat(p.Open),
			formatFloat(p.High),
			formatFloat(p.Low),
			formatFloat(p.Close),
			formatFloat(p.Volume),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	return time.Parse("2006-01-02", s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optFloat(row []string, idx map[string]int, col string) float64 {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return 0
	}
	f, _ := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	return f
}
