package news

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var ErrNameLookup = errors.New("news: could not resolve company name")

// NameSource maps a ticker to a company name.
type NameSource interface {
	CompanyName(ctx context.Context, ticker string) (string, error)
}

// Names tries each source in order.
type Names struct {
	Sources []NameSource
	Logger  *zap.Logger
}

func (n *Names) Resolve(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	var errs []error
	for _, s := range n.Sources {
		if s == nil {
			continue
		}
		name, err := s.CompanyName(ctx, ticker)
		if err == nil && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name), nil
		}
		if err != nil {
			errs = append(errs, err)
			if n.Logger != nil {
				n.Logger.Debug("name source failed", zap.String("ticker", ticker), zap.Error(err))
			}
		}
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNameLookup, ticker)
	}
	return "", fmt.Errorf("%w: %s: %w", ErrNameLookup, ticker, errors.Join(errs...))
}
