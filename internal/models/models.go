package models

import "time"

// PricePoint is one trading day of OHLC data.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ChangeRecord is the forward change from Date to the close N trading rows later.
// EndClose and PctChange are nil when no row exists N rows ahead.
type ChangeRecord struct {
	Date       time.Time `json:"date"`
	StartClose float64   `json:"start_close"`
	EndClose   *float64  `json:"end_close,omitempty"`
	PctChange  *float64  `json:"pct_change,omitempty"`
}

// HasChange reports whether the record has a defined end point.
func (r ChangeRecord) HasChange() bool {
	return r.PctChange != nil
}

type SelectedPeriod struct {
	Rank int `json:"rank"`
	ChangeRecord
}
