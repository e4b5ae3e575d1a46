package domain

import (
	"context"
	"time"
)

// Candle is one day of price history.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceFeed supplies daily price history for the quant analysts.
// Implementations may be absent; a nil feed downgrades the technical and
// risk analysts to neutral verdicts.
type PriceFeed interface {
	Daily(ctx context.Context, subject string, days int) ([]Candle, error)
}
