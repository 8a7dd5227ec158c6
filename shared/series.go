package shared

import (
	"math"
	"time"
)

// PriceSeries represents an immutable ordered sequence of daily candlesticks for
// a fund, with an average true range series aligned 1:1 by index. ATR values are
// NaN for indexes before the smoothing period is satisfied.
type PriceSeries struct {
	Market    string
	Name      string
	Candles   []Candlestick
	ATR       []float64
	FetchedAt time.Time
}

// Closes returns the closing prices of the series in date order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for idx := range s.Candles {
		closes[idx] = s.Candles[idx].Close
	}

	return closes
}

// Dates returns the bar dates of the series in date order.
func (s *PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Candles))
	for idx := range s.Candles {
		dates[idx] = s.Candles[idx].Date
	}

	return dates
}

// CurrentPrice returns the most recent closing price of the series.
func (s *PriceSeries) CurrentPrice() float64 {
	if len(s.Candles) == 0 {
		return math.NaN()
	}

	return s.Candles[len(s.Candles)-1].Close
}

// CurrentATR returns the most recent average true range of the series. It is
// NaN when the series was too short for the smoothing period.
func (s *PriceSeries) CurrentATR() float64 {
	if len(s.ATR) == 0 {
		return math.NaN()
	}

	return s.ATR[len(s.ATR)-1]
}
