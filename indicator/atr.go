// Package indicator implements the volatility indicators used by the scan
// pipeline.
package indicator

import (
	"fmt"
	"math"

	"github.com/qfan/etfscan/shared"
)

// TrueRange returns the true range of the provided candlestick given the
// previous close. It is the largest of the intraday range and the two gap
// ranges against the previous close.
func TrueRange(candle *shared.Candlestick, prevClose float64) float64 {
	intraday := candle.High - candle.Low
	highGap := math.Abs(candle.High - prevClose)
	lowGap := math.Abs(candle.Low - prevClose)

	return math.Max(intraday, math.Max(highGap, lowGap))
}

// ATRSeries computes the Wilder-smoothed average true range of the provided
// candlesticks, aligned 1:1 with them by index. The seed is the simple mean of
// the first period true ranges, every value before index period is NaN. When
// the series is not longer than the period every value is NaN.
func ATRSeries(candles []shared.Candlestick, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("average true range period must be positive, got %d", period)
	}

	atr := make([]float64, len(candles))
	for idx := range atr {
		atr[idx] = math.NaN()
	}

	if len(candles) <= period {
		return atr, nil
	}

	// True range needs a previous close, so the series starts at index one.
	var trSum float64
	for idx := 1; idx <= period; idx++ {
		trSum += TrueRange(&candles[idx], candles[idx-1].Close)
	}

	atr[period] = trSum / float64(period)
	for idx := period + 1; idx < len(candles); idx++ {
		tr := TrueRange(&candles[idx], candles[idx-1].Close)
		atr[idx] = (atr[idx-1]*float64(period-1) + tr) / float64(period)
	}

	return atr, nil
}
