// Package kline assembles chart-ready views of a fund's price history. It
// produces plain data records only, rendering is left to callers.
package kline

import (
	"errors"
	"math"
	"time"

	"github.com/qfan/etfscan/extremum"
	"github.com/qfan/etfscan/scan"
	"github.com/qfan/etfscan/shared"
)

const (
	// shortMAWindow is the window of the short moving average overlay.
	shortMAWindow = 5
	// longMAWindow is the window of the long moving average overlay.
	longMAWindow = 20
)

// LongStop represents a volatility-scaled stop reference below the latest close.
type LongStop struct {
	// Stop is the stop price, the latest close minus the scaled ATR.
	Stop float64
	// StopPct is the stop distance as a percentage of the latest close.
	StopPct float64
}

// View represents the assembled chart data for a fund.
type View struct {
	// Market is the fund code on the exchange.
	Market string
	// Name is the display name of the fund.
	Name string
	// Candles are the fund's daily bars, oldest first.
	Candles []shared.Candlestick
	// ShortMA is the short rolling close mean, NaN before the window fills.
	ShortMA []float64
	// LongMA is the long rolling close mean, NaN before the window fills.
	LongMA []float64
	// MaximaIndexes are bar indexes of located historical maxima.
	MaximaIndexes []int
	// MinimaIndexes are bar indexes of located historical minima.
	MinimaIndexes []int
	// Stop is the ATR long-stop reference, nil when volatility is undefined.
	Stop *LongStop
}

// rollingMean computes the rolling mean of the provided values over the given
// window. Entries before the window fills are NaN.
func rollingMean(values []float64, window int) []float64 {
	means := make([]float64, len(values))
	sum := float64(0)
	for idx := range values {
		sum += values[idx]
		if idx >= window {
			sum -= values[idx-window]
		}
		if idx < window-1 {
			means[idx] = math.NaN()
			continue
		}
		means[idx] = sum / float64(window)
	}

	return means
}

// markerIndexes maps located extrema back to their bar indexes.
func markerIndexes(candles []shared.Candlestick, extrema []shared.Extremum) []int {
	byDate := make(map[time.Time]int, len(candles))
	for idx := range candles {
		byDate[candles[idx].Date] = idx
	}

	indexes := make([]int, 0, len(extrema))
	for idx := range extrema {
		barIdx, ok := byDate[extrema[idx].Date]
		if !ok {
			continue
		}
		indexes = append(indexes, barIdx)
	}

	return indexes
}

// BuildView assembles the chart view for the provided series. Series too short
// for extremum location still yield bars and overlays, just without markers.
func BuildView(series *shared.PriceSeries, params *scan.Params) (*View, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	view := &View{
		Market:  series.Market,
		Name:    series.Name,
		Candles: series.Candles,
		ShortMA: rollingMean(series.Closes(), shortMAWindow),
		LongMA:  rollingMean(series.Closes(), longMAWindow),
	}

	maxima, minima, err := extremum.Locate(series, params.MinSeparation, params.ProminenceFactor)
	switch {
	case errors.Is(err, shared.ErrInsufficientData):
		// Not enough history for markers, the bars and overlays stand alone.
	case err != nil:
		return nil, err
	default:
		view.MaximaIndexes = markerIndexes(series.Candles, maxima)
		view.MinimaIndexes = markerIndexes(series.Candles, minima)
	}

	price := series.CurrentPrice()
	atr := series.CurrentATR()
	if !math.IsNaN(atr) && atr > 0 && !math.IsNaN(price) && price > 0 {
		stop := price - params.ATRMultiplier*atr
		view.Stop = &LongStop{
			Stop:    stop,
			StopPct: (price - stop) / price * 100,
		}
	}

	return view, nil
}
