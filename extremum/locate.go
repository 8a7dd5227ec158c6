package extremum

import (
	"fmt"
	"math"

	"github.com/qfan/etfscan/shared"
)

const (
	// prominenceFloor is the minimum effective prominence in price units,
	// applied when a series is numerically flat.
	prominenceFloor = 0.01
	// negligibleStdDev is the standard deviation below which a series is
	// considered flat.
	negligibleStdDev = 1e-5
)

// stdDev returns the sample standard deviation of the provided series.
func stdDev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}

	var sum float64
	for idx := range series {
		sum += series[idx]
	}
	mean := sum / float64(len(series))

	var sqSum float64
	for idx := range series {
		diff := series[idx] - mean
		sqSum += diff * diff
	}

	return math.Sqrt(sqSum / float64(len(series)-1))
}

// Locate identifies the local maxima and minima of the provided series'
// closing prices. The effective prominence is the provided factor scaled by
// the standard deviation of the closes, floored to a small positive constant
// when the series is flat. Both outputs are in ascending date order.
func Locate(series *shared.PriceSeries, minSeparation int, prominenceFactor float64) ([]shared.Extremum, []shared.Extremum, error) {
	if minSeparation <= 0 {
		return nil, nil, fmt.Errorf("%w: minimum separation must be positive, got %d",
			shared.ErrInvalidParameters, minSeparation)
	}
	if prominenceFactor <= 0 {
		return nil, nil, fmt.Errorf("%w: prominence factor must be positive, got %v",
			shared.ErrInvalidParameters, prominenceFactor)
	}

	closes := series.Closes()
	if len(closes) < 2*minSeparation {
		return nil, nil, fmt.Errorf("%w: %d bars is too short for separation %d",
			shared.ErrInsufficientData, len(closes), minSeparation)
	}

	effectiveProminence := prominenceFloor
	if sd := stdDev(closes); sd > negligibleStdDev {
		effectiveProminence = sd * prominenceFactor
	}

	maxLocs, err := FindPeaks(closes, minSeparation, effectiveProminence)
	if err != nil {
		return nil, nil, fmt.Errorf("finding maxima for %s: %w", series.Market, err)
	}

	negated := make([]float64, len(closes))
	for idx := range closes {
		negated[idx] = -closes[idx]
	}

	minLocs, err := FindPeaks(negated, minSeparation, effectiveProminence)
	if err != nil {
		return nil, nil, fmt.Errorf("finding minima for %s: %w", series.Market, err)
	}

	dates := series.Dates()
	maxima := make([]shared.Extremum, len(maxLocs))
	for idx, loc := range maxLocs {
		maxima[idx] = shared.Extremum{Date: dates[loc], Price: closes[loc], Kind: shared.Maximum}
	}

	minima := make([]shared.Extremum, len(minLocs))
	for idx, loc := range minLocs {
		minima[idx] = shared.Extremum{Date: dates[loc], Price: closes[loc], Kind: shared.Minimum}
	}

	return maxima, minima, nil
}
