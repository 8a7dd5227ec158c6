package scan

import (
	"fmt"
	"math"

	"github.com/qfan/etfscan/shared"
)

// Evaluate reports which of the provided extrema the current price sits within
// a volatility-scaled band of. The band around each extremum is closed on both
// ends, every qualifying extremum of a selected kind yields a finding. It is a
// pure function, identical inputs always give identical output.
func Evaluate(instrument shared.Instrument, currentPrice float64, currentATR float64,
	extrema []shared.Extremum, multiplier float64, wantMaxima bool, wantMinima bool) ([]shared.ProximityFinding, error) {
	if math.IsNaN(currentPrice) || currentPrice <= 0 {
		return nil, fmt.Errorf("%w: current price %v for %s is not usable",
			shared.ErrInsufficientData, currentPrice, instrument.Market)
	}
	if math.IsNaN(currentATR) || currentATR <= 0 {
		return nil, fmt.Errorf("%w: current average true range %v for %s is not usable",
			shared.ErrUndefinedVolatility, currentATR, instrument.Market)
	}

	findings := make([]shared.ProximityFinding, 0)
	band := multiplier * currentATR

	for idx := range extrema {
		ext := extrema[idx]
		switch ext.Kind {
		case shared.Maximum:
			if !wantMaxima {
				continue
			}
		case shared.Minimum:
			if !wantMinima {
				continue
			}
		default:
			continue
		}

		if currentPrice < ext.Price-band || currentPrice > ext.Price+band {
			continue
		}

		findings = append(findings, shared.ProximityFinding{
			Market:       instrument.Market,
			Name:         instrument.Name,
			CurrentPrice: currentPrice,
			CurrentATR:   currentATR,
			Extremum:     ext,
			DistanceATR:  (currentPrice - ext.Price) / currentATR,
			DistancePct:  (ext.Price - currentPrice) / currentPrice * 100,
		})
	}

	return findings, nil
}
