// Package scan evaluates fund price proximity to historical extrema and
// orchestrates batch scan runs over instrument sets.
package scan

import (
	"errors"
	"fmt"

	"github.com/qfan/etfscan/shared"
)

// Params represents the analysis parameters for a scan run. All values are
// supplied by the caller, the pipeline bakes in no implicit defaults.
type Params struct {
	// LookbackYears is the number of years of daily history to analyze.
	LookbackYears int
	// ATRPeriod is the smoothing period for the average true range.
	ATRPeriod int
	// ATRMultiplier scales the proximity band around each extremum.
	ATRMultiplier float64
	// MinSeparation is the minimum number of bars between reported extrema of
	// the same kind.
	MinSeparation int
	// ProminenceFactor scales the closing price standard deviation into the
	// required extremum prominence.
	ProminenceFactor float64
	// Maxima selects proximity analysis against local maxima.
	Maxima bool
	// Minima selects proximity analysis against local minima.
	Minima bool
}

// Validate asserts the params sane inputs.
func (p *Params) Validate() error {
	var errs error

	if p.LookbackYears <= 0 {
		errs = errors.Join(errs, fmt.Errorf("lookback years must be positive, got %d", p.LookbackYears))
	}
	if p.ATRPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("average true range period must be positive, got %d", p.ATRPeriod))
	}
	if p.ATRMultiplier <= 0 {
		errs = errors.Join(errs, fmt.Errorf("average true range multiplier must be positive, got %v", p.ATRMultiplier))
	}
	if p.MinSeparation <= 0 {
		errs = errors.Join(errs, fmt.Errorf("minimum separation must be positive, got %d", p.MinSeparation))
	}
	if p.ProminenceFactor <= 0 {
		errs = errors.Join(errs, fmt.Errorf("prominence factor must be positive, got %v", p.ProminenceFactor))
	}
	if !p.Maxima && !p.Minima {
		errs = errors.Join(errs, fmt.Errorf("at least one extremum kind must be selected"))
	}

	if errs != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidParameters, errs)
	}

	return nil
}
