package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/qfan/etfscan/extremum"
	"github.com/qfan/etfscan/shared"
	"github.com/rs/zerolog"
)

// SeriesFetcher fetches a fund's daily price series with an aligned average
// true range series.
type SeriesFetcher func(ctx context.Context, instrument shared.Instrument, lookbackYears int, atrPeriod int) (*shared.PriceSeries, error)

// ScannerConfig represents the configuration for the scanner.
type ScannerConfig struct {
	// FetchSeries fetches the price series for a fund.
	FetchSeries SeriesFetcher
	// SessionLog is the bounded diagnostic log for the scan session.
	SessionLog *shared.SessionLog
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ScannerConfig) Validate() error {
	var errs error

	if cfg.FetchSeries == nil {
		errs = errors.Join(errs, fmt.Errorf("series fetcher cannot be nil"))
	}
	if cfg.SessionLog == nil {
		errs = errors.Join(errs, fmt.Errorf("session log cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// BatchResult represents the outcome of a scan run over an instrument set.
type BatchResult struct {
	// Set is the name of the scanned instrument set.
	Set string
	// Findings are all qualifying proximity findings across the set.
	Findings []shared.ProximityFinding
	// Skips are the funds excluded from the run with reasons.
	Skips []shared.SkipRecord
	// Attempted is the total number of funds processed.
	Attempted int
	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Scanner runs batch extremum-proximity scans over instrument sets. Funds are
// processed sequentially in set order, a failure for one fund never aborts
// the batch.
type Scanner struct {
	cfg *ScannerConfig
}

// NewScanner initializes a new scanner.
func NewScanner(cfg *ScannerConfig) (*Scanner, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating scanner config: %w", err)
	}

	return &Scanner{cfg: cfg}, nil
}

// scanInstrument runs the fetch, locate and evaluate stages for one fund.
func (s *Scanner) scanInstrument(ctx context.Context, instrument shared.Instrument, params *Params) ([]shared.ProximityFinding, *shared.SkipRecord) {
	s.cfg.SessionLog.Logf("fetching %d years of history for %s (%s), atr(%d)",
		params.LookbackYears, instrument.Name, instrument.Market, params.ATRPeriod)

	series, err := s.cfg.FetchSeries(ctx, instrument, params.LookbackYears, params.ATRPeriod)
	if err != nil {
		return nil, &shared.SkipRecord{
			Market: instrument.Market,
			Name:   instrument.Name,
			Stage:  shared.StageFetch,
			Reason: err.Error(),
		}
	}

	s.cfg.SessionLog.Logf("locating extrema for %s with separation %d, prominence factor %v",
		instrument.Market, params.MinSeparation, params.ProminenceFactor)

	maxima, minima, err := extremum.Locate(series, params.MinSeparation, params.ProminenceFactor)
	if err != nil {
		return nil, &shared.SkipRecord{
			Market: instrument.Market,
			Name:   instrument.Name,
			Stage:  shared.StageLocate,
			Reason: err.Error(),
		}
	}

	extrema := make([]shared.Extremum, 0, len(maxima)+len(minima))
	extrema = append(extrema, maxima...)
	extrema = append(extrema, minima...)

	findings, err := Evaluate(instrument, series.CurrentPrice(), series.CurrentATR(),
		extrema, params.ATRMultiplier, params.Maxima, params.Minima)
	if err != nil {
		return nil, &shared.SkipRecord{
			Market: instrument.Market,
			Name:   instrument.Name,
			Stage:  shared.StageEvaluate,
			Reason: err.Error(),
		}
	}

	return findings, nil
}

// RunBatch scans every fund of the provided set with the provided parameters.
// Parameter validation failures surface immediately before any fetch, a
// per-fund failure is recorded as a skip and the batch continues. The run can
// be abandoned between funds through the provided context.
func (s *Scanner) RunBatch(ctx context.Context, set *shared.InstrumentSet, params *Params) (*BatchResult, error) {
	err := params.Validate()
	if err != nil {
		return nil, err
	}
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("%w: instrument set cannot be empty", shared.ErrInvalidParameters)
	}

	result := &BatchResult{
		Set:       set.Name,
		Findings:  make([]shared.ProximityFinding, 0),
		Skips:     make([]shared.SkipRecord, 0),
		StartedAt: time.Now(),
	}

	for _, instrument := range set.Instruments {
		// Abandonment is coarse grained, checked once per fund.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("scan run abandoned: %w", ctx.Err())
		}

		result.Attempted++

		findings, skip := s.scanInstrument(ctx, instrument, params)
		if skip != nil {
			s.cfg.Logger.Warn().Msgf("skipping %s (%s) at %s stage: %s",
				skip.Name, skip.Market, skip.Stage.String(), skip.Reason)
			s.cfg.SessionLog.Logf("skipped %s at %s stage: %s", skip.Market, skip.Stage.String(), skip.Reason)
			result.Skips = append(result.Skips, *skip)
			continue
		}

		result.Findings = append(result.Findings, findings...)
	}

	result.FinishedAt = time.Now()

	s.cfg.Logger.Info().Msgf("scan of %s done: %d funds attempted, %d skipped, %d findings",
		result.Set, result.Attempted, len(result.Skips), len(result.Findings))

	return result, nil
}

// PartitionByKind splits the provided findings into maxima and minima matches,
// preserving their order. It is a pure projection over the finding list.
func PartitionByKind(findings []shared.ProximityFinding) ([]shared.ProximityFinding, []shared.ProximityFinding) {
	maxima := make([]shared.ProximityFinding, 0, len(findings))
	minima := make([]shared.ProximityFinding, 0, len(findings))

	for idx := range findings {
		switch findings[idx].Extremum.Kind {
		case shared.Maximum:
			maxima = append(maxima, findings[idx])
		case shared.Minimum:
			minima = append(minima, findings[idx])
		}
	}

	return maxima, minima
}

// DistinctInstruments returns the sorted display labels of funds with at least
// one finding. It is a pure projection over the finding list.
func DistinctInstruments(findings []shared.ProximityFinding) []string {
	seen := make(map[string]bool)
	labels := make([]string, 0, len(findings))

	for idx := range findings {
		label := fmt.Sprintf("%s (%s)", findings[idx].Name, findings[idx].Market)
		if seen[label] {
			continue
		}

		seen[label] = true
		labels = append(labels, label)
	}

	sort.Strings(labels)
	return labels
}
