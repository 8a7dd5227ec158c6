package shared

import "errors"

var (
	// ErrInsufficientData indicates a fetch returned no usable bars or a series
	// is too short for the requested analysis window.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrFetchFailed indicates the upstream market data source errored, timed out
	// or returned data that could not be coerced.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrInvalidParameters indicates the caller supplied out-of-range analysis parameters.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrUndefinedVolatility indicates the current average true range is unavailable
	// or non-positive at evaluation time.
	ErrUndefinedVolatility = errors.New("undefined volatility")
)
