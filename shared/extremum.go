package shared

import "time"

// ExtremumKind represents the type of a located price extremum.
type ExtremumKind int

const (
	Maximum ExtremumKind = iota
	Minimum
)

// String stringifies the provided extremum kind.
func (k ExtremumKind) String() string {
	switch k {
	case Maximum:
		return "maximum"
	case Minimum:
		return "minimum"
	default:
		return "unknown"
	}
}

// Extremum represents a local maximum or minimum of a fund's closing price series.
type Extremum struct {
	Date  time.Time
	Price float64
	Kind  ExtremumKind
}
