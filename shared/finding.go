package shared

// Stage represents the scan pipeline stage a fund was skipped at.
type Stage int

const (
	StageFetch Stage = iota
	StageLocate
	StageEvaluate
)

// String stringifies the provided stage.
func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "fetch"
	case StageLocate:
		return "locate"
	case StageEvaluate:
		return "evaluate"
	default:
		return "unknown"
	}
}

// ProximityFinding represents a fund whose current price sits within a
// volatility-scaled band of one of its historical extrema. It carries plain
// structured values only, formatting is left to consumers.
type ProximityFinding struct {
	Market       string
	Name         string
	CurrentPrice float64
	CurrentATR   float64
	Extremum     Extremum

	// DistanceATR is the signed distance from the extremum in ATR units,
	// positive when the current price is above it.
	DistanceATR float64
	// DistancePct is the signed distance as a percentage of the current price,
	// positive when the current price is below the extremum level.
	DistancePct float64
}

// SkipRecord represents a fund excluded from a scan run with the stage and
// reason for the exclusion.
type SkipRecord struct {
	Market string
	Name   string
	Stage  Stage
	Reason string
}
