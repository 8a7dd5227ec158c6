package shared

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
)

// BarFetcher defines the requirements for fetching daily fund market data.
type BarFetcher interface {
	// FetchDailyBars fetches daily candlestick data for the provided fund code
	// and date range.
	FetchDailyBars(ctx context.Context, market string, start time.Time, end time.Time) ([]gjson.Result, error)
}
