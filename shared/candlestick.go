package shared

import (
	"time"
)

const (
	// DateLayout is the format layout for parsing daily bar dates.
	DateLayout = "2006-01-02"
	// RequestDateLayout is the format layout for upstream date range parameters.
	RequestDateLayout = "20060102"
	// ShanghaiLocation is the exchange timezone for the tracked funds.
	ShanghaiLocation = "Asia/Shanghai"
)

// Candlestick represents a unit daily candlestick for a fund.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata.
	Market string
}

// ShanghaiTime returns the current time in shanghai (exchange local time).
func ShanghaiTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(ShanghaiLocation)
	if err != nil {
		return time.Time{}, nil, err
	}

	now := time.Now().In(loc)
	return now, loc, nil
}
