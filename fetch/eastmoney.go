// Package fetch retrieves daily fund market data from the EastMoney public
// API and derives the price series consumed by the scan pipeline.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qfan/etfscan/shared"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the EastMoney historical kline API base url.
	BaseURL = "https://push2his.eastmoney.com"
	// klinePath is the fund kline endpoint path.
	klinePath = "/api/qt/stock/kline/get"
	// klineFields selects the kline columns: date, open, close, high, low,
	// volume, turnover. The endpoint returns them as comma separated strings
	// in exactly this order.
	klineFields = "f51,f52,f53,f54,f55,f56,f57"
	// dailyPeriod is the kline period parameter for daily bars.
	dailyPeriod = "101"
	// forwardAdjust is the kline adjust parameter for forward-adjusted prices.
	forwardAdjust = "1"
)

// EastMoneyConfig represents the configuration for the EastMoney client.
type EastMoneyConfig struct {
	// BaseURL is the API base url.
	BaseURL string
}

// EastMoneyClient represents the EastMoney market data API client. It is safe
// for concurrent use, overlapping scan runs share one client.
type EastMoneyClient struct {
	cfg   *EastMoneyConfig
	httpc http.Client
}

// Ensure the EastMoney client implements the BarFetcher interface.
var _ shared.BarFetcher = (*EastMoneyClient)(nil)

// NewEastMoneyClient instantiates a new EastMoney client.
func NewEastMoneyClient(cfg *EastMoneyConfig) (*EastMoneyClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url cannot be an empty string")
	}

	return &EastMoneyClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 10},
	}, nil
}

// formURL creates full urls including parameters for the api. The builder is
// per call, concurrent requests never share state.
func (c *EastMoneyClient) formURL(path string, params string) string {
	var buf strings.Builder
	buf.WriteString(c.cfg.BaseURL)
	buf.WriteString(path)
	buf.WriteString("?")
	buf.WriteString(params)

	return buf.String()
}

// secID derives the exchange-qualified security id for the provided fund code.
// Shanghai-listed codes start with 5 or 6, everything else trades in Shenzhen.
func secID(market string) string {
	if strings.HasPrefix(market, "5") || strings.HasPrefix(market, "6") {
		return "1." + market
	}

	return "0." + market
}

// FetchDailyBars fetches forward-adjusted daily candlestick data for the
// provided fund code and date range.
func (c *EastMoneyClient) FetchDailyBars(ctx context.Context, market string, start time.Time, end time.Time) ([]gjson.Result, error) {
	params := url.Values{}
	params.Add("secid", secID(market))
	params.Add("fields1", "f1,f2,f3,f4,f5,f6")
	params.Add("fields2", klineFields)
	params.Add("klt", dailyPeriod)
	params.Add("fqt", forwardAdjust)
	params.Add("beg", start.Format(shared.RequestDateLayout))
	params.Add("end", end.Format(shared.RequestDateLayout))

	formedURL := c.formURL(klinePath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating kline request for %s: %w", market, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching daily bars for %s: %w", market, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching daily bars for %s: status %d", market, resp.StatusCode)
	}

	data := gjson.GetBytes(body, "data.klines").Array()

	return data, nil
}

// ParseCandlesticks parses daily candlesticks from the provided kline rows.
// Each row is a comma separated string following the kline field order. Rows
// whose high, low or close cannot be coerced to a number are dropped wholesale.
func (c *EastMoneyClient) ParseCandlesticks(data []gjson.Result, market string) ([]shared.Candlestick, error) {
	candles := make([]shared.Candlestick, 0, len(data))

	for idx := range data {
		fields := strings.Split(data[idx].String(), ",")
		if len(fields) < 6 {
			return nil, fmt.Errorf("malformed kline row for %s: %q", market, data[idx].String())
		}

		dt, err := time.Parse(shared.DateLayout, fields[0])
		if err != nil {
			return nil, fmt.Errorf("parsing candlestick date: %w", err)
		}

		var candle shared.Candlestick
		candle.Close, err = strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		candle.High, err = strconv.ParseFloat(fields[3], 64)
		if err != nil {
			continue
		}
		candle.Low, err = strconv.ParseFloat(fields[4], 64)
		if err != nil {
			continue
		}

		// Open and volume are display fields, fall back rather than dropping
		// the bar when they are malformed.
		candle.Open, err = strconv.ParseFloat(fields[1], 64)
		if err != nil {
			candle.Open = candle.Close
		}
		candle.Volume, err = strconv.ParseFloat(fields[5], 64)
		if err != nil {
			candle.Volume = 0
		}

		candle.Date = dt
		candle.Market = market
		candles = append(candles, candle)
	}

	return candles, nil
}
