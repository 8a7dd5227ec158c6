package flow

import (
	"context"
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
	// HistoryBaseURL is the EastMoney historical capital-flow API base url.
	HistoryBaseURL = "https://push2his.eastmoney.com"
	// historyPath is the daily capital-flow kline endpoint path.
	historyPath = "/api/qt/stock/fflow/daykline/get"
	// sectorSecIDPrefix qualifies a sector board code as a security id.
	sectorSecIDPrefix = "90."
	// historyFields selects the daily flow columns. The endpoint returns them
	// as comma separated strings, date first, the main net inflow second and
	// the main net inflow percent seventh.
	historyFields = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61,f62,f63,f64,f65"
)

// FlowBar represents one day of a sector's capital flow. Amounts are in
// hundred-million-yuan units.
type FlowBar struct {
	Date          time.Time
	MainNetInflow float64
	MainNetPct    float64
}

// FetchSectorFlowHistory fetches the daily capital-flow history for the
// provided sector board code, oldest first.
func (c *Client) FetchSectorFlowHistory(ctx context.Context, sectorCode string) ([]FlowBar, error) {
	if sectorCode == "" {
		return nil, fmt.Errorf("sector code cannot be an empty string")
	}

	params := url.Values{}
	params.Add("secid", sectorSecIDPrefix+sectorCode)
	params.Add("lmt", "0")
	params.Add("klt", "101")
	params.Add("fields1", "f1,f2,f3,f7")
	params.Add("fields2", historyFields)

	formedURL := c.formURL(c.cfg.HistoryBaseURL, historyPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating flow history request for %s: %w", sectorCode, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching flow history for %s: %w", sectorCode, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching flow history for %s: status %d", sectorCode, resp.StatusCode)
	}

	rows := gjson.GetBytes(body, "data.klines").Array()
	bars := make([]FlowBar, 0, len(rows))

	for idx := range rows {
		fields := strings.Split(rows[idx].String(), ",")
		if len(fields) < 7 {
			return nil, fmt.Errorf("malformed flow history row for %s: %q", sectorCode, rows[idx].String())
		}

		dt, err := time.Parse(shared.DateLayout, fields[0])
		if err != nil {
			return nil, fmt.Errorf("parsing flow history date: %w", err)
		}

		var bar FlowBar
		bar.Date = dt

		inflow, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			// Rows without a usable inflow amount carry no signal.
			continue
		}
		bar.MainNetInflow = inflow / yiYuan

		pct, err := strconv.ParseFloat(fields[6], 64)
		if err != nil {
			pct = 0
		}
		bar.MainNetPct = pct

		bars = append(bars, bar)
	}

	return bars, nil
}

// ComparisonPoint represents one session of a sector's capital flow aligned
// with its mapped fund's daily bar.
type ComparisonPoint struct {
	Date          time.Time
	Close         float64
	Volume        float64
	MainNetInflow float64
	MainNetPct    float64
}

// ComparisonSeries aligns the provided flow history with the provided fund
// bars by date, oldest first. Sessions present on only one side are dropped.
// It is a pure projection, rendering is left to callers.
func ComparisonSeries(candles []shared.Candlestick, flows []FlowBar) []ComparisonPoint {
	byDate := make(map[time.Time]*shared.Candlestick, len(candles))
	for idx := range candles {
		byDate[candles[idx].Date] = &candles[idx]
	}

	points := make([]ComparisonPoint, 0, len(flows))
	for idx := range flows {
		candle, ok := byDate[flows[idx].Date]
		if !ok {
			continue
		}

		points = append(points, ComparisonPoint{
			Date:          flows[idx].Date,
			Close:         candle.Close,
			Volume:        candle.Volume,
			MainNetInflow: flows[idx].MainNetInflow,
			MainNetPct:    flows[idx].MainNetPct,
		})
	}

	return points
}
