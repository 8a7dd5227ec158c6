// Package flow retrieves sector capital-flow rankings from the EastMoney
// public API.
package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qfan/etfscan/shared"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the EastMoney market list API base url.
	BaseURL = "https://push2.eastmoney.com"
	// listPath is the ranked market list endpoint path.
	listPath = "/api/qt/clist/get"
	// industrySectors selects industry sector boards.
	industrySectors = "m:90+t:2"
	// yiYuan converts amounts from yuan to hundred-million-yuan units.
	yiYuan = 1e8
)

// Window represents the capital-flow aggregation window of a ranking.
type Window int

const (
	Today Window = iota
	FiveDay
	TenDay
)

// String stringifies the provided window.
func (w Window) String() string {
	switch w {
	case Today:
		return "today"
	case FiveDay:
		return "5day"
	case TenDay:
		return "10day"
	default:
		return "unknown"
	}
}

// fields returns the ranking sort field, the percent-change field, the main
// net inflow field and the main net inflow percent field for the window.
func (w Window) fields() (string, string, string, string, error) {
	switch w {
	case Today:
		return "f62", "f3", "f62", "f184", nil
	case FiveDay:
		return "f164", "f109", "f164", "f165", nil
	case TenDay:
		return "f174", "f160", "f174", "f175", nil
	default:
		return "", "", "", "", fmt.Errorf("unknown flow window provided: %d", w)
	}
}

// SectorRank represents one sector's capital-flow ranking row. Amounts are in
// hundred-million-yuan units.
type SectorRank struct {
	Code          string
	Name          string
	PctChange     float64
	MainNetInflow float64
	MainNetPct    float64
}

// ClientConfig represents the configuration for the flow client.
type ClientConfig struct {
	// BaseURL is the ranking API base url.
	BaseURL string
	// HistoryBaseURL is the historical flow API base url.
	HistoryBaseURL string
}

// Client represents the EastMoney sector capital-flow API client. It is safe
// for concurrent use, overlapping scan runs share one client.
type Client struct {
	cfg   *ClientConfig
	httpc http.Client
}

// NewClient instantiates a new flow client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url cannot be an empty string")
	}
	if cfg.HistoryBaseURL == "" {
		return nil, errors.New("history base url cannot be an empty string")
	}

	return &Client{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 10},
	}, nil
}

// formURL creates full urls including parameters for the api. The builder is
// per call, concurrent requests never share state.
func (c *Client) formURL(base string, path string, params string) string {
	var buf strings.Builder
	buf.WriteString(base)
	buf.WriteString(path)
	buf.WriteString("?")
	buf.WriteString(params)

	return buf.String()
}

// FetchSectorRanks fetches the sector capital-flow ranking for the provided
// window, ordered by net inflow descending.
func (c *Client) FetchSectorRanks(ctx context.Context, window Window) ([]SectorRank, error) {
	sortField, pctField, inflowField, inflowPctField, err := window.fields()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("fid", sortField)
	params.Add("po", "1")
	params.Add("pz", "500")
	params.Add("pn", "1")
	params.Add("np", "1")
	params.Add("fltt", "2")
	params.Add("invt", "2")
	params.Add("fs", industrySectors)
	params.Add("fields", fmt.Sprintf("f12,f14,%s,%s,%s", pctField, inflowField, inflowPctField))

	formedURL := c.formURL(c.cfg.BaseURL, listPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating sector rank request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s sector ranks: %w", window.String(), err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s sector ranks: status %d", window.String(), resp.StatusCode)
	}

	rows := gjson.GetBytes(body, "data.diff").Array()
	ranks := make([]SectorRank, 0, len(rows))

	for idx := range rows {
		ranks = append(ranks, SectorRank{
			Code:          rows[idx].Get("f12").String(),
			Name:          rows[idx].Get("f14").String(),
			PctChange:     rows[idx].Get(pctField).Float(),
			MainNetInflow: rows[idx].Get(inflowField).Float() / yiYuan,
			MainNetPct:    rows[idx].Get(inflowPctField).Float(),
		})
	}

	return ranks, nil
}

// FilterMapped restricts the provided ranking rows to sectors with a fund in
// the provided instrument set. The join keys on the upstream board names the
// rankings report, funds without a sector board never match. It is a pure
// projection over the ranking.
func FilterMapped(ranks []SectorRank, set *shared.InstrumentSet) []SectorRank {
	mapped := make(map[string]bool, set.Len())
	for idx := range set.Instruments {
		if set.Instruments[idx].Sector == "" {
			continue
		}
		mapped[set.Instruments[idx].Sector] = true
	}

	filtered := make([]SectorRank, 0, len(ranks))
	for idx := range ranks {
		if mapped[ranks[idx].Name] {
			filtered = append(filtered, ranks[idx])
		}
	}

	return filtered
}
