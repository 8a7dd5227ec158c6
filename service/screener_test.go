package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/qfan/etfscan/scan"
	"github.com/qfan/etfscan/shared"
)

// klineResponse builds an EastMoney kline payload from the provided closes
// with a fixed bar range.
func klineResponse(closes []float64) string {
	rows := make([]string, len(closes))
	for idx := range closes {
		date := time.Date(2024, time.January, idx+1, 0, 0, 0, 0, time.UTC)
		rows[idx] = fmt.Sprintf("%q", fmt.Sprintf("%s,%.2f,%.2f,%.2f,%.2f,1000,0",
			date.Format(shared.DateLayout), closes[idx], closes[idx], closes[idx]+0.5, closes[idx]-0.5))
	}

	return `{"data":{"klines":[` + strings.Join(rows, ",") + `]}}`
}

func testConfig(t *testing.T, cancel context.CancelFunc) *ScreenerConfig {
	t.Helper()

	exchange := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		closes := []float64{10, 10, 10, 12, 10, 10, 10, 8, 10, 10, 10, 11.8}
		fmt.Fprint(w, klineResponse(closes))
	}))
	t.Cleanup(exchange.Close)

	flowAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The rankings report the exchange's board names, the history endpoint
		// keys on board codes.
		if strings.Contains(r.URL.Path, "fflow/daykline") {
			fmt.Fprint(w, `{"data":{"klines":[`+
				`"2024-01-11,850000000,1,2,3,4,8.7,5,6,7,8,9,10,11,12",`+
				`"2024-01-12,1250000000,1,2,3,4,12.4,5,6,7,8,9,10,11,12"`+
				`]}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"diff":[{"f12":"BK1031","f14":"半导体","f3":2.5,"f62":1250000000,"f184":12.4}]}}`)
	}))
	t.Cleanup(flowAPI.Close)

	set := shared.NewInstrumentSet("test")
	set.Add("Semiconductors", "512480", "半导体")

	return &ScreenerConfig{
		Set: set,
		Params: &scan.Params{
			LookbackYears:    1,
			ATRPeriod:        3,
			ATRMultiplier:    2,
			MinSeparation:    2,
			ProminenceFactor: 1.0,
			Maxima:           true,
			Minima:           true,
		},
		ExchangeBaseURL:    exchange.URL,
		FlowBaseURL:        flowAPI.URL,
		FlowHistoryBaseURL: flowAPI.URL,
		ScanSchedule:       "15:05",
		Cancel:             cancel,
	}
}

func TestScreenerConfigValidation(t *testing.T) {
	// Ensure the screener rejects a config without its collaborators.
	_, err := NewScreener(&ScreenerConfig{})
	assert.Error(t, err)
}

func TestScreenerGracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	screener, err := NewScreener(testConfig(t, cancel))
	assert.NoError(t, err)

	// Ensure the screener service can be run and gracefully terminated.
	time.AfterFunc(time.Second*2, func() {
		cancel()
	})
	done := make(chan struct{})
	go func() {
		screener.Run(ctx)
		close(done)
	}()

	<-done
}

func TestScreenerOnDemandScan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	screener, err := NewScreener(testConfig(t, cancel))
	assert.NoError(t, err)

	done := make(chan struct{})
	go func() {
		screener.Run(ctx)
		close(done)
	}()

	screener.SendScanRequest(ScanRequest{Reason: "on-demand scan"})

	// Ensure the scan surfaces a proximity finding, the mapped sector flow and
	// the flow-versus-price comparison in the session log.
	var foundProximity, foundFlow, foundComparison, foundStop bool
	deadline := time.Now().Add(time.Second * 5)
	for time.Now().Before(deadline) && (!foundProximity || !foundFlow || !foundComparison || !foundStop) {
		for _, entry := range screener.SessionLog().Entries() {
			if strings.Contains(entry.Message, "Semiconductors (512480) is trading near a historical extremum") {
				foundProximity = true
			}
			if strings.Contains(entry.Message, "sector 半导体 main net inflow: 12.50") {
				foundFlow = true
			}
			if strings.Contains(entry.Message, "半导体 flow vs 512480: 2 aligned sessions") {
				foundComparison = true
			}
			if strings.Contains(entry.Message, "512480 long stop reference") {
				foundStop = true
			}
		}
		time.Sleep(time.Millisecond * 10)
	}

	assert.True(t, foundProximity)
	assert.True(t, foundFlow)
	assert.True(t, foundComparison)
	assert.True(t, foundStop)

	cancel()
	<-done
}
