package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestEastMoneyClient(t *testing.T) {
	// Ensure the client cannot be created without a base url.
	_, err := NewEastMoneyClient(&EastMoneyConfig{})
	assert.Error(t, err)

	// Ensure the east money client can be created.
	cfg := &EastMoneyConfig{
		BaseURL: "http://base",
	}

	ec, err := NewEastMoneyClient(cfg)
	assert.NoError(t, err)

	// Ensure urls can be formed accurately.
	params := url.Values{}
	params.Add("a", "bbb")
	params.Add("b", "ccc")

	path := "/path"
	formedURL := ec.formURL(path, params.Encode())
	assert.Equal(t, formedURL, "http://base/path?a=bbb&b=ccc")
}

func TestFetchDailyBarsConcurrent(t *testing.T) {
	row := "2024-01-02,1.10,1.15,1.20,1.05,123456,7890"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"klines":[%q]}}`, row)
	}))
	defer server.Close()

	client, err := NewEastMoneyClient(&EastMoneyConfig{BaseURL: server.URL})
	assert.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	// Ensure overlapping requests through one shared client stay independent,
	// every caller gets an intact response.
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			data, err := client.FetchDailyBars(context.Background(), "512480", start, end)
			if err != nil {
				errs <- err
				return
			}
			if len(data) != 1 || data[0].String() != row {
				errs <- fmt.Errorf("unexpected rows: %v", data)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent fetch: %v", err)
	}
}

func TestSecID(t *testing.T) {
	tests := []struct {
		name   string
		market string
		want   string
	}{
		{
			"shanghai fund",
			"512480",
			"1.512480",
		},
		{
			"shenzhen fund",
			"159883",
			"0.159883",
		},
	}

	for _, test := range tests {
		id := secID(test.market)
		if id != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, id)
		}
	}
}

func TestParseCandlesticks(t *testing.T) {
	cfg := &EastMoneyConfig{
		BaseURL: "http://base",
	}

	ec, err := NewEastMoneyClient(cfg)
	assert.NoError(t, err)

	market := "512480"

	// Ensure well-formed kline rows are parsed in full.
	data := gjson.Parse(`["2024-01-02,1.10,1.15,1.20,1.05,123456,7890",
		"2024-01-03,1.15,1.18,1.22,1.12,100000,5000"]`).Array()

	candles, err := ec.ParseCandlesticks(data, market)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.Equal(t, candles[0].Open, 1.10)
	assert.Equal(t, candles[0].Close, 1.15)
	assert.Equal(t, candles[0].High, 1.20)
	assert.Equal(t, candles[0].Low, 1.05)
	assert.Equal(t, candles[0].Volume, float64(123456))
	assert.Equal(t, candles[0].Market, market)
	assert.True(t, candles[0].Date.Before(candles[1].Date))

	// Ensure a row with an uncoercible close is dropped wholesale, not patched.
	data = gjson.Parse(`["2024-01-02,1.10,bad,1.20,1.05,123456,7890",
		"2024-01-03,1.15,1.18,1.22,1.12,100000,5000"]`).Array()

	candles, err = ec.ParseCandlesticks(data, market)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 1)
	assert.Equal(t, candles[0].Close, 1.18)

	// Ensure malformed open and volume fields fall back without dropping the bar.
	data = gjson.Parse(`["2024-01-02,bad,1.15,1.20,1.05,bad,7890"]`).Array()

	candles, err = ec.ParseCandlesticks(data, market)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 1)
	assert.Equal(t, candles[0].Open, 1.15)
	assert.Equal(t, candles[0].Volume, float64(0))

	// Ensure a structurally malformed row fails the parse.
	data = gjson.Parse(`["2024-01-02,1.10"]`).Array()
	_, err = ec.ParseCandlesticks(data, market)
	assert.Error(t, err)

	// Ensure an unparseable date fails the parse.
	data = gjson.Parse(`["not-a-date,1.10,1.15,1.20,1.05,123456,7890"]`).Array()
	_, err = ec.ParseCandlesticks(data, market)
	assert.Error(t, err)
}
