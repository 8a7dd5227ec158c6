package fetch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/qfan/etfscan/indicator"
	"github.com/qfan/etfscan/shared"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// cacheValidity is how long a fetched series stays valid. The source
	// updates daily bars at most once per trading day.
	cacheValidity = time.Hour * 24
	// daysPerYear is the average calendar year length in days used to derive
	// lookback ranges.
	daysPerYear = 365.25
)

// cacheKey identifies a cached price series by its fetch parameters.
type cacheKey struct {
	market    string
	years     int
	atrPeriod int
}

// ManagerConfig represents the configuration for the history manager.
type ManagerConfig struct {
	// ExchangeClient represents the market data client.
	ExchangeClient *EastMoneyClient
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.ExchangeClient == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange client cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager represents the fund history manager. It fetches daily price series,
// derives their average true range and caches results per fetch parameters.
type Manager struct {
	cfg      *ManagerConfig
	cache    map[cacheKey]*shared.PriceSeries
	cacheMtx sync.RWMutex
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// NewManager initializes the fund history manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating history manager config: %w", err)
	}

	return &Manager{
		cfg:   cfg,
		cache: make(map[cacheKey]*shared.PriceSeries),
	}, nil
}

// cached returns the cached series for the provided key if it is still valid.
func (m *Manager) cached(key cacheKey) *shared.PriceSeries {
	m.cacheMtx.RLock()
	defer m.cacheMtx.RUnlock()

	series, ok := m.cache[key]
	if !ok || time.Since(series.FetchedAt) > cacheValidity {
		return nil
	}

	return series
}

// CacheStats returns the number of cache hits and misses served by the manager.
func (m *Manager) CacheStats() (uint64, uint64) {
	return m.hits.Load(), m.misses.Load()
}

// FetchSeries fetches the provided fund's daily price series over the lookback
// window and aligns an average true range series with it. Bars that cannot be
// coerced are dropped at the boundary, an empty result after coercion is
// reported as insufficient data.
func (m *Manager) FetchSeries(ctx context.Context, instrument shared.Instrument, lookbackYears int, atrPeriod int) (*shared.PriceSeries, error) {
	if instrument.Market == "" {
		return nil, fmt.Errorf("%w: fund code cannot be an empty string", shared.ErrInvalidParameters)
	}
	if lookbackYears <= 0 {
		return nil, fmt.Errorf("%w: lookback years must be positive, got %d",
			shared.ErrInvalidParameters, lookbackYears)
	}
	if atrPeriod <= 0 {
		return nil, fmt.Errorf("%w: average true range period must be positive, got %d",
			shared.ErrInvalidParameters, atrPeriod)
	}

	key := cacheKey{market: instrument.Market, years: lookbackYears, atrPeriod: atrPeriod}
	if series := m.cached(key); series != nil {
		m.hits.Add(1)
		return series, nil
	}

	m.misses.Add(1)

	end := time.Now()
	start := end.Add(-time.Duration(float64(lookbackYears) * daysPerYear * 24 * float64(time.Hour)))

	data, err := m.cfg.ExchangeClient.FetchDailyBars(ctx, instrument.Market, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: source returned no rows for %s", shared.ErrInsufficientData, instrument.Market)
	}

	candles, err := m.cfg.ExchangeClient.ParseCandlesticks(data, instrument.Market)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no usable rows for %s after coercion",
			shared.ErrInsufficientData, instrument.Market)
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Date.Before(candles[j].Date) })

	atr, err := indicator.ATRSeries(candles, atrPeriod)
	if err != nil {
		return nil, fmt.Errorf("deriving average true range for %s: %w", instrument.Market, err)
	}

	series := &shared.PriceSeries{
		Market:    instrument.Market,
		Name:      instrument.Name,
		Candles:   candles,
		ATR:       atr,
		FetchedAt: time.Now(),
	}

	if len(candles) <= atrPeriod {
		m.cfg.Logger.Warn().Msgf("%d bars for %s is too short for atr period %d, volatility undefined",
			len(candles), instrument.Market, atrPeriod)
	}

	m.cacheMtx.Lock()
	m.cache[key] = series
	m.cacheMtx.Unlock()

	return series, nil
}
