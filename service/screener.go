package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-co-op/gocron"
	"github.com/qfan/etfscan/database"
	"github.com/qfan/etfscan/fetch"
	"github.com/qfan/etfscan/flow"
	"github.com/qfan/etfscan/kline"
	"github.com/qfan/etfscan/scan"
	"github.com/qfan/etfscan/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// ScanRequest represents an on-demand scan trigger.
type ScanRequest struct {
	// Reason describes what triggered the scan.
	Reason string
}

// ScreenerConfig represents the configuration struct for the screener service.
type ScreenerConfig struct {
	// Set represents the scanned fund set.
	Set *shared.InstrumentSet
	// Params are the analysis parameters for scan runs.
	Params *scan.Params
	// ExchangeBaseURL is the market data API base url.
	ExchangeBaseURL string
	// FlowBaseURL is the sector capital-flow ranking API base url.
	FlowBaseURL string
	// FlowHistoryBaseURL is the historical sector capital-flow API base url.
	FlowHistoryBaseURL string
	// ScanSchedule is the exchange-local time of the daily scheduled scan.
	ScanSchedule string
	// Storage stores completed scan runs, nil disables persistence.
	Storage database.ScanStorer
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *ScreenerConfig) Validate() error {
	var errs error

	if cfg.Set == nil || cfg.Set.Len() == 0 {
		errs = errors.Join(errs, fmt.Errorf("no funds provided for screener service"))
	}
	if cfg.Params == nil {
		errs = errors.Join(errs, fmt.Errorf("scan params cannot be nil"))
	}
	if cfg.ExchangeBaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("exchange base url cannot be an empty string"))
	}
	if cfg.FlowBaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("flow base url cannot be an empty string"))
	}
	if cfg.FlowHistoryBaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("flow history base url cannot be an empty string"))
	}
	if cfg.ScanSchedule == "" {
		errs = errors.Join(errs, fmt.Errorf("scan schedule cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	if cfg.Params != nil {
		if err := cfg.Params.Validate(); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	return errs
}

// Screener represents an extremum-proximity screening service.
type Screener struct {
	cfg          *ScreenerConfig
	fetchManager *fetch.Manager
	scanner      *scan.Scanner
	flowClient   *flow.Client
	sessionLog   *shared.SessionLog
	jobScheduler *gocron.Scheduler
	scanRequests chan ScanRequest
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// NewScreener initializes a new screener service.
func NewScreener(cfg *ScreenerConfig) (*Screener, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "screener").Logger()

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating screener config: %w", err)
	}

	_, loc, err := shared.ShanghaiTime()
	if err != nil {
		return nil, fmt.Errorf("fetching shanghai time: %v", err)
	}

	jobScheduler := gocron.NewScheduler(loc)

	exchange, err := fetch.NewEastMoneyClient(&fetch.EastMoneyConfig{BaseURL: cfg.ExchangeBaseURL})
	if err != nil {
		return nil, fmt.Errorf("creating eastmoney client: %v", err)
	}

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		ExchangeClient: exchange,
		Logger:         &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %v", err)
	}

	sessionLog, err := shared.NewSessionLog(shared.SessionLogSize)
	if err != nil {
		return nil, fmt.Errorf("creating session log: %v", err)
	}

	scannerLogger := logger.With().Str("component", "scanner").Logger()
	scanner, err := scan.NewScanner(&scan.ScannerConfig{
		FetchSeries: fetchMgr.FetchSeries,
		SessionLog:  sessionLog,
		Logger:      &scannerLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating scanner: %v", err)
	}

	flowClient, err := flow.NewClient(&flow.ClientConfig{
		BaseURL:        cfg.FlowBaseURL,
		HistoryBaseURL: cfg.FlowHistoryBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating flow client: %v", err)
	}

	service := &Screener{
		cfg:          cfg,
		fetchManager: fetchMgr,
		scanner:      scanner,
		flowClient:   flowClient,
		sessionLog:   sessionLog,
		jobScheduler: jobScheduler,
		scanRequests: make(chan ScanRequest, bufferSize),
		logger:       &logger,
	}

	return service, nil
}

// SessionLog returns the bounded diagnostic log of the screener.
func (s *Screener) SessionLog() *shared.SessionLog {
	return s.sessionLog
}

// SendScanRequest relays the provided scan request for processing.
func (s *Screener) SendScanRequest(req ScanRequest) {
	select {
	case s.scanRequests <- req:
		// do nothing.
	default:
		s.logger.Error().Msgf("scan request channel at capacity: %d/%d",
			len(s.scanRequests), bufferSize)
	}
}

// logFlowComparison aligns the provided sector's daily flow history with its
// mapped fund's bars and records the latest aligned session.
func (s *Screener) logFlowComparison(ctx context.Context, rank flow.SectorRank) {
	var instrument shared.Instrument
	for idx := range s.cfg.Set.Instruments {
		if s.cfg.Set.Instruments[idx].Sector == rank.Name {
			instrument = s.cfg.Set.Instruments[idx]
			break
		}
	}
	if instrument.Market == "" {
		return
	}

	flows, err := s.flowClient.FetchSectorFlowHistory(ctx, rank.Code)
	if err != nil {
		s.logger.Error().Msgf("fetching flow history for %s: %v", rank.Code, err)
		return
	}

	series, err := s.fetchManager.FetchSeries(ctx, instrument, s.cfg.Params.LookbackYears, s.cfg.Params.ATRPeriod)
	if err != nil {
		return
	}

	points := flow.ComparisonSeries(series.Candles, flows)
	if len(points) == 0 {
		return
	}

	latest := points[len(points)-1]
	s.sessionLog.Logf("%s flow vs %s: %d aligned sessions, latest close %.3f on %.2f net inflow",
		rank.Name, instrument.Market, len(points), latest.Close, latest.MainNetInflow)
}

// handleScanRequest processes the provided scan request.
func (s *Screener) handleScanRequest(ctx context.Context, req *ScanRequest) {
	s.sessionLog.Logf("starting scan of the %s set: %s", s.cfg.Set.Name, req.Reason)

	result, err := s.scanner.RunBatch(ctx, s.cfg.Set, s.cfg.Params)
	if err != nil {
		s.logger.Error().Msgf("running %s scan: %v", req.Reason, err)
		return
	}

	for _, label := range scan.DistinctInstruments(result.Findings) {
		s.sessionLog.Logf("%s is trading near a historical extremum", label)
	}

	// Stop references reuse the cached series from the scan.
	seen := make(map[string]bool)
	for idx := range result.Findings {
		market := result.Findings[idx].Market
		if seen[market] {
			continue
		}
		seen[market] = true

		instrument := shared.Instrument{Name: result.Findings[idx].Name, Market: market}
		series, err := s.fetchManager.FetchSeries(ctx, instrument, s.cfg.Params.LookbackYears, s.cfg.Params.ATRPeriod)
		if err != nil {
			continue
		}

		view, err := kline.BuildView(series, s.cfg.Params)
		if err != nil || view.Stop == nil {
			continue
		}

		s.sessionLog.Logf("%s long stop reference: %.3f (%.2f%% below close)",
			market, view.Stop.Stop, view.Stop.StopPct)
	}

	ranks, err := s.flowClient.FetchSectorRanks(ctx, flow.Today)
	if err != nil {
		// Flow ranks are advisory context for the run, their absence does not
		// void the scan.
		s.logger.Error().Msgf("fetching sector ranks: %v", err)
	} else {
		mapped := flow.FilterMapped(ranks, s.cfg.Set)
		for _, rank := range mapped {
			s.sessionLog.Logf("sector %s main net inflow: %.2f", rank.Name, rank.MainNetInflow)
		}

		if len(mapped) > 0 {
			s.logFlowComparison(ctx, mapped[0])
		}
	}

	if s.cfg.Storage != nil {
		runID, err := s.cfg.Storage.PersistRun(ctx, result)
		if err != nil {
			s.logger.Error().Msgf("persisting scan run: %v", err)
			return
		}

		s.logger.Info().Msgf("persisted scan run %s", runID)
	}
}

// Run handles the lifecycle processes of the screener service.
func (s *Screener) Run(ctx context.Context) {
	_, err := s.jobScheduler.Every(1).Day().At(s.cfg.ScanSchedule).Do(func() {
		s.SendScanRequest(ScanRequest{Reason: "scheduled daily scan"})
	})
	if err != nil {
		s.logger.Error().Msgf("scheduling daily scan: %v", err)
	}

	s.jobScheduler.StartAsync()

	for {
		select {
		case <-ctx.Done():
			s.jobScheduler.Stop()
			s.wg.Wait()
			return
		case req := <-s.scanRequests:
			s.wg.Add(1)
			go func(req *ScanRequest) {
				s.handleScanRequest(ctx, req)
				s.wg.Done()
			}(&req)
		}
	}
}
