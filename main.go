package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/qfan/etfscan/database"
	"github.com/qfan/etfscan/fetch"
	"github.com/qfan/etfscan/flow"
	"github.com/qfan/etfscan/scan"
	"github.com/qfan/etfscan/service"
	"github.com/qfan/etfscan/shared"
	zlog "github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// instrumentSet resolves the configured fund set.
func instrumentSet(cfg *Config) *shared.InstrumentSet {
	if cfg.InstrumentSet == watchlistSet {
		return shared.WatchlistETFs()
	}

	return shared.SectorETFs()
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var storage database.ScanStorer
	if cfg.DatabaseEndpoint != "" {
		dbLogger := zlog.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			log.Printf("creating database: %v", err)
			return
		}

		storage = db
	}

	screenerCfg := service.ScreenerConfig{
		Set: instrumentSet(&cfg),
		Params: &scan.Params{
			LookbackYears:    cfg.LookbackYears,
			ATRPeriod:        cfg.ATRPeriod,
			ATRMultiplier:    cfg.ATRMultiplier,
			MinSeparation:    cfg.MinSeparation,
			ProminenceFactor: cfg.ProminenceFactor,
			Maxima:           cfg.Maxima,
			Minima:           cfg.Minima,
		},
		ExchangeBaseURL:    fetch.BaseURL,
		FlowBaseURL:        flow.BaseURL,
		FlowHistoryBaseURL: flow.HistoryBaseURL,
		ScanSchedule:       cfg.ScanSchedule,
		Storage:            storage,
		Cancel:             cancel,
	}
	screener, err := service.NewScreener(&screenerCfg)
	if err != nil {
		log.Printf("creating screener service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	screener.Run(ctx)
}
