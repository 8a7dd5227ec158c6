package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// sectorSet selects the built-in sector fund set.
	sectorSet = "sector"
	// watchlistSet selects the built-in watchlist fund set.
	watchlistSet = "watchlist"
)

// Config is the configuration struct for the service.
type Config struct {
	// InstrumentSet selects the scanned fund set, sector or watchlist.
	InstrumentSet string
	// LookbackYears is the number of years of daily history to analyze.
	LookbackYears int
	// ATRPeriod is the smoothing period for the average true range.
	ATRPeriod int
	// ATRMultiplier scales the proximity band around each extremum.
	ATRMultiplier float64
	// MinSeparation is the minimum number of bars between reported extrema.
	MinSeparation int
	// ProminenceFactor scales the closing price standard deviation into the
	// required extremum prominence.
	ProminenceFactor float64
	// Maxima selects proximity analysis against local maxima.
	Maxima bool
	// Minima selects proximity analysis against local minima.
	Minima bool
	// ScanSchedule is the exchange-local time of the daily scheduled scan.
	ScanSchedule string
	// DatabaseEndpoint is the scan-run database endpoint, empty disables persistence.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.InstrumentSet != sectorSet && cfg.InstrumentSet != watchlistSet {
		errs = errors.Join(errs, fmt.Errorf("instrument set must be %s or %s", sectorSet, watchlistSet))
	}
	if cfg.LookbackYears <= 0 {
		errs = errors.Join(errs, fmt.Errorf("lookback years must be positive"))
	}
	if cfg.ATRPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("average true range period must be positive"))
	}
	if cfg.ATRMultiplier <= 0 {
		errs = errors.Join(errs, fmt.Errorf("average true range multiplier must be positive"))
	}
	if cfg.MinSeparation <= 0 {
		errs = errors.Join(errs, fmt.Errorf("minimum separation must be positive"))
	}
	if cfg.ProminenceFactor <= 0 {
		errs = errors.Join(errs, fmt.Errorf("prominence factor must be positive"))
	}
	if !cfg.Maxima && !cfg.Minima {
		errs = errors.Join(errs, fmt.Errorf("at least one extremum kind must be selected"))
	}
	if cfg.ScanSchedule == "" {
		errs = errors.Join(errs, fmt.Errorf("scan schedule cannot be an empty string"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("instrumentset", &cfg.InstrumentSet, "the scanned fund set, sector or watchlist")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("lookbackyears", &cfg.LookbackYears, "the years of daily history to analyze")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("atrperiod", &cfg.ATRPeriod, "the average true range smoothing period")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("atrmultiplier", &cfg.ATRMultiplier, "the proximity band scale")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("minseparation", &cfg.MinSeparation, "the minimum bars between reported extrema")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("prominencefactor", &cfg.ProminenceFactor, "the extremum prominence scale")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("maxima", &cfg.Maxima, "scan proximity to local maxima")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("minima", &cfg.Minima, "scan proximity to local minima")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("scanschedule", &cfg.ScanSchedule, "the exchange-local time of the daily scan")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("databaseendpoint", &cfg.DatabaseEndpoint, "the scan-run database endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("databaseuser", &cfg.DatabaseUser, "the database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("databasepass", &cfg.DatabasePass, "the database user pass")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
