package main

import (
	"flag"
	"os"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		InstrumentSet:    sectorSet,
		LookbackYears:    2,
		ATRPeriod:        14,
		ATRMultiplier:    2,
		MinSeparation:    10,
		ProminenceFactor: 1.06,
		Maxima:           true,
		Minima:           true,
		ScanSchedule:     "15:05",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr []string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: nil,
		},
		{
			name: "unknown instrument set",
			mutate: func(cfg *Config) {
				cfg.InstrumentSet = "everything"
			},
			wantErr: []string{"instrument set must be sector or watchlist"},
		},
		{
			name: "non-positive lookback years",
			mutate: func(cfg *Config) {
				cfg.LookbackYears = 0
			},
			wantErr: []string{"lookback years must be positive"},
		},
		{
			name: "non-positive atr inputs",
			mutate: func(cfg *Config) {
				cfg.ATRPeriod = 0
				cfg.ATRMultiplier = -1
			},
			wantErr: []string{
				"average true range period must be positive",
				"average true range multiplier must be positive",
			},
		},
		{
			name: "no extremum kind selected",
			mutate: func(cfg *Config) {
				cfg.Maxima = false
				cfg.Minima = false
			},
			wantErr: []string{"at least one extremum kind must be selected"},
		},
		{
			name: "missing scan schedule",
			mutate: func(cfg *Config) {
				cfg.ScanSchedule = ""
			},
			wantErr: []string{"scan schedule cannot be an empty string"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
				return
			}

			if err == nil {
				t.Errorf("expected error(s) %v, got none", tt.wantErr)
				return
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected error to contain %q, got %v", want, err)
				}
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	// Save and restore original os.Args and environment
	origArgs := os.Args
	origEnv := os.Environ()
	defer func() {
		os.Args = origArgs
		for _, kv := range origEnv {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) == 2 {
				os.Setenv(parts[0], parts[1])
			}
		}
	}()

	tests := []struct {
		name        string
		env         map[string]string
		args        []string
		expectErr   bool
		expectInErr []string
		expectCfg   Config
	}{
		{
			name: "all from env",
			env: map[string]string{
				"instrumentset":    "sector",
				"lookbackyears":    "2",
				"atrperiod":        "14",
				"atrmultiplier":    "2.0",
				"minseparation":    "10",
				"prominencefactor": "1.06",
				"maxima":           "true",
				"minima":           "true",
				"scanschedule":     "15:05",
			},
			args:      []string{"cmd"},
			expectErr: false,
			expectCfg: validConfig(),
		},
		{
			name: "all from flags",
			env:  map[string]string{},
			args: []string{"cmd", "-instrumentset=sector", "-lookbackyears=2", "-atrperiod=14",
				"-atrmultiplier=2.0", "-minseparation=10", "-prominencefactor=1.06",
				"-maxima=true", "-minima=true", "-scanschedule=15:05"},
			expectErr: false,
			expectCfg: validConfig(),
		},
		{
			name:      "missing everything",
			env:       map[string]string{},
			args:      []string{"cmd"},
			expectErr: true,
			expectInErr: []string{
				"instrument set must be sector or watchlist",
				"lookback years must be positive",
				"scan schedule cannot be an empty string",
			},
		},
		{
			name: "flags override env",
			env: map[string]string{
				"instrumentset":    "sector",
				"lookbackyears":    "2",
				"atrperiod":        "14",
				"atrmultiplier":    "2.0",
				"minseparation":    "10",
				"prominencefactor": "1.06",
				"maxima":           "true",
				"minima":           "true",
				"scanschedule":     "15:05",
			},
			args:      []string{"cmd", "-instrumentset=watchlist", "-prominencefactor=1.5"},
			expectErr: false,
			expectCfg: Config{
				InstrumentSet:    watchlistSet,
				LookbackYears:    2,
				ATRPeriod:        14,
				ATRMultiplier:    2,
				MinSeparation:    10,
				ProminenceFactor: 1.5,
				Maxima:           true,
				Minima:           true,
				ScanSchedule:     "15:05",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flags for each test
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			// Set environment variables
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			// Set command-line arguments
			os.Args = tt.args

			var cfg Config
			err := loadConfig(&cfg, "none")

			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				for _, want := range tt.expectInErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
			} else {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if cfg.InstrumentSet != tt.expectCfg.InstrumentSet {
					t.Errorf("InstrumentSet: got %v, want %v", cfg.InstrumentSet, tt.expectCfg.InstrumentSet)
				}
				if cfg.LookbackYears != tt.expectCfg.LookbackYears {
					t.Errorf("LookbackYears: got %v, want %v", cfg.LookbackYears, tt.expectCfg.LookbackYears)
				}
				if cfg.ATRMultiplier != tt.expectCfg.ATRMultiplier {
					t.Errorf("ATRMultiplier: got %v, want %v", cfg.ATRMultiplier, tt.expectCfg.ATRMultiplier)
				}
				if cfg.ProminenceFactor != tt.expectCfg.ProminenceFactor {
					t.Errorf("ProminenceFactor: got %v, want %v", cfg.ProminenceFactor, tt.expectCfg.ProminenceFactor)
				}
				if cfg.Maxima != tt.expectCfg.Maxima || cfg.Minima != tt.expectCfg.Minima {
					t.Errorf("kind selection: got %v/%v, want %v/%v",
						cfg.Maxima, cfg.Minima, tt.expectCfg.Maxima, tt.expectCfg.Minima)
				}
				if cfg.ScanSchedule != tt.expectCfg.ScanSchedule {
					t.Errorf("ScanSchedule: got %v, want %v", cfg.ScanSchedule, tt.expectCfg.ScanSchedule)
				}
			}

			// Clean up env
			for k := range tt.env {
				os.Unsetenv(k)
			}
		})
	}
}
