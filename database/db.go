package database

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/qfan/etfscan/scan"
	"github.com/qfan/etfscan/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createScanRunTableSQL = "CREATE TABLE IF NOT EXISTS scanrun (id TEXT PRIMARY KEY, setname TEXT, attempted INTEGER, findings INTEGER, skips INTEGER, startedon INTEGER, finishedon INTEGER)"
	createFindingTableSQL = "CREATE TABLE IF NOT EXISTS finding (id TEXT PRIMARY KEY, runid TEXT, market TEXT, name TEXT, kind TEXT, extremumdate TEXT, extremumprice REAL, currentprice REAL, currentatr REAL, distanceatr REAL, distancepct REAL)"
	createSkipTableSQL    = "CREATE TABLE IF NOT EXISTS skip (id TEXT PRIMARY KEY, runid TEXT, market TEXT, name TEXT, stage TEXT, reason TEXT)"
	persistScanRunSQL     = "INSERT INTO scanrun(id, setname, attempted, findings, skips, startedon, finishedon) VALUES(?,?,?,?,?,?,?)"
	persistFindingSQL     = "INSERT INTO finding(id, runid, market, name, kind, extremumdate, extremumprice, currentprice, currentatr, distanceatr, distancepct) VALUES(?,?,?,?,?,?,?,?,?,?,?)"
	persistSkipSQL        = "INSERT INTO skip(id, runid, market, name, stage, reason) VALUES(?,?,?,?,?,?)"
)

// ScanStorer defines the requirements for storing scan runs.
type ScanStorer interface {
	// PersistRun stores the provided scan run and its rows to the database.
	PersistRun(ctx context.Context, result *scan.BatchResult) (string, error)
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the ScanStorer interface.
var _ ScanStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createScanRunTableSQL},
		{SQL: createFindingTableSQL},
		{SQL: createSkipTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// PersistRun stores the provided scan run, its findings and its skips to the
// database under a fresh run id, which it returns. Findings with undefined
// numeric fields are dumped and dropped rather than persisted.
func (db *Database) PersistRun(ctx context.Context, result *scan.BatchResult) (string, error) {
	runID := uuid.NewString()

	stmts := rqlitehttp.SQLStatements{
		{
			SQL: persistScanRunSQL,
			PositionalParams: []any{runID, result.Set, result.Attempted, len(result.Findings),
				len(result.Skips), result.StartedAt.Unix(), result.FinishedAt.Unix()},
		},
	}

	for idx := range result.Findings {
		finding := &result.Findings[idx]
		if math.IsNaN(finding.CurrentPrice) || math.IsNaN(finding.CurrentATR) ||
			math.IsNaN(finding.DistanceATR) || math.IsNaN(finding.DistancePct) {
			db.cfg.Logger.Error().Msgf("unexpected finding state for persistence: %s", spew.Sdump(finding))
			continue
		}

		stmts = append(stmts, &rqlitehttp.SQLStatement{
			SQL: persistFindingSQL,
			PositionalParams: []any{uuid.NewString(), runID, finding.Market, finding.Name,
				finding.Extremum.Kind.String(), finding.Extremum.Date.Format(shared.DateLayout), finding.Extremum.Price,
				finding.CurrentPrice, finding.CurrentATR, finding.DistanceATR, finding.DistancePct},
		})
	}

	for idx := range result.Skips {
		skip := &result.Skips[idx]
		stmts = append(stmts, &rqlitehttp.SQLStatement{
			SQL: persistSkipSQL,
			PositionalParams: []any{uuid.NewString(), runID, skip.Market, skip.Name,
				skip.Stage.String(), skip.Reason},
		})
	}

	resp, err := db.client.Execute(ctx, stmts, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return "", fmt.Errorf("persisting scan run %s: %w", runID, err)
	}

	has, idx, errStr := resp.HasError()
	if has {
		return "", fmt.Errorf("persisting scan run %s: %d -> %s", runID, idx, errStr)
	}

	return runID, nil
}
