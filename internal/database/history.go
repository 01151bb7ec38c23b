package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/overlaysurvey/internal/model"
	"github.com/nao1215/overlaysurvey/internal/stats"
	"github.com/nao1215/overlaysurvey/internal/topology"
)

// FileName is the name of the database file inside the data directory.
const FileName = "overlaysurvey.db"

var (
	// ErrRunNotFound is returned when no run matches the requested id.
	ErrRunNotFound = errors.New("survey run not found")

	// ErrAmbiguousRunID is returned when an id prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run id prefix matches more than one run")
)

// HistoryDB provides SQLite-based storage for finished survey runs.
//
// Design decision: We store every run in one database file in the data
// directory rather than one file per run. Comparing two runs is then a
// pair of queries, and listing past runs needs no directory scan.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// busyTimeoutMillis is how long a connection waits for a lock held by
// another process.
const busyTimeoutMillis = 5000

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite takes the open mode and pragmas in the DSN: rw
	// refuses to create a missing file, rwc creates it. The busy timeout
	// lets a second process wait for the writer instead of failing.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}
	dsn += "&_pragma=busy_timeout(" + strconv.Itoa(busyTimeoutMillis) + ")"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per finished crawl
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		node_url TEXT NOT NULL,
		self_id TEXT NOT NULL,
		self_version TEXT,
		started TEXT NOT NULL,
		finished TEXT NOT NULL,
		rounds INTEGER NOT NULL,
		node_count INTEGER NOT NULL,
		edge_count INTEGER NOT NULL,
		total_bytes INTEGER NOT NULL,
		digest TEXT NOT NULL,
		stats_json TEXT,
		created DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(digest);

	-- Topology of each run; ord keeps the crawl's discovery order
	CREATE TABLE IF NOT EXISTS run_nodes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		ord INTEGER NOT NULL,
		node_id TEXT NOT NULL,
		version TEXT,
		PRIMARY KEY (run_id, node_id)
	);

	CREATE TABLE IF NOT EXISTS run_edges (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		ord INTEGER NOT NULL,
		u TEXT NOT NULL,
		v TEXT NOT NULL,
		bytes_transferred INTEGER NOT NULL,
		PRIMARY KEY (run_id, u, v)
	);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one finished crawl as stored in the history.
type Run struct {
	// ID is a UUID. SaveRun assigns one when empty.
	ID string

	// NodeURL is the admin endpoint that was queried.
	NodeURL string

	Self     model.Node
	Started  time.Time
	Finished time.Time
	Rounds   int

	// The fields below are derived from the graph by SaveRun.
	NodeCount  int
	EdgeCount  int
	TotalBytes uint64
	Digest     string

	// Stats is nil when statistics were not computed.
	Stats *stats.Statistics
}

// SaveRun stores run together with its topology in one transaction.
// The derived fields of run are filled in from g.
func (h *HistoryDB) SaveRun(ctx context.Context, run *Run, g *topology.Graph) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.NodeCount = g.NodeCount()
	run.EdgeCount = g.EdgeCount()
	run.TotalBytes = g.TotalBytes()
	run.Digest = g.Digest()

	var statsJSON sql.NullString
	if run.Stats != nil {
		data, err := json.Marshal(run.Stats)
		if err != nil {
			return fmt.Errorf("failed to serialize statistics: %w", err)
		}
		statsJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, node_url, self_id, self_version, started, finished,
		rounds, node_count, edge_count, total_bytes, digest, stats_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.NodeURL, run.Self.ID, run.Self.Version,
		formatTimestamp(run.Started), formatTimestamp(run.Finished),
		run.Rounds, run.NodeCount, run.EdgeCount, int64(run.TotalBytes), //nolint:gosec // traffic sums stay far below 2^63
		run.Digest, statsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, n := range g.Nodes() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_nodes (run_id, ord, node_id, version) VALUES (?, ?, ?, ?)`,
			run.ID, i, n.ID, n.Version,
		); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.ID, err)
		}
	}

	for i, e := range g.Edges() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_edges (run_id, ord, u, v, bytes_transferred) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, e.U, e.V, int64(e.BytesTransferred), //nolint:gosec // see above
		); err != nil {
			return fmt.Errorf("failed to insert edge %s-%s: %w", e.U, e.V, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, node_url, self_id, self_version, started, finished,
	rounds, node_count, edge_count, total_bytes, digest, stats_json`

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started DESC, created DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given id. A unique id prefix is accepted.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*Run, error) {
	fullID, err := h.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	row := h.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, fullID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// LoadGraph rebuilds the topology stored for a run, in discovery order.
func (h *HistoryDB) LoadGraph(ctx context.Context, id string) (*topology.Graph, error) {
	fullID, err := h.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	g := topology.New()

	nodeRows, err := h.db.QueryContext(ctx,
		`SELECT node_id, version FROM run_nodes WHERE run_id = ? ORDER BY ord`, fullID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer nodeRows.Close()

	for nodeRows.Next() {
		var nodeID string
		var version sql.NullString
		if err := nodeRows.Scan(&nodeID, &version); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		g.AddNode(nodeID, version.String)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}

	edgeRows, err := h.db.QueryContext(ctx,
		`SELECT u, v, bytes_transferred FROM run_edges WHERE run_id = ? ORDER BY ord`, fullID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var u, v string
		var weight int64
		if err := edgeRows.Scan(&u, &v, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		g.AddEdge(u, v, uint64(weight)) //nolint:gosec // stored from a uint64
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}

	return g, nil
}

// resolveID expands an id prefix to the full id of exactly one run.
func (h *HistoryDB) resolveID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, prefix, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate run ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
	}
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run               Run
		selfVersion       sql.NullString
		started, finished string
		totalBytes        int64
		statsJSON         sql.NullString
	)

	err := row.Scan(
		&run.ID, &run.NodeURL, &run.Self.ID, &selfVersion, &started, &finished,
		&run.Rounds, &run.NodeCount, &run.EdgeCount, &totalBytes, &run.Digest, &statsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Self.Version = selfVersion.String
	run.Started = parseTimestamp(started)
	run.Finished = parseTimestamp(finished)
	run.TotalBytes = uint64(totalBytes) //nolint:gosec // stored from a uint64

	if statsJSON.Valid {
		var st stats.Statistics
		if err := json.Unmarshal([]byte(statsJSON.String), &st); err != nil {
			return nil, fmt.Errorf("failed to parse statistics of run %s: %w", run.ID, err)
		}
		run.Stats = &st
	}

	return &run, nil
}

// formatTimestamp stores times in UTC so that lexical order is time order.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // written by formatTimestamp
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
