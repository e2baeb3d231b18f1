package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/nsetinspect/internal/model"
)

// DBFileName is the name of the history database file inside the database directory.
const DBFileName = "nsetinspect.db"

// ErrDatabaseNotFound is returned by Open when the database does not exist
// and CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("history database not found")

// timestampLayout is the layout inspections are stored with.
const timestampLayout = "2006-01-02 15:04:05"

// RegistryKey returns the path under which inspections of a registry are
// stored: the absolute, cleaned path.
func RegistryKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// HistoryDB provides SQLite-based storage for inspection results.
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
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
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
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per inspection run
	CREATE TABLE IF NOT EXISTS inspections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		registry_path TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		registry_bytes INTEGER NOT NULL,
		token_count INTEGER NOT NULL,
		mean_length REAL,
		min_length INTEGER,
		max_length INTEGER,
		anomaly_count INTEGER NOT NULL,
		end_state TEXT NOT NULL,
		category_summary TEXT,
		inspection_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_inspections_registry ON inspections(registry_path);
	CREATE INDEX IF NOT EXISTS idx_inspections_timestamp ON inspections(timestamp);

	-- Flagged tokens of each inspection
	CREATE TABLE IF NOT EXISTS anomalies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		inspection_id INTEGER NOT NULL REFERENCES inspections(id) ON DELETE CASCADE,
		token_id INTEGER NOT NULL,
		category TEXT NOT NULL,
		text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_anomalies_inspection ON anomalies(inspection_id);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveInspection stores an inspection and its anomalies in one transaction.
// It returns the database ID of the new row.
func (hdb *HistoryDB) SaveInspection(ctx context.Context, inspection *model.Inspection) (int64, error) {
	inspectionJSON, err := json.Marshal(inspection)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize inspection: %w", err)
	}

	a := inspection.Analysis
	counts := a.CountByCategory()
	categories := make(map[string]int, len(model.Categories))
	for _, c := range model.Categories {
		categories[c.Key()] = counts[c]
	}
	categoryJSON, _ := json.Marshal(categories) //nolint:errcheck,errchkjson // map[string]int always marshals

	var mean sql.NullFloat64
	var minLen, maxLen sql.NullInt64
	if !a.IsEmpty() {
		mean = sql.NullFloat64{Float64: a.Summary.Mean, Valid: true}
		minLen = sql.NullInt64{Int64: int64(a.Summary.Min), Valid: true}
		maxLen = sql.NullInt64{Int64: int64(a.Summary.Max), Valid: true}
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after Commit

	result, err := tx.ExecContext(ctx, `
	INSERT INTO inspections (run_id, registry_path, timestamp, registry_bytes, token_count,
		mean_length, min_length, max_length, anomaly_count, end_state, category_summary, inspection_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inspection.ID,
		RegistryKey(inspection.RegistryPath),
		inspection.DateInspected.UTC().Format(timestampLayout),
		inspection.RegistryBytes,
		a.TotalTokens(),
		mean,
		minLen,
		maxLen,
		len(a.Anomalies),
		inspection.End,
		string(categoryJSON),
		string(inspectionJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save inspection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inspection id: %w", err)
	}

	if a.HasAnomalies() {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anomalies (inspection_id, token_id, category, text)
		VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare anomaly insert: %w", err)
		}
		defer stmt.Close()

		for _, an := range a.Anomalies {
			if _, err := stmt.ExecContext(ctx, id, an.ID, an.Category.Key(), an.Text); err != nil {
				return 0, fmt.Errorf("failed to save anomaly: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit inspection: %w", err)
	}

	return id, nil
}

// InspectionMetadata contains summary information about a stored inspection.
// This is used for displaying history without loading the full inspection.
type InspectionMetadata struct {
	// ID is the unique identifier of the inspection in the database.
	ID int64 `json:"id"`

	// RunID is the inspection's own identifier.
	RunID string `json:"run_id"`

	// RegistryPath is the inspected registry.
	RegistryPath string `json:"registry_path"`

	// Timestamp is when the inspection was performed.
	Timestamp time.Time `json:"timestamp"`

	// RegistryBytes is the registry file size.
	RegistryBytes int64 `json:"registry_bytes"`

	// TokenCount is the number of decoded tokens.
	TokenCount int `json:"token_count"`

	// MeanLength is the mean token length; zero for an empty registry.
	MeanLength float64 `json:"mean_length"`

	// AnomalyCount is the number of flagged tokens.
	AnomalyCount int `json:"anomaly_count"`

	// End is how decoding stopped.
	End string `json:"end"`

	// Categories counts anomalies per category key.
	Categories map[string]int `json:"categories"`
}

// GetInspectionHistory retrieves inspection metadata for a registry, newest first.
// The path is matched through RegistryKey.
func (hdb *HistoryDB) GetInspectionHistory(ctx context.Context, registryPath string) ([]InspectionMetadata, error) {
	query := `
	SELECT id, run_id, registry_path, timestamp, registry_bytes, token_count,
		mean_length, anomaly_count, end_state, category_summary
	FROM inspections
	WHERE registry_path = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, RegistryKey(registryPath))
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection history: %w", err)
	}
	defer rows.Close()

	var results []InspectionMetadata
	for rows.Next() {
		var meta InspectionMetadata
		var timestamp string
		var mean sql.NullFloat64
		var categoryJSON sql.NullString

		if err := rows.Scan(
			&meta.ID,
			&meta.RunID,
			&meta.RegistryPath,
			&timestamp,
			&meta.RegistryBytes,
			&meta.TokenCount,
			&mean,
			&meta.AnomalyCount,
			&meta.End,
			&categoryJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.MeanLength = mean.Float64

		meta.Categories = make(map[string]int)
		if categoryJSON.Valid && categoryJSON.String != "" {
			if err := json.Unmarshal([]byte(categoryJSON.String), &meta.Categories); err != nil {
				meta.Categories = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetLatestInspection retrieves the most recent inspection of a registry.
// It returns nil without error when the registry was never inspected.
func (hdb *HistoryDB) GetLatestInspection(ctx context.Context, registryPath string) (*model.Inspection, error) {
	query := `
	SELECT inspection_json FROM inspections
	WHERE registry_path = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	return hdb.queryInspection(ctx, query, RegistryKey(registryPath))
}

// GetInspectionByID retrieves an inspection by its database ID.
// It returns nil without error when no such inspection exists.
func (hdb *HistoryDB) GetInspectionByID(ctx context.Context, id int64) (*model.Inspection, error) {
	query := `
	SELECT inspection_json FROM inspections
	WHERE id = ?
	`

	return hdb.queryInspection(ctx, query, id)
}

// queryInspection decodes the inspection_json column of a single-row query.
func (hdb *HistoryDB) queryInspection(ctx context.Context, query string, args ...any) (*model.Inspection, error) {
	var inspectionJSON string
	err := hdb.db.QueryRowContext(ctx, query, args...).Scan(&inspectionJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}

	var inspection model.Inspection
	if err := json.Unmarshal([]byte(inspectionJSON), &inspection); err != nil {
		return nil, fmt.Errorf("failed to parse inspection: %w", err)
	}

	return &inspection, nil
}

// ListRegistries returns every registry path with at least one inspection.
func (hdb *HistoryDB) ListRegistries(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT registry_path FROM inspections
	ORDER BY registry_path
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list registries: %w", err)
	}
	defer rows.Close()

	var registries []string
	for rows.Next() {
		var registry string
		if err := rows.Scan(&registry); err != nil {
			return nil, fmt.Errorf("failed to scan registry: %w", err)
		}
		registries = append(registries, registry)
	}

	return registries, rows.Err()
}

// GetAnomalyTokens returns the category of every flagged token of an
// inspection, keyed by token id.
func (hdb *HistoryDB) GetAnomalyTokens(ctx context.Context, inspectionID int64) (map[uint32]model.Category, error) {
	query := `
	SELECT token_id, category FROM anomalies
	WHERE inspection_id = ?
	ORDER BY id
	`

	rows, err := hdb.db.QueryContext(ctx, query, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get anomalies: %w", err)
	}
	defer rows.Close()

	tokens := make(map[uint32]model.Category)
	for rows.Next() {
		var tokenID int64
		var key string
		if err := rows.Scan(&tokenID, &key); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}

		var c model.Category
		if err := c.UnmarshalText([]byte(key)); err != nil {
			continue // Skip categories written by a newer version
		}
		tokens[uint32(tokenID)] = c //nolint:gosec // token_id is stored from a uint32
	}

	return tokens, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // Layout used by SaveInspection
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
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
