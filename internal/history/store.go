// Package history keeps a SQLite record of finished runs. Credentials are
// never part of a record.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"fjacquet/budget-sync/internal/fileutils"
	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/models"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store persists run records.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (and migrates) the database at dbPath.
func Open(dbPath string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	if err := fileutils.EnsureDirectoryExists(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger.WithField(logging.FieldComponent, logging.ComponentHistory)}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts a finished run.
func (s *Store) Record(ctx context.Context, run models.RunRecord) error {
	logJSON, err := json.Marshal(run.Log)
	if err != nil {
		return fmt.Errorf("encode run log: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, budget_name, status, error_kind,
			records, dropped, zeroed, groups_created, subcategories_created, amounts_set, failures, log)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.BudgetName, run.Status, run.ErrorKind,
		run.Records, run.Dropped, run.Zeroed, run.GroupsCreated, run.SubcategoriesCreated, run.AmountsSet, run.Failures,
		string(logJSON))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	s.logger.Debug("Run recorded",
		logging.F(logging.FieldRunID, run.ID),
		logging.F(logging.FieldStatus, run.Status))
	return nil
}

const selectColumns = `id, started_at, finished_at, budget_name, status, error_kind,
	records, dropped, zeroed, groups_created, subcategories_created, amounts_set, failures, log`

// List returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.RunRecord
	for rows.Next() {
		run, err := scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run by ID.
func (s *Store) Get(ctx context.Context, id string) (models.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM runs WHERE id = ?`, id)
	run, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RunRecord{}, ErrNotFound
	}
	return run, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(sc scanner) (models.RunRecord, error) {
	var (
		run               models.RunRecord
		started, finished string
		logJSON           string
	)
	err := sc.Scan(&run.ID, &started, &finished, &run.BudgetName, &run.Status, &run.ErrorKind,
		&run.Records, &run.Dropped, &run.Zeroed, &run.GroupsCreated, &run.SubcategoriesCreated,
		&run.AmountsSet, &run.Failures, &logJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	if err := json.Unmarshal([]byte(logJSON), &run.Log); err != nil {
		return run, fmt.Errorf("decode run log: %w", err)
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
