package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/beaconkit/beacon/pkg/errors"
	"github.com/beaconkit/beacon/pkg/logline"
)

const logEntryTable = "log_entries"

// SQLiteSink indexes entries in a local SQLite database. It stands in
// for a remote search index when shipping logs off the host is not
// wanted.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path and ensures schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New(errors.CodeSinkFailure, "failed to open database", err).
			WithContext("path", path)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, errors.New(errors.CodeSinkFailure, "failed to ensure schema", err)
	}
	return &SQLiteSink{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			ts INTEGER NOT NULL,
			level TEXT NOT NULL,
			logger TEXT NOT NULL,
			message TEXT NOT NULL
		);`, logEntryTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_ts ON %s(ts);`, logEntryTable, logEntryTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_level ON %s(level);`, logEntryTable, logEntryTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_logger ON %s(logger);`, logEntryTable, logEntryTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Write(ctx context.Context, entries []logline.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(errors.CodeSinkFailure, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, ts, level, logger, message) VALUES (?, ?, ?, ?, ?)", logEntryTable))
	if err != nil {
		return errors.New(errors.CodeSinkFailure, "failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), e.Timestamp.UnixMilli(), e.Level, e.Package, e.Message); err != nil {
			return errors.New(errors.CodeSinkFailure, "failed to insert entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.New(errors.CodeSinkFailure, "failed to commit batch", err)
	}
	return nil
}

// Count returns the number of indexed entries, optionally filtered by level.
func (s *SQLiteSink) Count(ctx context.Context, level string) (int64, error) {
	var (
		count int64
		err   error
	)
	if level == "" {
		err = s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", logEntryTable)).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE level = ?", logEntryTable), level).Scan(&count)
	}
	if err != nil {
		return 0, errors.New(errors.CodeSinkFailure, "failed to count entries", err)
	}
	return count, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
