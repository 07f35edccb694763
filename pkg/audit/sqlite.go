package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. An empty path gives a
// private in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	if path == "" {
		// every pooled connection would get its own empty :memory: database
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewSQLiteStore creates a SQLite-backed store and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Record stores a single record.
func (s *SQLiteStore) Record(ctx context.Context, rec Record) error {
	args, err := encodeArgs(rec.Args)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tool_calls (
			call_id, tool, role, args_json, outcome, error_text, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Tool,
		rec.Role,
		string(args),
		rec.Outcome,
		rec.Error,
		normalizeTime(rec.StartedAt),
		normalizeTime(rec.FinishedAt),
	)
	return err
}

// List returns matching records, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := `
		SELECT call_id, tool, role, args_json, outcome, error_text, started_at, finished_at
		FROM tool_calls
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.Tool != "" {
		addFilter("tool = ?", filter.Tool)
	}
	if filter.Role != "" {
		addFilter("role = ?", filter.Role)
	}
	if filter.Outcome != "" {
		addFilter("outcome = ?", filter.Outcome)
	}
	query += where + " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec      Record
			argsJSON sql.NullString
			errText  sql.NullString
			started  sql.NullTime
			finished sql.NullTime
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Tool,
			&rec.Role,
			&argsJSON,
			&rec.Outcome,
			&errText,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if argsJSON.Valid {
			if decoded, err := decodeArgs([]byte(argsJSON.String)); err == nil {
				rec.Args = decoded
			}
		}
		rec.Error = errText.String
		if started.Valid {
			rec.StartedAt = started.Time
		}
		if finished.Valid {
			rec.FinishedAt = finished.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tool_calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			call_id TEXT NOT NULL,
			tool TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			args_json TEXT,
			outcome TEXT NOT NULL,
			error_text TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tool_calls_tool ON tool_calls(tool);
		CREATE INDEX IF NOT EXISTS idx_tool_calls_role ON tool_calls(role);
		CREATE INDEX IF NOT EXISTS idx_tool_calls_outcome ON tool_calls(outcome);
	`)
	return err
}
