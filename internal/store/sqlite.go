package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps session history in a SQLite file so it survives restarts.
// API keys are never written here.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS turns (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT UNIQUE NOT NULL, -- UUID
        session_id TEXT NOT NULL,
        app TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_turns_session_app ON turns (session_id, app, seq);

    CREATE TABLE IF NOT EXISTS analyses (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT UNIQUE NOT NULL, -- UUID
        session_id TEXT NOT NULL,
        input TEXT NOT NULL,
        result_json TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_analyses_session ON analyses (session_id, seq);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Turn methods
func (s *SQLiteStore) AppendTurns(ctx context.Context, sessionID, app string, turns ...*Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin turn insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO turns (id, session_id, app, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare turn insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range turns {
		stamp(t, sessionID, app)
		if _, err := stmt.ExecContext(ctx, t.ID, t.SessionID, t.App, t.Role, t.Content, t.CreatedAt); err != nil {
			return fmt.Errorf("failed to execute turn insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turns: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Turns(ctx context.Context, sessionID, app string) ([]Turn, error) {
	query := "SELECT id, session_id, app, role, content, created_at FROM turns WHERE session_id = ? AND app = ? ORDER BY seq ASC"
	rows, err := s.db.QueryContext(ctx, query, sessionID, app)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.App, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Analysis methods
func (s *SQLiteStore) AppendAnalysis(ctx context.Context, sessionID string, a *Analysis) error {
	resultBytes, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	a.ID = uuid.NewString()
	a.SessionID = sessionID
	a.CreatedAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO analyses (id, session_id, input, result_json, created_at) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.SessionID, a.Input, string(resultBytes), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute analysis insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Analyses(ctx context.Context, sessionID string) ([]Analysis, error) {
	query := "SELECT id, session_id, input, result_json, created_at FROM analyses WHERE session_id = ? ORDER BY seq ASC"
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []Analysis
	for rows.Next() {
		var a Analysis
		var resultJSON string
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Input, &resultJSON, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		if err := json.Unmarshal([]byte(resultJSON), &a.Result); err != nil {
			log.Printf("Warning: failed to unmarshal analysis %s: %v. Skipping.", a.ID, err)
			continue
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func (s *SQLiteStore) Reset(ctx context.Context, sessionID, app string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ? AND app = ?", sessionID, app); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	if app == AnalysisApp {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM analyses WHERE session_id = ?", sessionID); err != nil {
			return fmt.Errorf("failed to delete analyses: %w", err)
		}
	}
	return nil
}
