package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"minerva-ai/minerva/pkg/config"
	"minerva-ai/minerva/pkg/types"
)

// SQLiteStore implements Store using SQLite. It uses a write-ahead log
// for better concurrent read performance and prepared statements for
// the hot queries.
type SQLiteStore struct {
	db *sql.DB

	saveStmt   *sql.Stmt
	updateStmt *sql.Stmt
	findStmt   *sql.Stmt
	listStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at cfg.Path and
// initializes the schema.
func NewSQLiteStore(cfg *config.StoreConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	busyTimeout := cfg.BusyTimeout
	if busyTimeout == 0 {
		busyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(busyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'free',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (user_id, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_user_id ON analyses(user_id);
	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO analyses (id, user_id, name, kind, content, payment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing save statement: %w", err)
	}

	s.updateStmt, err = s.db.Prepare(`
		UPDATE analyses
		SET name = ?, content = ?, payment_status = ?, updated_at = ?
		WHERE user_id = ? AND kind = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing update statement: %w", err)
	}

	s.findStmt, err = s.db.Prepare(`
		SELECT id FROM analyses WHERE user_id = ? AND kind = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing find statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, user_id, name, kind, content, payment_status, created_at, updated_at
		FROM analyses
		WHERE user_id = ?
		ORDER BY created_at DESC
	`)
	if err != nil {
		return fmt.Errorf("preparing list statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM analyses WHERE user_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing delete statement: %w", err)
	}

	return nil
}

// SaveAnalysis upserts the record for (UserID, Kind). A fresh UUID is
// assigned on insert; updates keep the existing ID.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, analysis Analysis) (string, error) {
	now := time.Now()

	var existingID string
	err := s.findStmt.QueryRowContext(ctx, analysis.UserID, string(analysis.Kind)).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		id := analysis.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err = s.saveStmt.ExecContext(ctx,
			id, analysis.UserID, analysis.Name, string(analysis.Kind),
			analysis.Content, analysis.PaymentStatus, now.Unix(), now.Unix())
		if err != nil {
			return "", fmt.Errorf("inserting analysis: %w", err)
		}
		return id, nil

	case err != nil:
		return "", fmt.Errorf("looking up analysis: %w", err)

	default:
		_, err = s.updateStmt.ExecContext(ctx,
			analysis.Name, analysis.Content, analysis.PaymentStatus, now.Unix(),
			analysis.UserID, string(analysis.Kind))
		if err != nil {
			return "", fmt.Errorf("updating analysis: %w", err)
		}
		return existingID, nil
	}
}

// UserAnalyses returns a user's records, newest first.
func (s *SQLiteStore) UserAnalyses(ctx context.Context, userID int64) ([]Analysis, error) {
	rows, err := s.listStmt.QueryContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var analyses []Analysis
	for rows.Next() {
		var a Analysis
		var kind string
		var createdAt, updatedAt int64
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &kind, &a.Content,
			&a.PaymentStatus, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning analysis row: %w", err)
		}
		a.Kind = types.Kind(kind)
		a.CreatedAt = time.Unix(createdAt, 0)
		a.UpdatedAt = time.Unix(updatedAt, 0)
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analysis rows: %w", err)
	}
	return analyses, nil
}

// DeleteUser removes all records for a user.
func (s *SQLiteStore) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := s.deleteStmt.ExecContext(ctx, userID); err != nil {
		return fmt.Errorf("deleting user analyses: %w", err)
	}
	return nil
}

// Close closes the prepared statements and the database.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.saveStmt, s.updateStmt, s.findStmt, s.listStmt, s.deleteStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
