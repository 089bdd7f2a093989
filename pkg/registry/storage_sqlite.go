package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS mirrors (
    id TEXT PRIMARY KEY,
    endpoint TEXT NOT NULL UNIQUE,
    p256dh TEXT NOT NULL,
    auth TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    last_seen_at DATETIME NOT NULL,
    active INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_mirrors_active ON mirrors(active);

CREATE TABLE IF NOT EXISTS close_events (
    id TEXT PRIMARY KEY,
    notification_id TEXT NOT NULL,
    closed_at DATETIME NOT NULL
);
`

// SQLiteStore persists mirrors in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, m *Mirror) error {
	now := time.Now().UTC()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mirrors (id, endpoint, p256dh, auth, user_id, created_at, last_seen_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			user_id = CASE WHEN excluded.user_id != '' THEN excluded.user_id ELSE mirrors.user_id END,
			last_seen_at = excluded.last_seen_at,
			active = 1`,
		m.ID, m.Endpoint, m.Keys.P256dh, m.Keys.Auth, m.UserID, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert mirror: %w", err)
	}

	// Re-read to surface the identity of a pre-existing row.
	stored, err := s.Get(ctx, m.Endpoint)
	if err != nil {
		return err
	}
	if stored != nil {
		*m = *stored
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, endpoint string) (*Mirror, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, endpoint, p256dh, auth, user_id, created_at, last_seen_at, active
		FROM mirrors WHERE endpoint = ?`, endpoint)
	m, err := scanMirror(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mirror: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) List(ctx context.Context, activeOnly bool) ([]*Mirror, error) {
	query := `SELECT id, endpoint, p256dh, auth, user_id, created_at, last_seen_at, active
		FROM mirrors ORDER BY created_at`
	if activeOnly {
		query = `SELECT id, endpoint, p256dh, auth, user_id, created_at, last_seen_at, active
			FROM mirrors WHERE active = 1 ORDER BY created_at`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list mirrors: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*Mirror
	for rows.Next() {
		m, err := scanMirror(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mirror: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkInactive(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE mirrors SET active = 0 WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("failed to mark mirror inactive: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM mirrors WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("failed to delete mirror: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteInactive(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mirrors WHERE active = 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive mirrors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

func (s *SQLiteStore) RecordClose(ctx context.Context, notificationID string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO close_events (id, notification_id, closed_at) VALUES (?, ?, ?)`,
		uuid.New().String(), notificationID, ts.UTC())
	if err != nil {
		return fmt.Errorf("failed to record close event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMirror(row rowScanner) (*Mirror, error) {
	var m Mirror
	var active int
	if err := row.Scan(&m.ID, &m.Endpoint, &m.Keys.P256dh, &m.Keys.Auth, &m.UserID,
		&m.CreatedAt, &m.LastSeenAt, &active); err != nil {
		return nil, err
	}
	m.Active = active != 0
	return &m, nil
}
