package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// Store is a single-file domain.DurableStore for single-node deployments.
type Store struct {
	db   *sql.DB
	path string
}

var _ domain.DurableStore = (*Store)(nil)

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path: %w", domain.ErrNotConfigured)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// replication writes arrive from many goroutines; sqlite takes one writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		author TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) WriteMessage(ctx context.Context, sessionID domain.SessionID, msg *domain.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (id, session_id, author, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(msg.ID), string(sessionID), string(msg.Author), msg.Text, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite WriteMessage: %w", err)
	}
	return nil
}

// LoadHistory returns the newest `limit` messages, oldest first.
func (s *Store) LoadHistory(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = -1 // no limit in sqlite
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author, text, created_at FROM (
			SELECT rowid AS seq, id, author, text, created_at
			FROM messages WHERE session_id = ?
			ORDER BY created_at DESC, seq DESC LIMIT ?
		) ORDER BY created_at ASC, seq ASC
	`, string(sessionID), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite LoadHistory: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var (
			id, author, text string
			createdAt        int64
		)
		if err := rows.Scan(&id, &author, &text, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite LoadHistory scan: %w", err)
		}
		out = append(out, &domain.Message{
			ID:        domain.MessageID(id),
			SessionID: sessionID,
			Author:    domain.Role(author),
			Text:      text,
			CreatedAt: time.Unix(0, createdAt).UTC(),
		})
	}
	return out, rows.Err()
}

func (s *Store) DeleteHistory(ctx context.Context, sessionID domain.SessionID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, string(sessionID)); err != nil {
		return fmt.Errorf("sqlite DeleteHistory: %w", err)
	}
	return nil
}
