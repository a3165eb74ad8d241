package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/atelier-ai/atelier/pkg/config"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    id VARCHAR(255) PRIMARY KEY,
    agent VARCHAR(255) NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);`

const messagesSchemaSQLite = `
CREATE TABLE IF NOT EXISTS session_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id VARCHAR(255) NOT NULL,
    seq INTEGER NOT NULL,
    role VARCHAR(50) NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON session_messages(session_id, seq);`

const messagesSchemaPostgres = `
CREATE TABLE IF NOT EXISTS session_messages (
    id SERIAL PRIMARY KEY,
    session_id VARCHAR(255) NOT NULL,
    seq INTEGER NOT NULL,
    role VARCHAR(50) NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON session_messages(session_id, seq);`

const messagesSchemaMySQL = `
CREATE TABLE IF NOT EXISTS session_messages (
    id INTEGER PRIMARY KEY AUTO_INCREMENT,
    session_id VARCHAR(255) NOT NULL,
    seq INTEGER NOT NULL,
    role VARCHAR(50) NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);`

// SQLStore persists sessions in sqlite, postgres, or mysql.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

func NewSQLStore(cfg config.SQLConfig) (*SQLStore, error) {
	driverName := cfg.Driver
	dsn := cfg.DSN
	if cfg.Driver == "sqlite" {
		driverName = "sqlite3"
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database dir: %w", err)
			}
		}
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	store := &SQLStore{db: db, dialect: cfg.Driver}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	messagesSchema := messagesSchemaSQLite
	switch s.dialect {
	case "postgres":
		messagesSchema = messagesSchemaPostgres
	case "mysql":
		messagesSchema = messagesSchemaMySQL
	}

	if _, err := s.db.ExecContext(ctx, sessionsSchema); err != nil {
		return err
	}
	for _, stmt := range strings.Split(messagesSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *SQLStore) CreateSession(ctx context.Context, agent string) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		Agent:     agent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO sessions (id, agent, created_at, updated_at) VALUES (?, ?, ?, ?)`),
		session.ID, session.Agent, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, agent, created_at, updated_at FROM sessions WHERE id = ?`), id)

	session := &Session{}
	if err := row.Scan(&session.ID, &session.Agent, &session.CreatedAt, &session.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

func (s *SQLStore) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent, created_at, updated_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		session := &Session{}
		if err := rows.Scan(&session.ID, &session.Agent, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM session_messages WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

func (s *SQLStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int
	row := tx.QueryRowContext(ctx,
		s.rebind(`SELECT COALESCE(MAX(seq), 0) + 1 FROM session_messages WHERE session_id = ?`), sessionID)
	if err := row.Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO session_messages (session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`),
		sessionID, seq, role, content, now); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		s.rebind(`UPDATE sessions SET updated_at = ? WHERE id = ?`), now, sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	return tx.Commit()
}

func (s *SQLStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT seq, role, content, created_at FROM session_messages WHERE session_id = ? ORDER BY seq`),
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		msg := Message{}
		if err := rows.Scan(&msg.Seq, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error { return s.db.Close() }
