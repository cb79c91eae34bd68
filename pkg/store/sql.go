package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kadirpekel/memchat/pkg/config"
	"github.com/kadirpekel/memchat/pkg/memory"
)

const sqlSchemaVersion = 1

// SQL stores sessions in two tables:
//
//	chat_messages(session_id, seq, role, content, created_at)
//	chat_summaries(session_id, summary, updated_at)
//
// seq increases per session; the log order is seq order.
type SQL struct {
	db      *sql.DB
	dialect string
}

var _ Store = (*SQL)(nil)

// OpenSQL opens the configured database, checks the connection and applies
// the schema.
func OpenSQL(ctx context.Context, cfg config.SQLConfig) (*SQL, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Driver == "sqlite" && cfg.DSN != ":memory:" && !strings.HasPrefix(cfg.DSN, "file:") {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(cfg.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	s, err := NewSQL(ctx, db, cfg.Driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL wraps an open database. dialect is "sqlite", "postgres" or
// "mysql".
func NewSQL(ctx context.Context, db *sql.DB, dialect string) (*SQL, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQL{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQL) schemaStatements() []string {
	idType, seqType := "TEXT", "INTEGER"
	switch s.dialect {
	case "postgres":
		idType, seqType = "VARCHAR(255)", "BIGINT"
	case "mysql":
		idType, seqType = "VARCHAR(255)", "BIGINT"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
    session_id ` + idType + ` NOT NULL,
    seq ` + seqType + ` NOT NULL,
    role VARCHAR(16) NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (session_id, seq)
)`,
		`CREATE TABLE IF NOT EXISTS chat_summaries (
    session_id ` + idType + ` NOT NULL PRIMARY KEY,
    summary TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	}
}

// migrate creates the schema. All DDL uses IF NOT EXISTS, so re-applying
// is harmless.
func (s *SQL) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS memchat_schema_version (version INTEGER NOT NULL PRIMARY KEY)"); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM memchat_schema_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current >= sqlSchemaVersion {
		return nil
	}

	for _, stmt := range s.schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO memchat_schema_version (version) VALUES (?)"), sqlSchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQL) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// GetSummary implements Store.
func (s *SQL) GetSummary(ctx context.Context, sessionID string) (string, error) {
	var summary string
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT summary FROM chat_summaries WHERE session_id = ?"), sessionID,
	).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get summary: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// GetLastMessages implements Store.
func (s *SQL) GetLastMessages(ctx context.Context, sessionID string, limit int) ([]memory.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT role, content
FROM chat_messages
WHERE session_id = ?
ORDER BY seq DESC
LIMIT ?`), sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []memory.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, memory.Message{Role: memory.Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	// Reverse to chronological order.
	slices.Reverse(msgs)
	return msgs, nil
}

// AppendMessages implements Store. The messages are inserted in one
// transaction.
func (s *SQL) AppendMessages(ctx context.Context, sessionID string, msgs ...memory.Message) (err error) {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lastSeq int64
	if err = tx.QueryRowContext(ctx,
		s.rebind("SELECT COALESCE(MAX(seq), 0) FROM chat_messages WHERE session_id = ?"), sessionID,
	).Scan(&lastSeq); err != nil {
		return fmt.Errorf("failed to get sequence number: %w", err)
	}

	insert := s.rebind("INSERT INTO chat_messages (session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)")
	now := time.Now().UTC()
	for i, msg := range msgs {
		if _, err = tx.ExecContext(ctx, insert, sessionID, lastSeq+int64(i)+1, string(msg.Role), msg.Content, now); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetSummary implements Store.
func (s *SQL) SetSummary(ctx context.Context, sessionID string, summary string) error {
	query := `
INSERT INTO chat_summaries (session_id, summary, updated_at) VALUES (?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at`
	if s.dialect == "mysql" {
		query = `
INSERT INTO chat_summaries (session_id, summary, updated_at) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE summary = VALUES(summary), updated_at = VALUES(updated_at)`
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(query), sessionID, summary, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	return nil
}

// TrimMessages implements Store. seq values of the surviving rows stay
// contiguous because only a prefix is ever deleted.
func (s *SQL) TrimMessages(ctx context.Context, sessionID string, keepLast int) (err error) {
	if keepLast <= 0 {
		if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM chat_messages WHERE session_id = ?"), sessionID); err != nil {
			return fmt.Errorf("failed to trim messages: %w", err)
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lastSeq int64
	if err = tx.QueryRowContext(ctx,
		s.rebind("SELECT COALESCE(MAX(seq), 0) FROM chat_messages WHERE session_id = ?"), sessionID,
	).Scan(&lastSeq); err != nil {
		return fmt.Errorf("failed to get sequence number: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		s.rebind("DELETE FROM chat_messages WHERE session_id = ? AND seq <= ?"), sessionID, lastSeq-int64(keepLast),
	); err != nil {
		return fmt.Errorf("failed to trim messages: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Len implements Store.
func (s *SQL) Len(ctx context.Context, sessionID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT COUNT(*) FROM chat_messages WHERE session_id = ?"), sessionID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// Purge implements Store.
func (s *SQL) Purge(ctx context.Context, sessionID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.rebind("DELETE FROM chat_messages WHERE session_id = ?"), sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.rebind("DELETE FROM chat_summaries WHERE session_id = ?"), sessionID); err != nil {
		return fmt.Errorf("failed to delete summary: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQL) Close() error {
	return s.db.Close()
}
