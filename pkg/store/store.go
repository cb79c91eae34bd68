// Package store persists per-session chat history: an append-only,
// ordered message log plus one rolling summary string per session.
//
// Each method is atomic on its own. Sequences of calls (append, then
// trim) are not transactional; readers only ever look at the tail of the
// log, so an interrupted sequence corrects itself on the next request.
package store

import (
	"context"
	"fmt"

	"github.com/kadirpekel/memchat/pkg/config"
	"github.com/kadirpekel/memchat/pkg/memory"
)

// Store manages session history.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetSummary returns the stored summary, trimmed. Returns "" if none.
	GetSummary(ctx context.Context, sessionID string) (string, error)

	// GetLastMessages returns up to limit most recent messages, oldest
	// first. limit <= 0 returns nothing.
	GetLastMessages(ctx context.Context, sessionID string, limit int) ([]memory.Message, error)

	// AppendMessages appends msgs to the end of the log in order.
	AppendMessages(ctx context.Context, sessionID string, msgs ...memory.Message) error

	// SetSummary replaces the session's summary.
	SetSummary(ctx context.Context, sessionID string, summary string) error

	// TrimMessages keeps only the last keepLast messages. keepLast <= 0
	// clears the log. The summary is untouched.
	TrimMessages(ctx context.Context, sessionID string, keepLast int) error

	// Len returns the number of stored messages.
	Len(ctx context.Context, sessionID string) (int, error)

	// Purge removes the log and the summary.
	Purge(ctx context.Context, sessionID string) error

	// Close releases the backend connection.
	Close() error
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.StoreInMemory:
		return NewInMemory(), nil
	case config.StoreRedis:
		return NewRedisFromURL(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
	case config.StoreSQL:
		return OpenSQL(ctx, cfg.SQL)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s (supported: inmemory, redis, sql)", cfg.Backend)
	}
}
