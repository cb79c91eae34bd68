package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kadirpekel/memchat/pkg/memory"
)

// DefaultKeyPrefix namespaces session keys in Redis.
const DefaultKeyPrefix = "chat:session:"

// Redis stores each session as two keys:
//
//	{prefix}{id}:messages  list of JSON {"role", "content"}, oldest first
//	{prefix}{id}:summary   string
type Redis struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// NewRedisFromURL connects to the redis:// URL and checks the connection.
func NewRedisFromURL(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return NewRedis(client, prefix), nil
}

func (s *Redis) messagesKey(sessionID string) string {
	return s.prefix + sessionID + ":messages"
}

func (s *Redis) summaryKey(sessionID string) string {
	return s.prefix + sessionID + ":summary"
}

// GetSummary implements Store.
func (s *Redis) GetSummary(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.Get(ctx, s.summaryKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get summary: %w", err)
	}
	return strings.TrimSpace(val), nil
}

// GetLastMessages implements Store.
func (s *Redis) GetLastMessages(ctx context.Context, sessionID string, limit int) ([]memory.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, s.messagesKey(sessionID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	msgs := make([]memory.Message, 0, len(raw))
	for i, item := range raw {
		var msg memory.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message %d: %w", i, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// AppendMessages implements Store. All messages go in one RPUSH.
func (s *Redis) AppendMessages(ctx context.Context, sessionID string, msgs ...memory.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for i, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode message %d: %w", i, err)
		}
		values = append(values, string(data))
	}

	if err := s.client.RPush(ctx, s.messagesKey(sessionID), values...).Err(); err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

// SetSummary implements Store.
func (s *Redis) SetSummary(ctx context.Context, sessionID string, summary string) error {
	if err := s.client.Set(ctx, s.summaryKey(sessionID), summary, 0).Err(); err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	return nil
}

// TrimMessages implements Store.
func (s *Redis) TrimMessages(ctx context.Context, sessionID string, keepLast int) error {
	key := s.messagesKey(sessionID)

	var err error
	if keepLast <= 0 {
		err = s.client.Del(ctx, key).Err()
	} else {
		err = s.client.LTrim(ctx, key, int64(-keepLast), -1).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to trim messages: %w", err)
	}
	return nil
}

// Len implements Store.
func (s *Redis) Len(ctx context.Context, sessionID string) (int, error) {
	n, err := s.client.LLen(ctx, s.messagesKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return int(n), nil
}

// Purge implements Store.
func (s *Redis) Purge(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.messagesKey(sessionID), s.summaryKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to purge session: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *Redis) Close() error {
	return s.client.Close()
}
