package store

import (
	"context"
	"strings"
	"sync"

	"github.com/kadirpekel/memchat/pkg/memory"
)

// sessionData holds the history and summary for a single session.
type sessionData struct {
	messages []memory.Message
	summary  string
}

// InMemory is a thread-safe, in-memory Store. History is lost on restart.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData
}

// NewInMemory creates a new empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		sessions: make(map[string]*sessionData),
	}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) getOrCreate(sessionID string) *sessionData {
	sd, ok := s.sessions[sessionID]
	if !ok {
		sd = &sessionData{}
		s.sessions[sessionID] = sd
	}
	return sd
}

// GetSummary implements Store.
func (s *InMemory) GetSummary(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(sd.summary), nil
}

// GetLastMessages implements Store.
func (s *InMemory) GetLastMessages(_ context.Context, sessionID string, limit int) ([]memory.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	msgs := sd.messages
	if limit > len(msgs) {
		limit = len(msgs)
	}
	result := make([]memory.Message, limit)
	copy(result, msgs[len(msgs)-limit:])
	return result, nil
}

// AppendMessages implements Store.
func (s *InMemory) AppendMessages(_ context.Context, sessionID string, msgs ...memory.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sd := s.getOrCreate(sessionID)
	sd.messages = append(sd.messages, msgs...)
	return nil
}

// SetSummary implements Store.
func (s *InMemory) SetSummary(_ context.Context, sessionID string, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(sessionID).summary = summary
	return nil
}

// TrimMessages implements Store.
func (s *InMemory) TrimMessages(_ context.Context, sessionID string, keepLast int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if keepLast <= 0 {
		sd.messages = nil
		return nil
	}
	if len(sd.messages) > keepLast {
		trimmed := make([]memory.Message, keepLast)
		copy(trimmed, sd.messages[len(sd.messages)-keepLast:])
		sd.messages = trimmed
	}
	return nil
}

// Len implements Store.
func (s *InMemory) Len(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.sessions[sessionID]
	if !ok {
		return 0, nil
	}
	return len(sd.messages), nil
}

// Purge implements Store.
func (s *InMemory) Purge(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close implements Store.
func (s *InMemory) Close() error {
	return nil
}
