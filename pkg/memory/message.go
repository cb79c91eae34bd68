// Package memory holds the per-request conversation model and the working
// memory strategies that keep it bounded: a sliding window over recent
// messages and a rolling summary that compacts older turns.
//
// A ChatSession is built fresh for every request from persisted state. The
// strategies only mutate the in-memory session; persisting the result is the
// caller's job.
package memory

import (
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single conversation turn. Messages are values and are never
// modified after creation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Line renders the message as "ROLE: content".
func (m Message) Line() string {
	return strings.ToUpper(string(m.Role)) + ": " + m.Content
}

const (
	summaryHeader  = "SUMMARY SO FAR:"
	messagesHeader = "RECENT MESSAGES:"
)

// ChatSession is the bounded view of one conversation used to build a single
// generation request. Messages are oldest first; Summary, when set, covers
// history older than every entry in Messages.
type ChatSession struct {
	Summary  string
	Messages []Message
}

// NewChatSession creates a session from persisted state. The message slice
// is copied so strategies never alias the caller's storage.
func NewChatSession(summary string, messages []Message) *ChatSession {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	return &ChatSession{
		Summary:  summary,
		Messages: msgs,
	}
}

// Append adds a message to the end of the in-memory history.
func (s *ChatSession) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// Len returns the number of retained messages.
func (s *ChatSession) Len() int {
	return len(s.Messages)
}

// HasSummary reports whether the session carries a non-blank summary.
func (s *ChatSession) HasSummary() bool {
	return strings.TrimSpace(s.Summary) != ""
}

// Transcript flattens the session into the text sent to a backend: a summary
// block when present, followed by the recent messages one per line.
func (s *ChatSession) Transcript() string {
	parts := make([]string, 0, len(s.Messages)+2)
	if s.HasSummary() {
		parts = append(parts, summaryHeader+"\n"+strings.TrimSpace(s.Summary))
	}
	if len(s.Messages) > 0 {
		parts = append(parts, messagesHeader)
		for _, m := range s.Messages {
			parts = append(parts, m.Line())
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// RenderMessages renders messages as "ROLE: content" lines.
func RenderMessages(messages []Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = m.Line()
	}
	return strings.Join(lines, "\n")
}
