package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Summarizer condenses conversation text. Both generation backends
// implement it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, text string) (string, error)

// Summarize implements Summarizer.
func (f SummarizerFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// ApplyRollingSummary compacts everything but the last keepLast messages
// into session.Summary once the history holds more than maxMessages.
//
// It reports whether the session was rewritten. When it returns true the
// caller must overwrite the stored summary and trim the stored log to
// keepLast; this function never touches storage. On error the session is
// left unchanged.
func ApplyRollingSummary(ctx context.Context, session *ChatSession, summarizer Summarizer, maxMessages, keepLast int) (bool, error) {
	if maxMessages <= 0 {
		return false, nil
	}
	total := len(session.Messages)
	if total <= maxMessages {
		return false, nil
	}

	keepLast = min(max(keepLast, 0), total)
	older := session.Messages[:total-keepLast]
	recent := session.Messages[total-keepLast:]

	// With keepLast >= maxMessages the threshold can fire while there is
	// nothing old enough to fold in.
	if len(older) == 0 {
		return false, nil
	}

	text := RenderMessages(older)
	if session.HasSummary() {
		text = "Existing summary:\n" + strings.TrimSpace(session.Summary) +
			"\n\nNew messages to incorporate:\n" + text
	}

	slog.Debug("Summarizing conversation", "older", len(older), "kept", len(recent))

	summary, err := summarizer.Summarize(ctx, text)
	if err != nil {
		return false, fmt.Errorf("summarization failed: %w", err)
	}

	kept := make([]Message, len(recent))
	copy(kept, recent)

	session.Summary = strings.TrimSpace(summary)
	session.Messages = kept
	return true, nil
}
