package memory

// ApplySlidingWindow keeps at most windowSize of the most recent messages.
// A non-positive window clears the history. The summary is never touched,
// and reapplying the same window is a no-op.
func ApplySlidingWindow(session *ChatSession, windowSize int) {
	if windowSize <= 0 {
		session.Messages = []Message{}
		return
	}
	if len(session.Messages) > windowSize {
		session.Messages = session.Messages[len(session.Messages)-windowSize:]
	}
}
