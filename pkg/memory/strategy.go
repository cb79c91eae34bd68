package memory

import "strings"

// Strategy selects how a session's history is bounded.
type Strategy string

const (
	// StrategyRolling compacts older turns into a summary once the
	// transcript grows past a length threshold.
	StrategyRolling Strategy = "rolling"

	// StrategyWindow keeps only the most recent N messages.
	StrategyWindow Strategy = "window"

	// StrategyNone disables memory; every request is stateless.
	StrategyNone Strategy = "none"
)

// DefaultStrategy is used when nothing else is configured.
const DefaultStrategy = StrategyRolling

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyRolling, StrategyWindow, StrategyNone:
		return true
	}
	return false
}

// ParseStrategy resolves the effective strategy: the requested value, else
// the fallback, else rolling. Unknown values silently become rolling.
func ParseStrategy(requested, fallback string) Strategy {
	raw := strings.ToLower(strings.TrimSpace(requested))
	if raw == "" {
		raw = strings.ToLower(strings.TrimSpace(fallback))
	}
	s := Strategy(raw)
	if !s.Valid() {
		return DefaultStrategy
	}
	return s
}
