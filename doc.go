// Package memchat is a stateful chat gateway with bounded conversational
// memory.
//
// A client asks a question, optionally naming a session. memchat routes the
// prompt to Google Gemini or a local Ollama server and, for sessions, keeps
// the conversation within a budget using one of two strategies:
//
//   - rolling: once the transcript grows past a length threshold, older
//     turns are folded into a running summary by the same backend
//   - window: only the most recent N messages are kept
//
// History lives in memory, Redis or a SQL database (SQLite, PostgreSQL,
// MySQL).
//
// # Quick Start
//
//	go install github.com/kadirpekel/memchat/cmd/memchat@latest
//	export GOOGLE_API_KEY=...
//	memchat serve
//
//	curl 'localhost:8000/ask?prompt=Hi,+I+am+Ada&session_id=s1'
//	curl 'localhost:8000/ask?prompt=What+is+my+name%3F&session_id=s1'
//
// Or without a server:
//
//	memchat ask "What is a goroutine?" --provider local
//	memchat chat --session s1
//
// # Packages
//
//   - pkg/memory: messages, sessions, window and rolling-summary strategies
//   - pkg/store: history stores (inmemory, redis, sql)
//   - pkg/model: the backend interface, provider registry, gemini and ollama
//   - pkg/chat: the ask orchestration
//   - pkg/server: the HTTP API
//   - pkg/config: YAML configuration, environment overrides, hot reload
//   - pkg/observability: OpenTelemetry tracing and Prometheus metrics
package memchat
