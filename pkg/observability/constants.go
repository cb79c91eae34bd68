package observability

// Span names.
const (
	SpanHTTPRequest   = "memchat.http.request"
	SpanAsk           = "memchat.ask"
	SpanBackendCall   = "memchat.backend.call"
	SpanStoreFetch    = "memchat.store.fetch"
	SpanStoreWrite    = "memchat.store.write"
	SpanSummarization = "memchat.summarize"
)

// Attribute keys. The gen_ai.* keys follow the OpenTelemetry GenAI
// semantic conventions.
const (
	AttrGenAISystem        = "gen_ai.system"
	AttrGenAIOperationName = "gen_ai.operation.name"
	AttrGenAIRequestModel  = "gen_ai.request.model"

	AttrSessionID       = "memchat.session_id"
	AttrMemoryMode      = "memchat.memory.mode"
	AttrStateless       = "memchat.stateless"
	AttrStoreOperation  = "memchat.store.operation"
	AttrHistoryLength   = "memchat.history.length"
	AttrPromptLength    = "memchat.prompt.length"
	AttrSummaryLength   = "memchat.summary.length"
	AttrEstimatedTokens = "memchat.transcript.tokens"

	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"

	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// GenAI operation names.
const (
	OpChat       = "chat"
	OpSummarize  = "summarize"
	OpListModels = "list_models"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
