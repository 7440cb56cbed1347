package server

// Outbound message types.
const (
	TypeStreamStart = "stream_start"
	TypeStatus      = "status"
	TypeStreamChunk = "stream_chunk"
	TypeStreamEnd   = "stream_end"
	TypeStreamError = "stream_error"
	TypeDebugLog    = "debug_log"
)

// Debug log categories.
const (
	LogInfo     = "info"
	LogOutgoing = "outgoing"
	LogIncoming = "incoming"
	LogError    = "error"
)

const (
	// DefaultSessionID is used when the client connects without a session_id.
	DefaultSessionID = "session_unknown"
	// StillWorking is the status text sent when no fragment arrived in time.
	StillWorking = "Still working..."
)

// Inbound is one client message. Streaming defaults to true when omitted.
type Inbound struct {
	Message   string `json:"message"`
	Streaming *bool  `json:"streaming,omitempty"`
}

func (in Inbound) streaming() bool {
	return in.Streaming == nil || *in.Streaming
}

// Timings carries per-message latency.
type Timings struct {
	AgentTotalMS int64 `json:"agent_total_ms"`
}

// StreamStart opens a streamed answer.
type StreamStart struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
}

// Status reports progress before the first fragment.
type Status struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// StreamChunk carries one answer fragment.
type StreamChunk struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

// StreamEnd closes a streamed answer. ThreadID is null when the engine
// reported no thread.
type StreamEnd struct {
	Type      string  `json:"type"`
	MessageID string  `json:"message_id"`
	ThreadID  *string `json:"thread_id"`
	Timings   Timings `json:"timings_ms"`
}

// StreamError reports a failed exchange. The connection stays open.
type StreamError struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Answer is the non-streaming reply. It has no type; clients recognize it
// by the answer key, which is always present.
type Answer struct {
	Answer    string  `json:"answer"`
	Agent     string  `json:"agent"`
	MessageID string  `json:"message_id"`
	SessionID string  `json:"session_id"`
	ThreadID  *string `json:"thread_id"`
	Timings   Timings `json:"timings_ms"`
}

// DebugLog mirrors server-side progress to the client.
type DebugLog struct {
	Type    string         `json:"type"`
	LogType string         `json:"log_type"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// threadRef encodes an empty thread id as null.
func threadRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
