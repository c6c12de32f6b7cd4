package stream

// InboundKind discriminates the closed set of messages a connection can
// deliver to the orchestrator.
type InboundKind int

const (
	// KindText is a text frame. Before the session starts it is expected
	// to carry the start control message; afterwards it is a protocol
	// violation.
	KindText InboundKind = iota
	// KindAudio is a binary audio frame.
	KindAudio
	// KindDisconnect reports that the peer went away. Terminal.
	KindDisconnect
)

// Inbound is one decoded message from the connection. Exactly the fields
// matching Kind are populated.
type Inbound struct {
	Kind  InboundKind
	Text  string
	Audio []byte
}

// StartMessage is the single control message that opens a session.
type StartMessage struct {
	SessionID string `json:"sessionId"`
	TraceID   string `json:"traceId,omitempty"`
	Lang      string `json:"lang"`
}
