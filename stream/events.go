package stream

import "github.com/BaSui01/voiceflow/lang"

// Outbound event types.
const (
	EventAck         = "ack"
	EventPartialText = "partial_text"
	EventFinalText   = "final_text"
	EventDone        = "done"
	EventError       = "error"
)

// Error codes carried by error events.
const (
	CodeUnexpectedText    = "unexpected_text"
	CodeDecodeError       = "decode_error"
	CodeCycleFailed       = "cycle_failed"
	CodeProtocolViolation = "protocol_violation"
)

// Event is one outbound JSON event. Binary audio frames are sent raw and
// never wrapped in an Event.
type Event struct {
	Type    string   `json:"type"`
	Text    string   `json:"text,omitempty"`
	Lang    lang.Tag `json:"lang,omitempty"`
	Code    string   `json:"code,omitempty"`
	TraceID string   `json:"traceId,omitempty"`
}

func ackEvent(traceID string) Event {
	return Event{Type: EventAck, TraceID: traceID}
}

func partialTextEvent(text string, language lang.Tag) Event {
	return Event{Type: EventPartialText, Text: text, Lang: language}
}

func finalTextEvent(text string, language lang.Tag) Event {
	return Event{Type: EventFinalText, Text: text, Lang: language}
}

func doneEvent(traceID string) Event {
	return Event{Type: EventDone, TraceID: traceID}
}

func errorEvent(code, traceID string) Event {
	return Event{Type: EventError, Code: code, TraceID: traceID}
}
