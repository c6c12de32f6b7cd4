package stream

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
)

// WSConn adapts a websocket connection to the MessageConn interface. Reads
// happen from the single orchestrator goroutine; writes are serialized with
// a mutex because one reply cycle interleaves JSON events and binary
// frames.
type WSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewWSConn wraps an accepted websocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

// Receive reads one frame. Any read failure, including a normal close
// handshake, is reported as a disconnect rather than an error; the protocol
// has no recoverable read failures.
func (c *WSConn) Receive(ctx context.Context) (Inbound, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return Inbound{Kind: KindDisconnect}, nil
	}
	switch typ {
	case websocket.MessageBinary:
		return Inbound{Kind: KindAudio, Audio: data}, nil
	default:
		return Inbound{Kind: KindText, Text: string(data)}, nil
	}
}

// SendJSON writes one event as a text frame.
func (c *WSConn) SendJSON(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// SendBinary writes one raw audio frame.
func (c *WSConn) SendBinary(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageBinary, frame)
}

// Close performs the websocket close handshake.
func (c *WSConn) Close(code websocket.StatusCode, reason string) error {
	return c.conn.Close(code, reason)
}
