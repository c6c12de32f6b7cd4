package session

import (
	"context"
	"time"

	"github.com/BaSui01/voiceflow/lang"
	"github.com/BaSui01/voiceflow/types"
)

// Turn is an immutable record of one utterance in a conversation.
type Turn struct {
	Role types.Role `json:"role"`
	Text string     `json:"text"`
	Lang lang.Tag   `json:"lang"`
}

// Store is the session context memory: a bounded, append-only turn history
// keyed by a client-supplied session identifier.
//
// Semantics shared by every backend:
//
//   - Append with an empty session id is a no-op: anonymous requests carry
//     no persistence.
//   - Get with an empty session id returns ok=false ("absent"), which is
//     observably distinct from a present session with no turns yet
//     (empty slice, ok=true).
//   - Histories never exceed the configured window; the oldest turns are
//     evicted FIFO.
//   - Readers receive a snapshot copy, never a live reference.
//   - Clear is idempotent.
type Store interface {
	Append(ctx context.Context, sessionID string, turn Turn) error
	Get(ctx context.Context, sessionID string) ([]Turn, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

// Config bounds a session store.
type Config struct {
	// Window is the maximum number of turns retained per session.
	Window int `yaml:"window" json:"window"`

	// Capacity is the maximum number of sessions retained by bounded
	// in-process backends. Least-recently-accessed sessions are evicted
	// once the capacity is exceeded.
	Capacity int `yaml:"capacity" json:"capacity"`

	// TTL is the per-session expiry applied by backends with native
	// expiration (Redis).
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// OnEvict, when set, is invoked with the session id of every history
	// dropped by capacity eviction. Used to feed the eviction metric.
	OnEvict func(sessionID string) `yaml:"-" json:"-"`
}

// DefaultConfig returns the default store bounds.
func DefaultConfig() Config {
	return Config{
		Window:   10,
		Capacity: 1024,
		TTL:      30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultConfig().Window
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultConfig().Capacity
	}
	if c.TTL <= 0 {
		c.TTL = DefaultConfig().TTL
	}
	return c
}
