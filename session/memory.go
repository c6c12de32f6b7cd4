package session

import (
	"container/list"
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"
)

// shardCount spreads sessions over independent locks so concurrent
// connections with different session ids never contend. Same-id access is
// serialized through one shard.
const shardCount = 32

// MemoryStore is the default in-process Store. Histories live in a sharded
// map; each shard keeps its own LRU order and evicts the least recently
// accessed session once the shard's share of the capacity is exceeded.
type MemoryStore struct {
	config Config
	logger *zap.Logger
	shards [shardCount]*memoryShard
}

type memoryShard struct {
	mu       sync.Mutex
	sessions map[string]*list.Element // session id -> lru element
	lru      *list.List               // front = most recently accessed
	capacity int
}

type memoryEntry struct {
	id    string
	turns []Turn
}

// NewMemoryStore creates a bounded in-memory session store.
func NewMemoryStore(config Config, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()

	perShard := config.Capacity / shardCount
	if perShard < 1 {
		perShard = 1
	}

	s := &MemoryStore{
		config: config,
		logger: logger.With(zap.String("component", "session_store")),
	}
	for i := range s.shards {
		s.shards[i] = &memoryShard{
			sessions: make(map[string]*list.Element),
			lru:      list.New(),
			capacity: perShard,
		}
	}
	return s
}

// Append adds a turn to the session's history, evicting the oldest turns
// beyond the window. A no-op for an empty session id.
func (s *MemoryStore) Append(_ context.Context, sessionID string, turn Turn) error {
	if sessionID == "" {
		return nil
	}

	shard := s.shard(sessionID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	elem, ok := shard.sessions[sessionID]
	if !ok {
		elem = shard.lru.PushFront(&memoryEntry{id: sessionID})
		shard.sessions[sessionID] = elem
		s.evictOverCapacity(shard)
	} else {
		shard.lru.MoveToFront(elem)
	}

	entry := elem.Value.(*memoryEntry)
	entry.turns = append(entry.turns, turn)
	if excess := len(entry.turns) - s.config.Window; excess > 0 {
		entry.turns = append([]Turn(nil), entry.turns[excess:]...)
	}
	return nil
}

// Get returns a snapshot of the session's history. ok is false only for an
// absent (empty) session id; an unknown id yields an empty, non-nil slice.
func (s *MemoryStore) Get(_ context.Context, sessionID string) ([]Turn, bool, error) {
	if sessionID == "" {
		return nil, false, nil
	}

	shard := s.shard(sessionID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	elem, ok := shard.sessions[sessionID]
	if !ok {
		return []Turn{}, true, nil
	}
	shard.lru.MoveToFront(elem)

	entry := elem.Value.(*memoryEntry)
	snapshot := make([]Turn, len(entry.turns))
	copy(snapshot, entry.turns)
	return snapshot, true, nil
}

// Clear removes all history for a session. Idempotent.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	shard := s.shard(sessionID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if elem, ok := shard.sessions[sessionID]; ok {
		shard.lru.Remove(elem)
		delete(shard.sessions, sessionID)
	}
	return nil
}

// Len reports the number of live sessions across all shards.
func (s *MemoryStore) Len() int {
	n := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		n += len(shard.sessions)
		shard.mu.Unlock()
	}
	return n
}

// evictOverCapacity drops least-recently-accessed sessions until the shard
// is back within capacity. Caller holds the shard lock.
func (s *MemoryStore) evictOverCapacity(shard *memoryShard) {
	for shard.lru.Len() > shard.capacity {
		oldest := shard.lru.Back()
		if oldest == nil {
			return
		}
		entry := oldest.Value.(*memoryEntry)
		shard.lru.Remove(oldest)
		delete(shard.sessions, entry.id)

		s.logger.Debug("session evicted",
			zap.String("session_id", entry.id),
			zap.Int("turns_dropped", len(entry.turns)),
		)
		if s.config.OnEvict != nil {
			s.config.OnEvict(entry.id)
		}
	}
}

func (s *MemoryStore) shard(sessionID string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return s.shards[h.Sum32()%shardCount]
}
