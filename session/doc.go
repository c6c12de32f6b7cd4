// Package session is the conversational context memory: a bounded,
// append-only turn history per client-supplied session identifier.
//
// Three backends implement the Store interface. MemoryStore is the default:
// sharded locks keyed by session id, per-shard LRU eviction so the process
// never accumulates unbounded sessions. RedisStore serves distributed
// deployments and bounds growth with per-key TTLs. SQLiteStore persists
// histories across restarts through an embedded database.
//
// All backends preserve the observable distinction between an absent
// session id (no persistence requested) and a present session with an
// empty history.
package session
