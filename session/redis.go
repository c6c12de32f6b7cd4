package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig connects a RedisStore to its backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password"`
	DB        int    `yaml:"db" json:"db"`
	PoolSize  int    `yaml:"pool_size" json:"pool_size"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// RedisStore is a Redis-backed Store for distributed deployments where
// several instances serve reconnects for the same session id. Histories are
// Redis lists trimmed to the window on every append; capacity bounding is
// delegated to the per-key TTL, refreshed on each access.
type RedisStore struct {
	client    *redis.Client
	config    Config
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisStore creates a Redis-backed session store and verifies the
// connection.
func NewRedisStore(rc RedisConfig, config Config, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		PoolSize: rc.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	keyPrefix := rc.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "voiceflow:"
	}

	return &RedisStore{
		client:    client,
		config:    config,
		keyPrefix: keyPrefix + "session:",
		logger:    logger.With(zap.String("component", "session_store_redis")),
	}, nil
}

// Append pushes a turn onto the session list and trims it to the window.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	if sessionID == "" {
		return nil
	}

	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.config.Window), -1)
	pipe.Expire(ctx, key, s.config.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Get returns a snapshot of the session's history.
func (s *RedisStore) Get(ctx context.Context, sessionID string) ([]Turn, bool, error) {
	if sessionID == "" {
		return nil, false, nil
	}

	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			s.logger.Warn("dropping undecodable turn",
				zap.String("session_id", sessionID), zap.Error(err))
			continue
		}
		turns = append(turns, turn)
	}
	return turns, true, nil
}

// Clear removes all history for a session. Idempotent.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

// Ping checks backend health.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}
