package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/voiceflow/lang"
	"github.com/BaSui01/voiceflow/types"
)

// turnRecord is the persisted form of one Turn.
type turnRecord struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index:idx_turns_session"`
	Role      string
	Text      string
	Lang      string
	CreatedAt time.Time
}

func (turnRecord) TableName() string { return "turns" }

// SQLiteStore is a durable single-node Store backed by an embedded SQLite
// database. The append-then-trim sequence for one session id is serialized
// through sharded locks; different ids do not contend.
type SQLiteStore struct {
	db     *gorm.DB
	config Config
	logger *zap.Logger
	locks  [shardCount]sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string, config Config, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&turnRecord{}); err != nil {
		return nil, fmt.Errorf("migrate session schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		config: config,
		logger: logger.With(zap.String("component", "session_store_sqlite")),
	}, nil
}

// Append inserts a turn and trims the session to the window.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	if sessionID == "" {
		return nil
	}

	lock := s.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := turnRecord{
			SessionID: sessionID,
			Role:      string(turn.Role),
			Text:      turn.Text,
			Lang:      string(turn.Lang),
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}

		var count int64
		if err := tx.Model(&turnRecord{}).
			Where("session_id = ?", sessionID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count turns: %w", err)
		}
		if excess := count - int64(s.config.Window); excess > 0 {
			var oldest []uint
			if err := tx.Model(&turnRecord{}).
				Where("session_id = ?", sessionID).
				Order("id ASC").
				Limit(int(excess)).
				Pluck("id", &oldest).Error; err != nil {
				return fmt.Errorf("select oldest turns: %w", err)
			}
			if err := tx.Delete(&turnRecord{}, oldest).Error; err != nil {
				return fmt.Errorf("trim turns: %w", err)
			}
		}
		return nil
	})
}

// Get returns a snapshot of the session's history in append order.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) ([]Turn, bool, error) {
	if sessionID == "" {
		return nil, false, nil
	}

	var records []turnRecord
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}

	turns := make([]Turn, len(records))
	for i, r := range records {
		turns[i] = Turn{
			Role: types.Role(r.Role),
			Text: r.Text,
			Lang: lang.Tag(r.Lang),
		}
	}
	return turns, true, nil
}

// Clear removes all history for a session. Idempotent.
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	lock := s.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&turnRecord{}).Error
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) lock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%shardCount]
}
