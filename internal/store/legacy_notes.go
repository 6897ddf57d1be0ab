package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
)

// SQLNoteStore keeps legacy per-token notes in the local database.
type SQLNoteStore struct {
	db *gorm.DB
}

var _ journal.LegacyNoteStore = (*SQLNoteStore)(nil)

// NewSQLNoteStore creates a SQLNoteStore on db. The legacy_notes table must be migrated.
func NewSQLNoteStore(db *gorm.DB) *SQLNoteStore {
	return &SQLNoteStore{db: db}
}

// Get returns the note stored under key, or "" if there is none.
func (s *SQLNoteStore) Get(ctx context.Context, key string) (string, error) {
	var note models.LegacyNote
	err := s.db.WithContext(ctx).Where("note_key = ?", key).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get legacy note: %w", err)
	}
	return note.Text, nil
}

// Set creates or overwrites the note stored under key.
func (s *SQLNoteStore) Set(ctx context.Context, key, text string) error {
	note := models.LegacyNote{NoteKey: key, Text: text}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "note_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
		}).
		Create(&note).Error
	if err != nil {
		return fmt.Errorf("set legacy note: %w", err)
	}
	return nil
}

// RedisNoteStore keeps legacy per-token notes in redis under "note:{wallet}:{token}".
type RedisNoteStore struct {
	client *redis.Client
}

var _ journal.LegacyNoteStore = (*RedisNoteStore)(nil)

// NewRedisNoteStore creates a RedisNoteStore. It does not connect until first use; call Ping to check.
func NewRedisNoteStore(addr, password string, db int) *RedisNoteStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisNoteStore{client: client}
}

func redisKey(key string) string {
	return fmt.Sprintf("note:%s", key)
}

// Get returns the note stored under key, or "" if the key does not exist.
func (r *RedisNoteStore) Get(ctx context.Context, key string) (string, error) {
	text, err := r.client.Get(ctx, redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get legacy note: %w", err)
	}
	return text, nil
}

// Set stores the note under key without expiry.
func (r *RedisNoteStore) Set(ctx context.Context, key, text string) error {
	if err := r.client.Set(ctx, redisKey(key), text, 0).Err(); err != nil {
		return fmt.Errorf("set legacy note: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisNoteStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisNoteStore) Close() error {
	return r.client.Close()
}
