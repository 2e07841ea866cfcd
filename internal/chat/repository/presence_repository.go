package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trip_chat_service/internal/chat/domain"

	"github.com/go-redis/redis/v8"
)

// PresenceKey redis key of one user's presence record
func PresenceKey(userID string) string {
	return "status:" + userID
}

// PresenceRepository definition per-user presence record store
type PresenceRepository interface {
	// Set overwrite the user's record and notify its subscribers
	Set(ctx context.Context, userID string, rec domain.PresenceRecord) error
	// Get the current record. A user that never connected reads as
	// the zero record (offline).
	Get(ctx context.Context, userID string) (domain.PresenceRecord, error)
}

type redisPresenceRepository struct {
	client *redis.Client
	pubsub PubSub
}

// NewRedisPresenceRepository create a PresenceRepository
func NewRedisPresenceRepository(client *redis.Client, pubsub PubSub) PresenceRepository {
	return &redisPresenceRepository{
		client: client,
		pubsub: pubsub,
	}
}

func (r *redisPresenceRepository) Set(ctx context.Context, userID string, rec domain.PresenceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, PresenceKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("set presence %s: %w", userID, err)
	}
	return r.pubsub.Publish(ctx, UserPresenceChannel(userID), rec)
}

func (r *redisPresenceRepository) Get(ctx context.Context, userID string) (domain.PresenceRecord, error) {
	var rec domain.PresenceRecord
	val, err := r.client.Get(ctx, PresenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("get presence %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return domain.PresenceRecord{}, fmt.Errorf("unmarshal presence %s: %w", userID, err)
	}
	return rec, nil
}
