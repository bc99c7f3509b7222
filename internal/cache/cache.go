// Package cache publishes the per-room action history to Redis for the
// historian consumer. Publishing is fire-and-forget: a dead Redis never
// blocks or fails gameplay.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the shared Redis client. Nil when Redis is not configured;
// callers must nil-check before publishing.
var Rdb *redis.Client

// InitRedis connects the shared client. Call once at startup.
func InitRedis(addr, password string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	Rdb = client
	return nil
}

// GameActionRecord is one ordered entry in a room's action history.
type GameActionRecord struct {
	RoomCode      string                 `json:"roomCode"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorID       uuid.UUID              `json:"actorId"` // Nil for room-level events
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"`
}

// historyKey returns the Redis list key holding a room's ordered history.
func historyKey(roomCode string) string {
	return "rummy:actions:" + roomCode
}

// PublishGameAction appends a record to the room's history list.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	if err := Rdb.RPush(ctx, historyKey(rec.RoomCode), data).Err(); err != nil {
		return fmt.Errorf("rpush action record: %w", err)
	}
	return nil
}

// PurgeGameActions drops a room's history once the match result is stored.
func PurgeGameActions(ctx context.Context, roomCode string) error {
	if Rdb == nil {
		return nil
	}
	return Rdb.Del(ctx, historyKey(roomCode)).Err()
}
