// Package database persists finished match results. The store is optional:
// DB stays nil without a configured DSN and every caller nil-checks, so the
// server runs fully in memory by default.
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the shared connection pool, nil when persistence is disabled.
var DB *pgxpool.Pool

// Connect opens the pool and verifies connectivity. Call once at startup.
func Connect(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pgx ping: %w", err)
	}
	DB = pool
	return nil
}

// MatchResult is the final standings row written when a match completes.
type MatchResult struct {
	RoomCode   string          `json:"roomCode"`
	WinnerID   uuid.UUID       `json:"winnerId"`
	RoundCount int             `json:"roundCount"`
	Standings  json.RawMessage `json:"standings"`
}

// StoreMatchResult inserts a finished match. Standings are stored as the
// jsonb scoreboard snapshot broadcast to clients.
func StoreMatchResult(ctx context.Context, res MatchResult) error {
	if DB == nil {
		return nil
	}
	_, err := DB.Exec(ctx, `
		INSERT INTO match_results (room_code, winner_id, round_count, standings, finished_at)
		VALUES ($1, $2, $3, $4, now())
	`, res.RoomCode, res.WinnerID, res.RoundCount, res.Standings)
	if err != nil {
		return fmt.Errorf("insert match result: %w", err)
	}
	return nil
}
