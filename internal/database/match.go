// internal/database/match.go
package database

import (
	"context"
	"fmt"

	"github.com/jordwess/knavery/internal/game"
)

// EnsureSchema creates the match_results table when it does not exist yet.
// Kept deliberately simple; a real deployment would run migrations instead.
func EnsureSchema(ctx context.Context) error {
	_, err := DB.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS match_results (
			id              BIGSERIAL PRIMARY KEY,
			session_id      UUID        NOT NULL,
			room_code       TEXT        NOT NULL,
			assassinations  INT         NOT NULL,
			knave_slot      INT         NOT NULL,
			knave_escaped   BOOLEAN     NOT NULL,
			winner          TEXT        NOT NULL,
			finished_at     TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure match_results schema: %w", err)
	}
	return nil
}

// InsertMatchResult persists one finished match.
func InsertMatchResult(ctx context.Context, res game.Result) error {
	_, err := DB.Exec(ctx, `
		INSERT INTO match_results
			(session_id, room_code, assassinations, knave_slot, knave_escaped, winner, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, res.SessionID, res.RoomCode, res.Assassinations, res.KnaveSlot, res.KnaveEscaped, res.Winner, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match result for session %s: %w", res.SessionID, err)
	}
	return nil
}
