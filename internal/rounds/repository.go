package rounds

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quizrush/quizrush/internal/apperrors"
	"github.com/quizrush/quizrush/internal/models"
)

// DB defines what the repository needs from the database layer.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists the RoundState singleton. The row is created lazily on
// first access and only ever reset, never deleted.
type Repository struct {
	db DB
}

// NewRepository creates a new round-state repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// State returns the singleton round state, creating the default row if it
// does not exist yet.
func (r *Repository) State(ctx context.Context) (*models.RoundState, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO round_state (id) VALUES (1)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return nil, apperrors.Persistence("ensure round state", err)
	}

	var s models.RoundState
	err = r.db.QueryRow(ctx, `
		SELECT current_round, is_registration_open, round_start_time, round_end_time,
		       is_game_active, is_paused, updated_at
		  FROM round_state WHERE id = 1`,
	).Scan(
		&s.CurrentRound, &s.IsRegistrationOpen, &s.RoundStartTime, &s.RoundEndTime,
		&s.IsGameActive, &s.IsPaused, &s.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.Persistence("get round state", err)
	}
	return &s, nil
}

// SetActiveRound marks the given round as running with the given window.
// Registration status is left untouched.
func (r *Repository) SetActiveRound(ctx context.Context, round models.Round, start, end time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO round_state (id, current_round, is_game_active, round_start_time, round_end_time, is_paused, updated_at)
		VALUES (1, $1, true, $2, $3, false, $2)
		ON CONFLICT (id) DO UPDATE
		   SET current_round = EXCLUDED.current_round,
		       is_game_active = true,
		       round_start_time = EXCLUDED.round_start_time,
		       round_end_time = EXCLUDED.round_end_time,
		       is_paused = false,
		       updated_at = EXCLUDED.updated_at`,
		round, start, end,
	)
	if err != nil {
		return apperrors.Persistence("set active round", err)
	}
	return nil
}

// ClearActiveRound resets the lifecycle fields to the stopped state.
func (r *Repository) ClearActiveRound(ctx context.Context, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO round_state (id, updated_at) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE
		   SET current_round = 0,
		       is_game_active = false,
		       round_start_time = NULL,
		       round_end_time = NULL,
		       is_paused = false,
		       updated_at = EXCLUDED.updated_at`,
		at,
	)
	if err != nil {
		return apperrors.Persistence("clear active round", err)
	}
	return nil
}

// SetRegistrationOpen toggles the registration flag.
func (r *Repository) SetRegistrationOpen(ctx context.Context, open bool, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO round_state (id, is_registration_open, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		   SET is_registration_open = EXCLUDED.is_registration_open,
		       updated_at = EXCLUDED.updated_at`,
		open, at,
	)
	if err != nil {
		return apperrors.Persistence("set registration", err)
	}
	return nil
}
