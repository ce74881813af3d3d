package teams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quizrush/quizrush/internal/apperrors"
	"github.com/quizrush/quizrush/internal/models"
)

// DB defines what the repository needs from the database layer.
// *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements team data access operations.
type Repository struct {
	db DB
}

// NewRepository creates a new teams repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const teamColumns = `id, team_name, members, college_name, password_hash,
	round1_score, round2_score, round3_ch1_score, round3_ch2_score,
	answered_round1, answered_round2, answered_round3,
	current_q_round1, current_q_round2,
	round3_ch1_attempts, round3_ch2_attempts,
	score_updated_at, registered_at`

// CreateTeamRequest carries the fields needed to register a team.
type CreateTeamRequest struct {
	TeamName     string
	Members      []string
	CollegeName  string
	PasswordHash string
	RegisteredAt time.Time
}

// CreateTeam inserts a new team. The team's ScoreUpdatedAt starts at the
// registration time so never-scored teams still rank deterministically.
func (r *Repository) CreateTeam(ctx context.Context, req CreateTeamRequest) (*models.Team, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO teams (id, team_name, members, college_name, password_hash, score_updated_at, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+teamColumns,
		uuid.New(), req.TeamName, req.Members, req.CollegeName, req.PasswordHash, req.RegisteredAt,
	)

	team, err := scanTeam(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrors.ErrTeamNameTaken
		}
		return nil, apperrors.Persistence("create team", err)
	}
	return team, nil
}

// GetTeam retrieves a team by ID.
func (r *Repository) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	row := r.db.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTeamNotFound
		}
		return nil, apperrors.Persistence("get team", err)
	}
	return team, nil
}

// GetTeamByName retrieves a team by its unique name.
func (r *Repository) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	row := r.db.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE team_name = $1`, name)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTeamNotFound
		}
		return nil, apperrors.Persistence("get team by name", err)
	}
	return team, nil
}

// ListTeams returns every registered team. Ranking happens in the
// leaderboard aggregator, not here.
func (r *Repository) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := r.db.Query(ctx, `SELECT `+teamColumns+` FROM teams`)
	if err != nil {
		return nil, apperrors.Persistence("list teams", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, apperrors.Persistence("scan team", err)
		}
		teams = append(teams, *team)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("list teams", err)
	}
	return teams, nil
}

// ApplyScoreRequest describes one successful-answer score mutation.
type ApplyScoreRequest struct {
	TeamID         uuid.UUID
	Round          models.Round
	QuestionNumber int
	Points         int
	At             time.Time
}

// ApplyScore applies the score increment, the answered-set append and the
// ScoreUpdatedAt bump as one conditional update. The not-already-answered
// guard lives in the WHERE clause, so two racing submissions for the same
// team and question cannot both be scored. Returns false when the guard
// rejected the update.
func (r *Repository) ApplyScore(ctx context.Context, req ApplyScoreRequest) (bool, error) {
	var scoreCol, answeredCol string
	switch req.Round {
	case models.Round1:
		scoreCol, answeredCol = "round1_score", "answered_round1"
	case models.Round2:
		scoreCol, answeredCol = "round2_score", "answered_round2"
	case models.Round3:
		answeredCol = "answered_round3"
		if req.QuestionNumber == models.Round3Challenge2 {
			scoreCol = "round3_ch2_score"
		} else {
			scoreCol = "round3_ch1_score"
		}
	default:
		return false, apperrors.ErrInvalidRound
	}

	query := fmt.Sprintf(`
		UPDATE teams
		   SET %s = %s + $2,
		       %s = array_append(%s, $3),
		       score_updated_at = $4
		 WHERE id = $1 AND NOT ($3 = ANY(%s))`,
		scoreCol, scoreCol, answeredCol, answeredCol, answeredCol,
	)

	tag, err := r.db.Exec(ctx, query, req.TeamID, req.Points, req.QuestionNumber, req.At)
	if err != nil {
		return false, apperrors.Persistence("apply score", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementRound3Attempts bumps the attempt counter for a round-3 challenge
// and returns the new count. The attempt limit is enforced in the same
// statement: once the counter reaches max the update matches no row and
// ErrAttemptsExhausted is returned.
func (r *Repository) IncrementRound3Attempts(ctx context.Context, teamID uuid.UUID, challenge, max int) (int, error) {
	col := "round3_ch1_attempts"
	if challenge == models.Round3Challenge2 {
		col = "round3_ch2_attempts"
	}

	query := fmt.Sprintf(`
		UPDATE teams SET %s = %s + 1
		 WHERE id = $1 AND %s < $2
		 RETURNING %s`,
		col, col, col, col,
	)

	var attempts int
	if err := r.db.QueryRow(ctx, query, teamID, max).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrAttemptsExhausted
		}
		return 0, apperrors.Persistence("increment attempts", err)
	}
	return attempts, nil
}

// AdvanceQuestion moves the sequential progress pointer for rounds 1-2.
func (r *Repository) AdvanceQuestion(ctx context.Context, teamID uuid.UUID, round models.Round, next int) error {
	col := "current_q_round1"
	if round == models.Round2 {
		col = "current_q_round2"
	}

	query := fmt.Sprintf(`UPDATE teams SET %s = GREATEST(%s, $2) WHERE id = $1`, col, col)
	if _, err := r.db.Exec(ctx, query, teamID, next); err != nil {
		return apperrors.Persistence("advance question", err)
	}
	return nil
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	err := row.Scan(
		&t.ID, &t.TeamName, &t.Members, &t.CollegeName, &t.PasswordHash,
		&t.Round1Score, &t.Round2Score, &t.Round3Challenge1Score, &t.Round3Challenge2Score,
		&t.AnsweredRound1, &t.AnsweredRound2, &t.AnsweredRound3,
		&t.CurrentQuestionRound1, &t.CurrentQuestionRound2,
		&t.Round3Challenge1Attempts, &t.Round3Challenge2Attempts,
		&t.ScoreUpdatedAt, &t.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
