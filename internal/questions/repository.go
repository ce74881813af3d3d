package questions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/quizrush/quizrush/internal/apperrors"
	"github.com/quizrush/quizrush/internal/models"
)

// DB defines what the repository needs from the database layer.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads questions. Authoring happens through an external
// collaborator; the engine never writes this table.
type Repository struct {
	db DB
}

// NewRepository creates a new questions repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// GetQuestion looks up a question by round and number.
func (r *Repository) GetQuestion(ctx context.Context, round models.Round, questionNumber int) (*models.Question, error) {
	var q models.Question
	err := r.db.QueryRow(ctx, `
		SELECT round, question_number, content, answer, points, hints
		  FROM questions WHERE round = $1 AND question_number = $2`,
		round, questionNumber,
	).Scan(&q.Round, &q.QuestionNumber, &q.Content, &q.Answer, &q.Points, &q.Hints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrQuestionNotFound
		}
		return nil, apperrors.Persistence("get question", err)
	}
	return &q, nil
}

// ListByRound returns all questions of a round ordered by number.
func (r *Repository) ListByRound(ctx context.Context, round models.Round) ([]models.Question, error) {
	rows, err := r.db.Query(ctx, `
		SELECT round, question_number, content, answer, points, hints
		  FROM questions WHERE round = $1 ORDER BY question_number`,
		round,
	)
	if err != nil {
		return nil, apperrors.Persistence("list questions", err)
	}
	defer rows.Close()

	var qs []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.Round, &q.QuestionNumber, &q.Content, &q.Answer, &q.Points, &q.Hints); err != nil {
			return nil, apperrors.Persistence("scan question", err)
		}
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("list questions", err)
	}
	return qs, nil
}
