// Package scoring validates and scores answer submissions against the
// currently active round's rules.
package scoring

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/quizrush/quizrush/internal/apperrors"
	"github.com/quizrush/quizrush/internal/models"
	"github.com/quizrush/quizrush/internal/teams"
	"github.com/rs/zerolog/log"
)

// TeamStore defines what the engine needs from the teams repository.
type TeamStore interface {
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ApplyScore(ctx context.Context, req teams.ApplyScoreRequest) (bool, error)
	IncrementRound3Attempts(ctx context.Context, teamID uuid.UUID, challenge, max int) (int, error)
	AdvanceQuestion(ctx context.Context, teamID uuid.UUID, round models.Round, next int) error
}

// QuestionStore defines what the engine needs from the questions repository.
type QuestionStore interface {
	GetQuestion(ctx context.Context, round models.Round, questionNumber int) (*models.Question, error)
}

// StateStore defines what the engine needs from the round-state repository.
type StateStore interface {
	State(ctx context.Context) (*models.RoundState, error)
}

// Broadcaster defines what the engine needs from the broadcast synchronizer.
type Broadcaster interface {
	PushLeaderboard(ctx context.Context) error
}

// Config holds the round-3 scoring rules.
type Config struct {
	// Round3MaxAttempts caps submissions per round-3 challenge.
	Round3MaxAttempts int
	// Round3PointsByAttempt awards points by the attempt number at the
	// time of success, strictly decreasing.
	Round3PointsByAttempt []int
}

// DefaultConfig returns the standard 3-attempt, 30/20/10 schedule.
func DefaultConfig() Config {
	return Config{
		Round3MaxAttempts:     3,
		Round3PointsByAttempt: []int{30, 20, 10},
	}
}

// Engine mediates concurrent answer submissions. Its side effects are
// confined to Team records; it never mutates RoundState.
type Engine struct {
	teams     TeamStore
	questions QuestionStore
	state     StateStore
	sync      Broadcaster
	clock     clockwork.Clock
	cfg       Config
}

// NewEngine creates a scoring engine.
func NewEngine(teamStore TeamStore, questionStore QuestionStore, stateStore StateStore, sync Broadcaster, clock clockwork.Clock, cfg Config) *Engine {
	if cfg.Round3MaxAttempts <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		teams:     teamStore,
		questions: questionStore,
		state:     stateStore,
		sync:      sync,
		clock:     clock,
		cfg:       cfg,
	}
}

// SubmitResult is the outcome of one answer submission.
type SubmitResult struct {
	IsCorrect    bool `json:"is_correct"`
	PointsEarned int  `json:"points_earned"`
	NextQuestion int  `json:"next_question"`
}

// Submit validates and scores one answer. Preconditions are checked in
// order, each failing fast with its own error: team exists, round is the
// active one, round has not ended, question not already answered, and for
// round 3 the challenge's attempt limit is not reached.
//
// On a correct answer the score increment, the answered-set append and the
// ScoreUpdatedAt bump are applied as one atomic conditional update, then a
// leaderboard broadcast is triggered. Failed submissions broadcast nothing.
func (e *Engine) Submit(ctx context.Context, teamID uuid.UUID, round models.Round, questionNumber int, answer string) (*SubmitResult, error) {
	team, err := e.teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if err := e.checkRoundWindow(ctx, round); err != nil {
		return nil, err
	}

	if team.HasAnswered(round, questionNumber) {
		return nil, apperrors.ErrAlreadyAnswered
	}

	question, err := e.questions.GetQuestion(ctx, round, questionNumber)
	if err != nil {
		return nil, err
	}

	attempt := 0
	if round == models.Round3 {
		if team.Round3Attempts(questionNumber) >= e.cfg.Round3MaxAttempts {
			return nil, apperrors.ErrAttemptsExhausted
		}
		// Attempts count on every submission, correct or not. The limit
		// guard repeats inside the update so racing submissions cannot
		// overshoot the cap.
		attempt, err = e.teams.IncrementRound3Attempts(ctx, teamID, questionNumber, e.cfg.Round3MaxAttempts)
		if err != nil {
			return nil, err
		}
	}

	next := e.nextQuestion(team, round, questionNumber)

	if !answersMatch(answer, question.Answer) {
		log.Debug().
			Str("team_id", teamID.String()).
			Int("round", int(round)).
			Int("question", questionNumber).
			Int("attempt", attempt).
			Msg("incorrect answer")
		return &SubmitResult{IsCorrect: false, NextQuestion: next}, nil
	}

	points := question.Points
	if round == models.Round3 {
		points = e.pointsForAttempt(attempt)
	}

	applied, err := e.teams.ApplyScore(ctx, teams.ApplyScoreRequest{
		TeamID:         teamID,
		Round:          round,
		QuestionNumber: questionNumber,
		Points:         points,
		At:             e.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		// A racing submission for the same question got there first.
		return nil, apperrors.ErrAlreadyAnswered
	}

	if round != models.Round3 {
		next = questionNumber + 1
		if err := e.teams.AdvanceQuestion(ctx, teamID, round, next); err != nil {
			log.Error().Err(err).Str("team_id", teamID.String()).Msg("failed to advance question pointer")
		}
	}

	log.Info().
		Str("team_id", teamID.String()).
		Str("team_name", team.TeamName).
		Int("round", int(round)).
		Int("question", questionNumber).
		Int("points", points).
		Msg("answer scored")

	if err := e.sync.PushLeaderboard(ctx); err != nil {
		log.Error().Err(err).Msg("failed to push leaderboard after score")
	}

	return &SubmitResult{IsCorrect: true, PointsEarned: points, NextQuestion: next}, nil
}

// Skip advances a team's current-question pointer without affecting score.
// Round 3 is attempt-limited rather than sequential, so it cannot be
// skipped.
func (e *Engine) Skip(ctx context.Context, teamID uuid.UUID, round models.Round, questionNumber int) (int, error) {
	if round == models.Round3 {
		return 0, apperrors.ErrSkipNotAllowed
	}

	if _, err := e.teams.GetTeam(ctx, teamID); err != nil {
		return 0, err
	}

	if err := e.checkRoundWindow(ctx, round); err != nil {
		return 0, err
	}

	next := questionNumber + 1
	if err := e.teams.AdvanceQuestion(ctx, teamID, round, next); err != nil {
		return 0, err
	}

	log.Debug().
		Str("team_id", teamID.String()).
		Int("round", int(round)).
		Int("question", questionNumber).
		Msg("question skipped")

	return next, nil
}

func (e *Engine) checkRoundWindow(ctx context.Context, round models.Round) error {
	state, err := e.state.State(ctx)
	if err != nil {
		return err
	}
	if !state.IsGameActive || state.CurrentRound != round {
		return apperrors.ErrRoundNotActive
	}
	if state.RoundEndTime != nil && !e.clock.Now().Before(*state.RoundEndTime) {
		return apperrors.ErrRoundEnded
	}
	return nil
}

func (e *Engine) nextQuestion(team *models.Team, round models.Round, questionNumber int) int {
	if round == models.Round3 {
		return questionNumber
	}
	if current := team.CurrentQuestion(round); current > questionNumber {
		return current
	}
	return questionNumber
}

func (e *Engine) pointsForAttempt(attempt int) int {
	if attempt < 1 || attempt > len(e.cfg.Round3PointsByAttempt) {
		return 0
	}
	return e.cfg.Round3PointsByAttempt[attempt-1]
}

// answersMatch compares by case-insensitive exact equality after trimming
// surrounding whitespace.
func answersMatch(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(expected))
}
