package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Round 3 is split into two attempt-limited challenges, keyed by question
// number 1 and 2.
const (
	Round3Challenge1 = 1
	Round3Challenge2 = 2
)

// Team is one registered participant group. Scores are mutated only by the
// scoring engine; the record is never deleted except by explicit admin
// action outside this engine.
type Team struct {
	ID           uuid.UUID
	TeamName     string
	Members      []string
	CollegeName  string
	PasswordHash string

	Round1Score           int
	Round2Score           int
	Round3Challenge1Score int
	Round3Challenge2Score int

	// Question numbers this team has already been scored on, per round.
	AnsweredRound1 []int
	AnsweredRound2 []int
	AnsweredRound3 []int

	// Sequential progress pointers for rounds 1 and 2.
	CurrentQuestionRound1 int
	CurrentQuestionRound2 int

	// Submission counts for the two round-3 challenges.
	Round3Challenge1Attempts int
	Round3Challenge2Attempts int

	// Last time any score field changed. Doubles as the leaderboard
	// tie-break; defaults to the registration time for teams that have
	// never scored.
	ScoreUpdatedAt time.Time
	RegisteredAt   time.Time
}

// TotalScore sums every score field, round-3 challenges included.
func (t *Team) TotalScore() int {
	return t.Round1Score + t.Round2Score + t.Round3Challenge1Score + t.Round3Challenge2Score
}

// HasAnswered reports whether the team was already scored on the given
// question of the given round.
func (t *Team) HasAnswered(round Round, questionNumber int) bool {
	switch round {
	case Round1:
		return slices.Contains(t.AnsweredRound1, questionNumber)
	case Round2:
		return slices.Contains(t.AnsweredRound2, questionNumber)
	case Round3:
		return slices.Contains(t.AnsweredRound3, questionNumber)
	}
	return false
}

// Round3Attempts returns the submission count for a round-3 challenge.
func (t *Team) Round3Attempts(challenge int) int {
	if challenge == Round3Challenge2 {
		return t.Round3Challenge2Attempts
	}
	return t.Round3Challenge1Attempts
}

// CurrentQuestion returns the sequential progress pointer for rounds 1-2.
// Round 3 is attempt-limited rather than sequential and always returns 0.
func (t *Team) CurrentQuestion(round Round) int {
	switch round {
	case Round1:
		return t.CurrentQuestionRound1
	case Round2:
		return t.CurrentQuestionRound2
	}
	return 0
}
