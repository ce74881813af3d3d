// Package apperrors defines the error taxonomy shared by the engine's
// components. Callers match with errors.Is / errors.As.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrTeamNotFound is returned when a team lookup finds no record.
	ErrTeamNotFound = errors.New("team not found")

	// ErrQuestionNotFound is returned when a question lookup finds no record.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrRoundNotActive is returned when a submission targets a round that
	// is not the currently active one.
	ErrRoundNotActive = errors.New("round not active")

	// ErrRoundEnded is returned when a submission arrives after the active
	// round's end time.
	ErrRoundEnded = errors.New("round ended")

	// ErrRoundAlreadyActive is returned when StartRound is called while a
	// different round is running.
	ErrRoundAlreadyActive = errors.New("another round is already active")

	// ErrInvalidRound is returned for round numbers outside 1-3.
	ErrInvalidRound = errors.New("invalid round")

	// ErrRegistrationClosed is returned when a team registers while
	// registration is closed.
	ErrRegistrationClosed = errors.New("registration closed")

	// ErrTeamNameTaken is returned when the requested team name is in use.
	ErrTeamNameTaken = errors.New("team name already taken")

	// ErrAlreadyAnswered means the question was already scored for this
	// team. Not retriable; callers should advance.
	ErrAlreadyAnswered = errors.New("question already answered")

	// ErrAttemptsExhausted means the round-3 challenge hit its attempt
	// limit. Not retriable.
	ErrAttemptsExhausted = errors.New("attempts exhausted")

	// ErrSkipNotAllowed is returned when skip is requested for round 3.
	ErrSkipNotAllowed = errors.New("skipping not allowed for this round")

	// ErrInvalidCredentials is returned on a failed team login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PersistenceError wraps a store failure. Unlike the precondition errors
// above it is safe to retry the whole operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError for the named operation.
func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsRetriable reports whether err is a store failure worth retrying.
func IsRetriable(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
