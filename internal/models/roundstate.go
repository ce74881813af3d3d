package models

import "time"

// Round identifies one of the three quiz rounds. RoundNone means no round
// is currently running.
type Round int

const (
	RoundNone Round = 0
	Round1    Round = 1
	Round2    Round = 2
	Round3    Round = 3
)

// Valid reports whether r is a playable round.
func (r Round) Valid() bool {
	return r >= Round1 && r <= Round3
}

// GameStatus is the user-facing lifecycle label carried in state broadcasts.
type GameStatus string

const (
	GameStatusStopped    GameStatus = "Stopped"
	GameStatusInProgress GameStatus = "In Progress"
)

// RoundState is the singleton game lifecycle record. There is exactly one
// live row; it is created lazily on first access and reset, never deleted.
// Invariant: IsGameActive == (CurrentRound != RoundNone), and RoundEndTime
// is non-nil iff IsGameActive.
type RoundState struct {
	CurrentRound       Round
	IsRegistrationOpen bool
	RoundStartTime     *time.Time
	RoundEndTime       *time.Time
	IsGameActive       bool
	IsPaused           bool
	UpdatedAt          time.Time
}

// Status derives the broadcast label from the active flag.
func (s *RoundState) Status() GameStatus {
	if s.IsGameActive {
		return GameStatusInProgress
	}
	return GameStatusStopped
}
