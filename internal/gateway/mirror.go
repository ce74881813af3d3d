package gateway

import (
	"sync"
	"time"

	"github.com/quizrush/quizrush/internal/models"
)

// StatePatch is a partial state update merged into the mirror. Nil fields
// are left untouched; ClearEndTime distinguishes "no end time" from "not
// provided".
type StatePatch struct {
	CurrentRound *models.Round
	GameStatus   *models.GameStatus
	Registration *bool
	EndTime      *time.Time
	ClearEndTime bool
}

// StateMirror is the in-memory copy of authoritative state used to answer
// snapshot requests from newly subscribing observers without hitting the
// store on every connection. It is refreshed only after a successful
// persistence operation and is never the source of truth. It is an
// explicitly owned value injected at construction, not a package global.
type StateMirror struct {
	mu sync.RWMutex

	currentRound       models.Round
	gameStatus         models.GameStatus
	isRegistrationOpen bool
	endTime            *time.Time
	activeUsers        int
}

// NewStateMirror returns a mirror in the stopped state.
func NewStateMirror() *StateMirror {
	return &StateMirror{gameStatus: models.GameStatusStopped}
}

// Apply merges a partial update into the mirror.
func (m *StateMirror) Apply(patch StatePatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if patch.CurrentRound != nil {
		m.currentRound = *patch.CurrentRound
	}
	if patch.GameStatus != nil {
		m.gameStatus = *patch.GameStatus
	}
	if patch.Registration != nil {
		m.isRegistrationOpen = *patch.Registration
	}
	if patch.ClearEndTime {
		m.endTime = nil
	} else if patch.EndTime != nil {
		t := *patch.EndTime
		m.endTime = &t
	}
}

// Seed resets the mirror from a freshly read authoritative state, used once
// at startup so restarts do not present observers a stale stopped state.
func (m *StateMirror) Seed(state *models.RoundState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentRound = state.CurrentRound
	m.gameStatus = state.Status()
	m.isRegistrationOpen = state.IsRegistrationOpen
	m.endTime = nil
	if state.RoundEndTime != nil {
		t := *state.RoundEndTime
		m.endTime = &t
	}
}

// AddActiveUsers adjusts the connected-observer count by delta.
func (m *StateMirror) AddActiveUsers(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeUsers += delta
	if m.activeUsers < 0 {
		m.activeUsers = 0
	}
}

// Snapshot returns the mirrored state as a broadcast payload.
func (m *StateMirror) Snapshot() StateChangedPayload {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload := StateChangedPayload{
		CurrentRound:       m.currentRound,
		GameStatus:         m.gameStatus,
		IsRegistrationOpen: m.isRegistrationOpen,
		ActiveUsers:        m.activeUsers,
	}
	if m.endTime != nil {
		t := *m.endTime
		payload.EndTime = &t
	}
	return payload
}
