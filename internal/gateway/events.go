package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/quizrush/quizrush/internal/models"
)

// Event is the envelope for every message pushed to observers.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType enumerates the closed set of broadcast events. Subscribers can
// exhaustively handle every case.
type EventType string

const (
	EventTypeStateChanged        EventType = "StateChanged"
	EventTypeRegistrationChanged EventType = "RegistrationChanged"
	EventTypeRoundTerminated     EventType = "RoundTerminated"
	EventTypeLeaderboardChanged  EventType = "LeaderboardChanged"
)

// StateChangedPayload mirrors the authoritative round state for observers.
type StateChangedPayload struct {
	CurrentRound       models.Round      `json:"current_round"`
	GameStatus         models.GameStatus `json:"game_status"`
	IsRegistrationOpen bool              `json:"is_registration_open"`
	EndTime            *time.Time        `json:"end_time,omitempty"`
	ActiveUsers        int               `json:"active_users"`
}

// RegistrationChangedPayload is pushed when registration opens or closes.
type RegistrationChangedPayload struct {
	Open bool `json:"open"`
}

// RoundTerminatedPayload is pushed when a round ends, whether by timer
// expiry or admin termination. Observers use it to reset local countdowns
// immediately instead of recomputing them from a state diff.
type RoundTerminatedPayload struct {
	TerminatedAt time.Time `json:"terminated_at"`
}

// LeaderboardChangedPayload carries a fresh top-N snapshot.
type LeaderboardChangedPayload struct {
	Entries []models.LeaderboardEntry `json:"entries"`
}

// NewEvent wraps a payload into an Event envelope.
func NewEvent(eventType EventType, at time.Time, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}

// ParseEventPayload parses event data into the appropriate payload struct.
func ParseEventPayload(event *Event) (any, error) {
	switch event.Type {
	case EventTypeStateChanged:
		var payload StateChangedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRegistrationChanged:
		var payload RegistrationChangedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundTerminated:
		var payload RoundTerminatedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeLeaderboardChanged:
		var payload LeaderboardChangedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
