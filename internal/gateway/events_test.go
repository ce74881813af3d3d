package gateway

import (
	"testing"
	"time"

	"github.com/quizrush/quizrush/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventPayloadStateChanged(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	end := at.Add(30 * time.Minute)
	event, err := NewEvent(EventTypeStateChanged, at, StateChangedPayload{
		CurrentRound: models.Round1,
		GameStatus:   models.GameStatusInProgress,
		EndTime:      &end,
		ActiveUsers:  4,
	})
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)

	parsed, err := ParseEventPayload(event)
	require.NoError(t, err)
	payload, ok := parsed.(StateChangedPayload)
	require.True(t, ok)
	assert.Equal(t, models.Round1, payload.CurrentRound)
	assert.Equal(t, models.GameStatusInProgress, payload.GameStatus)
	require.NotNil(t, payload.EndTime)
	assert.True(t, payload.EndTime.Equal(end))
	assert.Equal(t, 4, payload.ActiveUsers)
}

func TestParseEventPayloadRoundTerminated(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	event, err := NewEvent(EventTypeRoundTerminated, at, RoundTerminatedPayload{TerminatedAt: at})
	require.NoError(t, err)

	parsed, err := ParseEventPayload(event)
	require.NoError(t, err)
	payload, ok := parsed.(RoundTerminatedPayload)
	require.True(t, ok)
	assert.True(t, payload.TerminatedAt.Equal(at))
}

func TestParseEventPayloadLeaderboardChanged(t *testing.T) {
	event, err := NewEvent(EventTypeLeaderboardChanged, time.Now(), LeaderboardChangedPayload{
		Entries: []models.LeaderboardEntry{{Rank: 1, TeamName: "gophers", TotalScore: 42}},
	})
	require.NoError(t, err)

	parsed, err := ParseEventPayload(event)
	require.NoError(t, err)
	payload, ok := parsed.(LeaderboardChangedPayload)
	require.True(t, ok)
	require.Len(t, payload.Entries, 1)
	assert.Equal(t, "gophers", payload.Entries[0].TeamName)
	assert.Equal(t, 42, payload.Entries[0].TotalScore)
}

func TestParseEventPayloadRegistrationChanged(t *testing.T) {
	event, err := NewEvent(EventTypeRegistrationChanged, time.Now(), RegistrationChangedPayload{Open: true})
	require.NoError(t, err)

	parsed, err := ParseEventPayload(event)
	require.NoError(t, err)
	payload, ok := parsed.(RegistrationChangedPayload)
	require.True(t, ok)
	assert.True(t, payload.Open)
}

func TestParseEventPayloadUnknownType(t *testing.T) {
	event, err := NewEvent(EventType("SomethingElse"), time.Now(), map[string]string{"k": "v"})
	require.NoError(t, err)

	parsed, err := ParseEventPayload(event)
	require.NoError(t, err)
	assert.Nil(t, parsed)
}
