package teams

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/quizrush/quizrush/internal/apperrors"
	"github.com/quizrush/quizrush/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryTeamWriter struct {
	mu    sync.Mutex
	teams map[string]*models.Team
}

func newMemoryTeamWriter() *memoryTeamWriter {
	return &memoryTeamWriter{teams: make(map[string]*models.Team)}
}

func (w *memoryTeamWriter) CreateTeam(ctx context.Context, req CreateTeamRequest) (*models.Team, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.teams[req.TeamName]; exists {
		return nil, apperrors.ErrTeamNameTaken
	}
	team := &models.Team{
		ID:           uuid.New(),
		TeamName:     req.TeamName,
		Members:      req.Members,
		CollegeName:  req.CollegeName,
		PasswordHash: req.PasswordHash,
		RegisteredAt: req.RegisteredAt,
	}
	w.teams[req.TeamName] = team
	return team, nil
}

func (w *memoryTeamWriter) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	team, ok := w.teams[name]
	if !ok {
		return nil, apperrors.ErrTeamNotFound
	}
	return team, nil
}

type registrationState struct {
	open bool
}

func (s *registrationState) State(ctx context.Context) (*models.RoundState, error) {
	return &models.RoundState{IsRegistrationOpen: s.open}, nil
}

func newAppFixture(open bool) (*App, *memoryTeamWriter) {
	writer := newMemoryTeamWriter()
	app := NewApp(writer, &registrationState{open: open}, clockwork.NewFakeClock())
	return app, writer
}

func validRequest() RegisterTeamRequest {
	return RegisterTeamRequest{
		TeamName:    "gophers",
		Members:     []string{"ana", "ben"},
		CollegeName: "state tech",
		Password:    "hunter22",
	}
}

func TestRegisterTeamSucceedsAndHashesPassword(t *testing.T) {
	app, writer := newAppFixture(true)

	team, err := app.RegisterTeam(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "gophers", team.TeamName)

	stored, err := writer.GetTeamByName(context.Background(), "gophers")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "hunter22")
}

func TestRegisterTeamRejectedWhenRegistrationClosed(t *testing.T) {
	app, _ := newAppFixture(false)

	_, err := app.RegisterTeam(context.Background(), validRequest())
	require.ErrorIs(t, err, apperrors.ErrRegistrationClosed)
}

func TestRegisterTeamValidation(t *testing.T) {
	app, _ := newAppFixture(true)

	tests := []struct {
		name   string
		mutate func(*RegisterTeamRequest)
	}{
		{"blank name", func(r *RegisterTeamRequest) { r.TeamName = "   " }},
		{"no members", func(r *RegisterTeamRequest) { r.Members = nil }},
		{"too many members", func(r *RegisterTeamRequest) { r.Members = []string{"a", "b", "c"} }},
		{"blank member", func(r *RegisterTeamRequest) { r.Members = []string{"ana", " "} }},
		{"short password", func(r *RegisterTeamRequest) { r.Password = "abc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := app.RegisterTeam(context.Background(), req)
			require.Error(t, err)
		})
	}
}

func TestRegisterTeamDuplicateName(t *testing.T) {
	app, _ := newAppFixture(true)

	_, err := app.RegisterTeam(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = app.RegisterTeam(context.Background(), validRequest())
	require.ErrorIs(t, err, apperrors.ErrTeamNameTaken)
}

func TestAuthenticateRoundTrip(t *testing.T) {
	app, _ := newAppFixture(true)

	registered, err := app.RegisterTeam(context.Background(), validRequest())
	require.NoError(t, err)

	team, err := app.Authenticate(context.Background(), "gophers", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, team.ID)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	app, _ := newAppFixture(true)

	_, err := app.RegisterTeam(context.Background(), validRequest())
	require.NoError(t, err)

	_, wrongPassword := app.Authenticate(context.Background(), "gophers", "nope-nope")
	_, unknownTeam := app.Authenticate(context.Background(), "no-such-team", "hunter22")

	require.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	require.ErrorIs(t, unknownTeam, apperrors.ErrInvalidCredentials)
}
