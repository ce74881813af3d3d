package teams

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/quizrush/quizrush/internal/apperrors"
	"github.com/quizrush/quizrush/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// TeamWriter defines what the app needs from the teams repository.
type TeamWriter interface {
	CreateTeam(ctx context.Context, req CreateTeamRequest) (*models.Team, error)
	GetTeamByName(ctx context.Context, name string) (*models.Team, error)
}

// RegistrationGate defines what the app needs from the round-state store.
type RegistrationGate interface {
	State(ctx context.Context) (*models.RoundState, error)
}

// App implements team registration and authentication.
type App struct {
	repo  TeamWriter
	state RegistrationGate
	clock clockwork.Clock
}

// NewApp creates the teams application layer.
func NewApp(repo TeamWriter, state RegistrationGate, clock clockwork.Clock) *App {
	return &App{repo: repo, state: state, clock: clock}
}

// RegisterTeamRequest carries a registration form.
type RegisterTeamRequest struct {
	TeamName    string   `json:"team_name"`
	Members     []string `json:"members"`
	CollegeName string   `json:"college_name"`
	Password    string   `json:"password"`
}

// RegisterTeam creates a team while registration is open. The credential is
// stored as a bcrypt hash only.
func (a *App) RegisterTeam(ctx context.Context, req RegisterTeamRequest) (*models.Team, error) {
	req.TeamName = strings.TrimSpace(req.TeamName)
	if req.TeamName == "" {
		return nil, fmt.Errorf("team name is required")
	}
	if len(req.Members) < 1 || len(req.Members) > 2 {
		return nil, fmt.Errorf("a team has 1 or 2 members, got %d", len(req.Members))
	}
	for _, m := range req.Members {
		if strings.TrimSpace(m) == "" {
			return nil, fmt.Errorf("member names must not be empty")
		}
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}

	state, err := a.state.State(ctx)
	if err != nil {
		return nil, err
	}
	if !state.IsRegistrationOpen {
		return nil, apperrors.ErrRegistrationClosed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	team, err := a.repo.CreateTeam(ctx, CreateTeamRequest{
		TeamName:     req.TeamName,
		Members:      req.Members,
		CollegeName:  strings.TrimSpace(req.CollegeName),
		PasswordHash: string(hash),
		RegisteredAt: a.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("team_id", team.ID.String()).
		Str("team_name", team.TeamName).
		Msg("team registered")

	return team, nil
}

// Authenticate verifies a team's credentials. A missing team and a wrong
// password both come back as ErrInvalidCredentials so login probing cannot
// distinguish them.
func (a *App) Authenticate(ctx context.Context, teamName, password string) (*models.Team, error) {
	team, err := a.repo.GetTeamByName(ctx, strings.TrimSpace(teamName))
	if err != nil {
		if errors.Is(err, apperrors.ErrTeamNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(team.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return team, nil
}
