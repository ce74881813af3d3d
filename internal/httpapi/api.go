// Package httpapi is the thin JSON boundary in front of the engine. It
// parses requests, delegates to the round controller, scoring engine and
// registration app, and maps the error taxonomy to HTTP statuses.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/quizrush/quizrush/internal/apperrors"
	"github.com/quizrush/quizrush/internal/gateway"
	"github.com/quizrush/quizrush/internal/models"
	"github.com/quizrush/quizrush/internal/scoring"
	"github.com/quizrush/quizrush/internal/teams"
	"github.com/rs/zerolog/log"
)

// Controller defines what the API needs from the round controller.
type Controller interface {
	StartRound(ctx context.Context, round models.Round) error
	TerminateRound(ctx context.Context) error
	SetRegistrationOpen(ctx context.Context, open bool) error
}

// Engine defines what the API needs from the scoring engine.
type Engine interface {
	Submit(ctx context.Context, teamID uuid.UUID, round models.Round, questionNumber int, answer string) (*scoring.SubmitResult, error)
	Skip(ctx context.Context, teamID uuid.UUID, round models.Round, questionNumber int) (int, error)
}

// TeamApp defines what the API needs from the registration app.
type TeamApp interface {
	RegisterTeam(ctx context.Context, req teams.RegisterTeamRequest) (*models.Team, error)
	Authenticate(ctx context.Context, teamName, password string) (*models.Team, error)
}

// API exposes the engine over HTTP.
type API struct {
	controller  Controller
	engine      Engine
	teams       TeamApp
	leaderboard gateway.LeaderboardSource
	sync        *gateway.Synchronizer
	ws          *gateway.WebSocketHandler
	clock       clockwork.Clock
	jwtSecret   []byte
	adminKey    string
}

// NewAPI wires the HTTP boundary.
func NewAPI(controller Controller, engine Engine, teamApp TeamApp, leaderboard gateway.LeaderboardSource, sync *gateway.Synchronizer, ws *gateway.WebSocketHandler, clock clockwork.Clock, jwtSecret []byte, adminKey string) *API {
	return &API{
		controller:  controller,
		engine:      engine,
		teams:       teamApp,
		leaderboard: leaderboard,
		sync:        sync,
		ws:          ws,
		clock:       clock,
		jwtSecret:   jwtSecret,
		adminKey:    adminKey,
	}
}

// RegisterRoutes registers all API routes with an HTTP mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/admin/rounds/start", a.withAdminKey(a.handleStartRound))
	mux.HandleFunc("POST /api/admin/rounds/terminate", a.withAdminKey(a.handleTerminateRound))
	mux.HandleFunc("POST /api/admin/registration", a.withAdminKey(a.handleSetRegistration))

	mux.HandleFunc("POST /api/teams/register", a.handleRegisterTeam)
	mux.HandleFunc("POST /api/teams/login", a.handleLogin)

	mux.HandleFunc("POST /api/submit", a.withTeamAuth(a.handleSubmit))
	mux.HandleFunc("POST /api/skip", a.withTeamAuth(a.handleSkip))

	mux.HandleFunc("GET /api/state", a.handleState)
	mux.HandleFunc("GET /api/leaderboard", a.handleLeaderboard)

	a.ws.RegisterRoutes(mux)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (a *API) handleStartRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Round int `json:"round"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := a.controller.StartRound(r.Context(), models.Round(req.Round)); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"round": req.Round, "status": models.GameStatusInProgress})
}

func (a *API) handleTerminateRound(w http.ResponseWriter, r *http.Request) {
	if err := a.controller.TerminateRound(r.Context()); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": models.GameStatusStopped})
}

func (a *API) handleSetRegistration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Open bool `json:"open"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := a.controller.SetRegistrationOpen(r.Context(), req.Open); err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registration_open": req.Open})
}

func (a *API) handleRegisterTeam(w http.ResponseWriter, r *http.Request) {
	var req teams.RegisterTeamRequest
	if !decodeBody(w, r, &req) {
		return
	}

	team, err := a.teams.RegisterTeam(r.Context(), req)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"team_id":   team.ID,
		"team_name": team.TeamName,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamName string `json:"team_name"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	team, err := a.teams.Authenticate(r.Context(), req.TeamName, req.Password)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}

	token, err := a.issueToken(team.ID, team.TeamName, a.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to sign session token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"team_id":   team.ID,
		"team_name": team.TeamName,
	})
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	teamID, ok := teamIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing team identity")
		return
	}

	var req struct {
		Round          int    `json:"round"`
		QuestionNumber int    `json:"question_number"`
		Answer         string `json:"answer"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := a.engine.Submit(r.Context(), teamID, models.Round(req.Round), req.QuestionNumber, req.Answer)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleSkip(w http.ResponseWriter, r *http.Request) {
	teamID, ok := teamIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing team identity")
		return
	}

	var req struct {
		Round          int `json:"round"`
		QuestionNumber int `json:"question_number"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	next, err := a.engine.Skip(r.Context(), teamID, models.Round(req.Round), req.QuestionNumber)
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"next_question": next})
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sync.Snapshot())
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.leaderboard.Compute(r.Context())
	if err != nil {
		writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeTaxonomyError maps the engine's error taxonomy to HTTP statuses.
// AlreadyAnswered and AttemptsExhausted are benign "move on" signals and
// come back as conflicts, not server failures.
func writeTaxonomyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrTeamNotFound),
		errors.Is(err, apperrors.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperrors.ErrRoundNotActive),
		errors.Is(err, apperrors.ErrRoundEnded),
		errors.Is(err, apperrors.ErrRegistrationClosed),
		errors.Is(err, apperrors.ErrRoundAlreadyActive),
		errors.Is(err, apperrors.ErrAlreadyAnswered),
		errors.Is(err, apperrors.ErrAttemptsExhausted),
		errors.Is(err, apperrors.ErrTeamNameTaken),
		errors.Is(err, apperrors.ErrSkipNotAllowed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrInvalidRound):
		writeError(w, http.StatusBadRequest, err.Error())
	case apperrors.IsRetriable(err):
		log.Error().Err(err).Msg("persistence failure")
		writeError(w, http.StatusServiceUnavailable, "temporary storage failure, retry")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
