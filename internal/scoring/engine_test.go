package scoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/quizrush/quizrush/internal/apperrors"
	"github.com/quizrush/quizrush/internal/models"
	"github.com/quizrush/quizrush/internal/teams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTeamStore struct {
	mu    sync.Mutex
	teams map[uuid.UUID]*models.Team
}

func newFakeTeamStore(ts ...*models.Team) *fakeTeamStore {
	s := &fakeTeamStore{teams: make(map[uuid.UUID]*models.Team)}
	for _, t := range ts {
		s.teams[t.ID] = t
	}
	return s
}

func (s *fakeTeamStore) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, apperrors.ErrTeamNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *fakeTeamStore) ApplyScore(ctx context.Context, req teams.ApplyScoreRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[req.TeamID]
	if !ok {
		return false, apperrors.ErrTeamNotFound
	}
	if t.HasAnswered(req.Round, req.QuestionNumber) {
		return false, nil
	}
	switch req.Round {
	case models.Round1:
		t.Round1Score += req.Points
		t.AnsweredRound1 = append(t.AnsweredRound1, req.QuestionNumber)
	case models.Round2:
		t.Round2Score += req.Points
		t.AnsweredRound2 = append(t.AnsweredRound2, req.QuestionNumber)
	case models.Round3:
		if req.QuestionNumber == models.Round3Challenge2 {
			t.Round3Challenge2Score += req.Points
		} else {
			t.Round3Challenge1Score += req.Points
		}
		t.AnsweredRound3 = append(t.AnsweredRound3, req.QuestionNumber)
	}
	t.ScoreUpdatedAt = req.At
	return true, nil
}

func (s *fakeTeamStore) IncrementRound3Attempts(ctx context.Context, teamID uuid.UUID, challenge, max int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return 0, apperrors.ErrTeamNotFound
	}
	if challenge == models.Round3Challenge2 {
		if t.Round3Challenge2Attempts >= max {
			return 0, apperrors.ErrAttemptsExhausted
		}
		t.Round3Challenge2Attempts++
		return t.Round3Challenge2Attempts, nil
	}
	if t.Round3Challenge1Attempts >= max {
		return 0, apperrors.ErrAttemptsExhausted
	}
	t.Round3Challenge1Attempts++
	return t.Round3Challenge1Attempts, nil
}

func (s *fakeTeamStore) AdvanceQuestion(ctx context.Context, teamID uuid.UUID, round models.Round, next int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return apperrors.ErrTeamNotFound
	}
	if round == models.Round1 && next > t.CurrentQuestionRound1 {
		t.CurrentQuestionRound1 = next
	}
	if round == models.Round2 && next > t.CurrentQuestionRound2 {
		t.CurrentQuestionRound2 = next
	}
	return nil
}

type questionKey struct {
	round models.Round
	num   int
}

type fakeQuestionStore struct {
	questions map[questionKey]*models.Question
}

func (s *fakeQuestionStore) GetQuestion(ctx context.Context, round models.Round, num int) (*models.Question, error) {
	q, ok := s.questions[questionKey{round, num}]
	if !ok {
		return nil, apperrors.ErrQuestionNotFound
	}
	return q, nil
}

type fakeStateStore struct {
	mu    sync.Mutex
	state models.RoundState
}

func (s *fakeStateStore) State(ctx context.Context) (*models.RoundState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := s.state
	return &copied, nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	pushes int
}

func (b *fakeBroadcaster) PushLeaderboard(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushes++
	return nil
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pushes
}

type engineFixture struct {
	engine    *Engine
	teams     *fakeTeamStore
	broadcast *fakeBroadcaster
	clock     *clockwork.FakeClock
	team      *models.Team
}

func newEngineFixture(t *testing.T, activeRound models.Round) *engineFixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	now := clock.Now()
	end := now.Add(30 * time.Minute)

	team := &models.Team{
		ID:                    uuid.New(),
		TeamName:              "gophers",
		Members:               []string{"ana", "ben"},
		CurrentQuestionRound1: 1,
		CurrentQuestionRound2: 1,
		RegisteredAt:          now,
		ScoreUpdatedAt:        now,
	}

	teamStore := newFakeTeamStore(team)
	questionStore := &fakeQuestionStore{questions: map[questionKey]*models.Question{
		{models.Round1, 5}: {Round: models.Round1, QuestionNumber: 5, Answer: "Gopher", Points: 1},
		{models.Round2, 2}: {Round: models.Round2, QuestionNumber: 2, Answer: "channel", Points: 5},
		{models.Round3, 1}: {Round: models.Round3, QuestionNumber: 1, Answer: "mutex", Points: 0},
		{models.Round3, 2}: {Round: models.Round3, QuestionNumber: 2, Answer: "select", Points: 0},
	}}
	stateStore := &fakeStateStore{state: models.RoundState{
		CurrentRound:   activeRound,
		IsGameActive:   activeRound != models.RoundNone,
		RoundStartTime: &now,
	}}
	if activeRound != models.RoundNone {
		stateStore.state.RoundEndTime = &end
	}

	broadcast := &fakeBroadcaster{}
	engine := NewEngine(teamStore, questionStore, stateStore, broadcast, clock, DefaultConfig())

	return &engineFixture{
		engine:    engine,
		teams:     teamStore,
		broadcast: broadcast,
		clock:     clock,
		team:      team,
	}
}

func TestSubmitRejectsUnknownTeam(t *testing.T) {
	f := newEngineFixture(t, models.Round1)

	_, err := f.engine.Submit(context.Background(), uuid.New(), models.Round1, 5, "gopher")
	require.ErrorIs(t, err, apperrors.ErrTeamNotFound)
}

func TestSubmitRejectsInactiveRound(t *testing.T) {
	f := newEngineFixture(t, models.Round2)

	_, err := f.engine.Submit(context.Background(), f.team.ID, models.Round1, 5, "gopher")
	require.ErrorIs(t, err, apperrors.ErrRoundNotActive)
	assert.Zero(t, f.broadcast.count())
}

func TestSubmitRejectsEndedRound(t *testing.T) {
	f := newEngineFixture(t, models.Round1)
	f.clock.Advance(31 * time.Minute)

	_, err := f.engine.Submit(context.Background(), f.team.ID, models.Round1, 5, "gopher")
	require.ErrorIs(t, err, apperrors.ErrRoundEnded)
}

func TestSubmitCorrectAnswerScoresOnce(t *testing.T) {
	f := newEngineFixture(t, models.Round1)
	f.clock.Advance(5 * time.Minute)

	result, err := f.engine.Submit(context.Background(), f.team.ID, models.Round1, 5, "gopher")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 1, result.PointsEarned)
	assert.Equal(t, 6, result.NextQuestion)
	assert.Equal(t, 1, f.broadcast.count())

	stored, err := f.teams.GetTeam(context.Background(), f.team.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Round1Score)
	assert.Equal(t, f.clock.Now(), stored.ScoreUpdatedAt)

	// Repeat submissions after success are rejected, never re-scored.
	_, err = f.engine.Submit(context.Background(), f.team.ID, models.Round1, 5, "gopher")
	require.ErrorIs(t, err, apperrors.ErrAlreadyAnswered)

	stored, err = f.teams.GetTeam(context.Background(), f.team.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Round1Score)
	assert.Equal(t, 1, f.broadcast.count())
}

func TestSubmitMatchesCaseInsensitively(t *testing.T) {
	f := newEngineFixture(t, models.Round2)

	result, err := f.engine.Submit(context.Background(), f.team.ID, models.Round2, 2, "  CHANNEL ")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 5, result.PointsEarned)
}

func TestSubmitWrongAnswerScoresNothing(t *testing.T) {
	f := newEngineFixture(t, models.Round1)

	result, err := f.engine.Submit(context.Background(), f.team.ID, models.Round1, 5, "badger")
	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Zero(t, result.PointsEarned)
	assert.Zero(t, f.broadcast.count())
}

func TestRound3FirstAttemptAwards30(t *testing.T) {
	f := newEngineFixture(t, models.Round3)

	result, err := f.engine.Submit(context.Background(), f.team.ID, models.Round3, 1, "mutex")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 30, result.PointsEarned)
}

func TestRound3SecondAttemptAwards20(t *testing.T) {
	f := newEngineFixture(t, models.Round3)

	result, err := f.engine.Submit(context.Background(), f.team.ID, models.Round3, 1, "semaphore")
	require.NoError(t, err)
	assert.False(t, result.IsCorrect)

	result, err = f.engine.Submit(context.Background(), f.team.ID, models.Round3, 1, "mutex")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 20, result.PointsEarned)
}

func TestRound3ThirdAttemptAwards10(t *testing.T) {
	f := newEngineFixture(t, models.Round3)

	for _, wrong := range []string{"semaphore", "spinlock"} {
		result, err := f.engine.Submit(context.Background(), f.team.ID, models.Round3, 1, wrong)
		require.NoError(t, err)
		assert.False(t, result.IsCorrect)
	}

	result, err := f.engine.Submit(context.Background(), f.team.ID, models.Round3, 1, "mutex")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 10, result.PointsEarned)
}

func TestRound3FourthAttemptRejected(t *testing.T) {
	f := newEngineFixture(t, models.Round3)

	for _, wrong := range []string{"a", "b", "c"} {
		result, err := f.engine.Submit(context.Background(), f.team.ID, models.Round3, 1, wrong)
		require.NoError(t, err)
		assert.False(t, result.IsCorrect)
	}

	// Correctness no longer matters once the limit is hit.
	_, err := f.engine.Submit(context.Background(), f.team.ID, models.Round3, 1, "mutex")
	require.ErrorIs(t, err, apperrors.ErrAttemptsExhausted)
}

func TestRound3ChallengesTrackAttemptsIndependently(t *testing.T) {
	f := newEngineFixture(t, models.Round3)

	for _, wrong := range []string{"a", "b", "c"} {
		_, err := f.engine.Submit(context.Background(), f.team.ID, models.Round3, 1, wrong)
		require.NoError(t, err)
	}

	result, err := f.engine.Submit(context.Background(), f.team.ID, models.Round3, 2, "select")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 30, result.PointsEarned)
}

func TestSkipDisallowedForRound3(t *testing.T) {
	f := newEngineFixture(t, models.Round3)

	_, err := f.engine.Skip(context.Background(), f.team.ID, models.Round3, 1)
	require.ErrorIs(t, err, apperrors.ErrSkipNotAllowed)
}

func TestSkipAdvancesWithoutScoring(t *testing.T) {
	f := newEngineFixture(t, models.Round1)

	next, err := f.engine.Skip(context.Background(), f.team.ID, models.Round1, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, next)

	stored, err := f.teams.GetTeam(context.Background(), f.team.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Round1Score)
	assert.Equal(t, 6, stored.CurrentQuestionRound1)
	assert.Zero(t, f.broadcast.count())
}
