package rounds

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/quizrush/quizrush/internal/apperrors"
	"github.com/quizrush/quizrush/internal/gateway"
	"github.com/quizrush/quizrush/internal/models"
	"github.com/rs/zerolog/log"
)

// StateStore defines what the controller needs from the round-state
// repository.
type StateStore interface {
	State(ctx context.Context) (*models.RoundState, error)
	SetActiveRound(ctx context.Context, round models.Round, start, end time.Time) error
	ClearActiveRound(ctx context.Context, at time.Time) error
	SetRegistrationOpen(ctx context.Context, open bool, at time.Time) error
}

// Notifier defines what the controller needs from the broadcast
// synchronizer.
type Notifier interface {
	NotifyStateChange(patch gateway.StatePatch)
	NotifyRegistrationChange(open bool)
	NotifyRoundTerminated()
	PushLeaderboard(ctx context.Context) error
}

// Durations maps each round to its fixed length.
type Durations map[models.Round]time.Duration

// DefaultDurations returns the standard 30/40/60 minute windows.
func DefaultDurations() Durations {
	return Durations{
		models.Round1: 30 * time.Minute,
		models.Round2: 40 * time.Minute,
		models.Round3: 60 * time.Minute,
	}
}

const autoEndPersistTimeout = 10 * time.Second

// Controller is the sole owner of round lifecycle and its timers. Start,
// terminate and the auto-end callback are serialized by one mutex, so a
// timer firing concurrently with a manual termination can never
// double-process a round end.
type Controller struct {
	store     StateStore
	notifier  Notifier
	clock     clockwork.Clock
	durations Durations

	// mu serializes all lifecycle transitions (single-writer RoundState).
	mu sync.Mutex

	timerMu     sync.Mutex
	activeTimer clockwork.Timer
	timerCancel chan struct{}
}

// NewController creates the round controller.
func NewController(store StateStore, notifier Notifier, clock clockwork.Clock, durations Durations) *Controller {
	if len(durations) == 0 {
		durations = DefaultDurations()
	}
	return &Controller{
		store:     store,
		notifier:  notifier,
		clock:     clock,
		durations: durations,
	}
}

// StartRound activates the given round with its configured duration and
// schedules the auto-end timer. Calling it again for the round that is
// already running is a no-op; calling it while a different round is active
// is rejected, which keeps at most one auto-end timer pending.
func (c *Controller) StartRound(ctx context.Context, round models.Round) error {
	if !round.Valid() {
		return apperrors.ErrInvalidRound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.State(ctx)
	if err != nil {
		return err
	}
	if state.IsGameActive {
		if state.CurrentRound == round {
			return nil
		}
		return apperrors.ErrRoundAlreadyActive
	}

	duration, ok := c.durations[round]
	if !ok {
		return apperrors.ErrInvalidRound
	}

	now := c.clock.Now()
	end := now.Add(duration)

	// The mirror and observers learn about the new state only after this
	// write succeeds.
	if err := c.store.SetActiveRound(ctx, round, now, end); err != nil {
		return err
	}

	c.scheduleAutoEnd(round, end)

	r := round
	status := models.GameStatusInProgress
	c.notifier.NotifyStateChange(gateway.StatePatch{
		CurrentRound: &r,
		GameStatus:   &status,
		EndTime:      &end,
	})
	if err := c.notifier.PushLeaderboard(ctx); err != nil {
		log.Error().Err(err).Msg("failed to push leaderboard after round start")
	}

	log.Info().
		Int("round", int(round)).
		Time("end_time", end).
		Dur("duration", duration).
		Msg("round started")

	return nil
}

// TerminateRound ends the active round. Idempotent: when no round is
// active it succeeds without side effects or broadcasts.
func (c *Controller) TerminateRound(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminateLocked(ctx)
}

// SetRegistrationOpen toggles registration and publishes the dedicated
// registration notification.
func (c *Controller) SetRegistrationOpen(ctx context.Context, open bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SetRegistrationOpen(ctx, open, c.clock.Now()); err != nil {
		return err
	}
	c.notifier.NotifyRegistrationChange(open)

	log.Info().Bool("open", open).Msg("registration status changed")
	return nil
}

func (c *Controller) terminateLocked(ctx context.Context) error {
	state, err := c.store.State(ctx)
	if err != nil {
		return err
	}
	if !state.IsGameActive {
		return nil
	}

	if err := c.store.ClearActiveRound(ctx, c.clock.Now()); err != nil {
		return err
	}

	c.cancelTimer()

	c.notifier.NotifyRoundTerminated()
	if err := c.notifier.PushLeaderboard(ctx); err != nil {
		log.Error().Err(err).Msg("failed to push leaderboard after round termination")
	}

	log.Info().Int("round", int(state.CurrentRound)).Msg("round terminated")
	return nil
}

// scheduleAutoEnd replaces any pending timer with a one-shot timer firing
// at end. The handle is explicit and cancellable; the firing path re-checks
// authoritative state before acting, so a stale callback is a safe no-op.
func (c *Controller) scheduleAutoEnd(round models.Round, end time.Time) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	c.cancelTimerLocked()

	duration := end.Sub(c.clock.Now())
	if duration < 0 {
		duration = 0
	}
	timer := c.clock.NewTimer(duration)
	cancel := make(chan struct{})
	c.activeTimer = timer
	c.timerCancel = cancel

	go func() {
		select {
		case <-timer.Chan():
			c.autoEnd(round)
		case <-cancel:
			stopAndDrainTimer(timer)
			log.Debug().Int("round", int(round)).Msg("auto-end timer cancelled")
		}
	}()

	log.Debug().
		Int("round", int(round)).
		Time("end_time", end).
		Dur("duration", duration).
		Msg("scheduled auto-end timer")
}

// autoEnd runs when the round timer fires. It goes through the same
// termination path as an explicit TerminateRound call after re-checking
// that the round it was armed for is still the active one.
func (c *Controller) autoEnd(round models.Round) {
	ctx, cancel := context.WithTimeout(context.Background(), autoEndPersistTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.State(ctx)
	if err != nil {
		log.Error().Err(err).Int("round", int(round)).Msg("auto-end could not read round state")
		return
	}
	if !state.IsGameActive || state.CurrentRound != round {
		log.Debug().Int("round", int(round)).Msg("auto-end timer fired for inactive round, ignoring")
		return
	}

	log.Info().Int("round", int(round)).Msg("round duration elapsed, auto-ending")
	if err := c.terminateLocked(ctx); err != nil {
		log.Error().Err(err).Int("round", int(round)).Msg("auto-end termination failed")
	}
}

func (c *Controller) cancelTimer() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	c.cancelTimerLocked()
}

func (c *Controller) cancelTimerLocked() {
	if c.timerCancel != nil {
		close(c.timerCancel)
		c.timerCancel = nil
		c.activeTimer = nil
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent
// goroutine leaks, per the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
