package gateway

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/quizrush/quizrush/internal/models"
	"github.com/rs/zerolog/log"
)

// LeaderboardSource defines what the synchronizer needs from the aggregator.
type LeaderboardSource interface {
	Compute(ctx context.Context) ([]models.LeaderboardEntry, error)
}

// EventPublisher mirrors broadcast events onto an external bus. Publish
// failures never fail the originating mutation.
type EventPublisher interface {
	Publish(event *Event) error
}

// Synchronizer keeps connected observers consistent with authoritative
// state. It owns the state mirror, pushes typed events through the hub, and
// seeds every new subscriber with a snapshot so late joiners never wait for
// the next mutation.
type Synchronizer struct {
	hub         *Hub
	mirror      *StateMirror
	leaderboard LeaderboardSource
	clock       clockwork.Clock
	publisher   EventPublisher
}

// NewSynchronizer wires the hub to the mirror and leaderboard source.
// publisher may be nil when no external bus is configured.
func NewSynchronizer(hub *Hub, mirror *StateMirror, leaderboard LeaderboardSource, clock clockwork.Clock, publisher EventPublisher) *Synchronizer {
	s := &Synchronizer{
		hub:         hub,
		mirror:      mirror,
		leaderboard: leaderboard,
		clock:       clock,
		publisher:   publisher,
	}
	hub.onSubscribe = s.seedConnection
	hub.onCountChange = mirror.AddActiveUsers
	return s
}

// NotifyStateChange merges the patch into the mirror and pushes a
// state-changed event to every observer. Callers invoke this only after the
// underlying persistence succeeded, so observers never see a state that was
// never durably committed.
func (s *Synchronizer) NotifyStateChange(patch StatePatch) {
	s.mirror.Apply(patch)
	s.push(EventTypeStateChanged, s.mirror.Snapshot())
}

// NotifyRegistrationChange pushes the dedicated registration event and then
// folds the flag into a general state push.
func (s *Synchronizer) NotifyRegistrationChange(open bool) {
	s.mirror.Apply(StatePatch{Registration: &open})
	s.push(EventTypeRegistrationChanged, RegistrationChangedPayload{Open: open})
	s.push(EventTypeStateChanged, s.mirror.Snapshot())
}

// NotifyRoundTerminated resets the mirror to the stopped state and pushes
// the dedicated round-terminated event, distinct from a generic state push
// so observers can reset countdowns immediately.
func (s *Synchronizer) NotifyRoundTerminated() {
	round := models.RoundNone
	status := models.GameStatusStopped
	s.mirror.Apply(StatePatch{CurrentRound: &round, GameStatus: &status, ClearEndTime: true})

	s.push(EventTypeRoundTerminated, RoundTerminatedPayload{TerminatedAt: s.clock.Now()})
	s.push(EventTypeStateChanged, s.mirror.Snapshot())
}

// PushLeaderboard recomputes the standings and pushes the top-N snapshot.
// Invoked after every successful score mutation and after round
// start/terminate.
func (s *Synchronizer) PushLeaderboard(ctx context.Context) error {
	entries, err := s.leaderboard.Compute(ctx)
	if err != nil {
		return err
	}
	s.push(EventTypeLeaderboardChanged, LeaderboardChangedPayload{Entries: entries})
	return nil
}

// Snapshot answers "give me the current state" requests from the mirror
// without re-querying the store.
func (s *Synchronizer) Snapshot() StateChangedPayload {
	return s.mirror.Snapshot()
}

// seedConnection sends the current mirrored state and a fresh leaderboard
// snapshot to a newly subscribed observer.
func (s *Synchronizer) seedConnection(conn *Connection) {
	stateEvent, err := NewEvent(EventTypeStateChanged, s.clock.Now(), s.mirror.Snapshot())
	if err != nil {
		log.Error().Err(err).Msg("failed to build snapshot state event")
	} else {
		s.hub.SendEvent(conn, stateEvent)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := s.leaderboard.Compute(ctx)
	if err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to compute leaderboard for new observer")
		return
	}
	lbEvent, err := NewEvent(EventTypeLeaderboardChanged, s.clock.Now(), LeaderboardChangedPayload{Entries: entries})
	if err != nil {
		log.Error().Err(err).Msg("failed to build snapshot leaderboard event")
		return
	}
	s.hub.SendEvent(conn, lbEvent)
}

func (s *Synchronizer) push(eventType EventType, payload any) {
	event, err := NewEvent(eventType, s.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}

	s.hub.Broadcast(event)

	if s.publisher != nil {
		if err := s.publisher.Publish(event); err != nil {
			log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish event to bus")
		}
	}
}
