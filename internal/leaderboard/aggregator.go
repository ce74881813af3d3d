package leaderboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/quizrush/quizrush/internal/models"
)

// DefaultDisplaySize is how many entries a leaderboard broadcast carries.
// It is a display limit only; every team stays fully scored internally.
const DefaultDisplaySize = 10

// TeamLister defines what the aggregator needs from the teams store.
type TeamLister interface {
	ListTeams(ctx context.Context) ([]models.Team, error)
}

// Aggregator computes a deterministic ranked view from all team records.
// Compute is pure with respect to its inputs and safe to call concurrently.
type Aggregator struct {
	teams       TeamLister
	displaySize int
}

// NewAggregator creates an aggregator truncating to displaySize entries.
// A non-positive size falls back to DefaultDisplaySize.
func NewAggregator(teams TeamLister, displaySize int) *Aggregator {
	if displaySize <= 0 {
		displaySize = DefaultDisplaySize
	}
	return &Aggregator{teams: teams, displaySize: displaySize}
}

// Compute ranks all teams by total score descending. Ties break on
// ScoreUpdatedAt ascending, so the team that reached its score earliest
// ranks higher.
func (a *Aggregator) Compute(ctx context.Context) ([]models.LeaderboardEntry, error) {
	teams, err := a.teams.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(teams))
	for _, t := range teams {
		entries = append(entries, models.LeaderboardEntry{
			TeamName:       t.TeamName,
			CollegeName:    t.CollegeName,
			TeamMembers:    t.Members,
			Round1Score:    t.Round1Score,
			Round2Score:    t.Round2Score,
			Round3Score:    t.Round3Challenge1Score + t.Round3Challenge2Score,
			TotalScore:     t.TotalScore(),
			ScoreUpdatedAt: t.ScoreUpdatedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].ScoreUpdatedAt.Before(entries[j].ScoreUpdatedAt)
	})

	if len(entries) > a.displaySize {
		entries = entries[:a.displaySize]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
