package models

import "time"

// LeaderboardEntry is a derived ranking row. It is recomputed on demand from
// Team records and never persisted.
type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	TeamName       string    `json:"team_name"`
	CollegeName    string    `json:"college_name"`
	TeamMembers    []string  `json:"team_members"`
	Round1Score    int       `json:"round1_score"`
	Round2Score    int       `json:"round2_score"`
	Round3Score    int       `json:"round3_score"`
	TotalScore     int       `json:"total_score"`
	ScoreUpdatedAt time.Time `json:"score_updated_at"`
}
