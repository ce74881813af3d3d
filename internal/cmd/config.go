package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/quizrush/quizrush/internal/models"
	"github.com/quizrush/quizrush/internal/rounds"
	"gopkg.in/yaml.v3"
)

// Config is the game configuration file. Durations, the round-3 schedule
// and the leaderboard size all live here rather than in code.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Game struct {
		RoundDurationsMinutes map[int]int `yaml:"round_durations_minutes"`
		Round3MaxAttempts     int         `yaml:"round3_max_attempts"`
		Round3PointsByAttempt []int       `yaml:"round3_points_by_attempt"`
		LeaderboardSize       int         `yaml:"leaderboard_size"`
	} `yaml:"game"`

	NATS struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Game.RoundDurationsMinutes = map[int]int{1: 30, 2: 40, 3: 60}
	cfg.Game.Round3MaxAttempts = 3
	cfg.Game.Round3PointsByAttempt = []int{30, 20, 10}
	cfg.Game.LeaderboardSize = 10
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.SubjectPrefix = "quiz.events"
	return &cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// durations converts the configured per-round minutes to the controller's
// duration table.
func (c *Config) durations() rounds.Durations {
	d := make(rounds.Durations, len(c.Game.RoundDurationsMinutes))
	for round, minutes := range c.Game.RoundDurationsMinutes {
		d[models.Round(round)] = time.Duration(minutes) * time.Minute
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
