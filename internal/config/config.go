// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the scraper service.
type Config struct {
	Port                string
	DatabaseURL         string
	RedisURL            string
	SearchBaseURL       string // job search interface, e.g. the public guest search endpoint
	DetailBaseURL       string // posting detail pages
	AIBaseURL           string // OpenAI-compatible chat completions endpoint
	AIAPIKey            string
	AIModel             string
	ScrapeIntervalHours int // How often the cron job fires
	LogLevel            string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	interval := 6
	if s := os.Getenv("SCRAPE_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SCRAPE_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		interval = v
	}

	searchBase := os.Getenv("SEARCH_BASE_URL")
	if searchBase == "" {
		searchBase = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	}

	detailBase := os.Getenv("DETAIL_BASE_URL")
	if detailBase == "" {
		detailBase = "https://www.linkedin.com/jobs/view"
	}

	aiBase := os.Getenv("AI_BASE_URL")
	if aiBase == "" {
		aiBase = "https://api.openai.com/v1"
	}

	aiModel := os.Getenv("AI_MODEL")
	if aiModel == "" {
		aiModel = "gpt-4o-mini"
	}

	port := os.Getenv("SCRAPER_PORT")
	if port == "" {
		port = "8082"
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	return &Config{
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            redisURL,
		SearchBaseURL:       searchBase,
		DetailBaseURL:       detailBase,
		AIBaseURL:           aiBase,
		AIAPIKey:            os.Getenv("AI_API_KEY"),
		AIModel:             aiModel,
		ScrapeIntervalHours: interval,
		LogLevel:            level,
	}, nil
}
