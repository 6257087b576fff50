// Package scheduler wires up the cron job that periodically triggers a
// scrape cycle for all active SearchConfigs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"jobwatch/scraper-service/internal/model"
	"jobwatch/scraper-service/internal/scraper"
)

// Scheduler wraps robfig/cron and manages the scrape loop.
type Scheduler struct {
	cron   *cron.Cron
	pool   *pgxpool.Pool
	worker *scraper.Worker
	logger *slog.Logger
	spec   string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(pool *pgxpool.Pool, worker *scraper.Worker, intervalHours int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		pool:   pool,
		worker: worker,
		logger: logger,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one scrape
// immediately so the feed is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runScrape(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("cron started", "spec", s.spec)

	// Run immediately on startup (non-blocking)
	go s.runScrape(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("cron stopped")
}

// runScrape loads all active configs and runs the Worker for each one,
// sequentially — one posting is processed fully before the next starts.
func (s *Scheduler) runScrape(ctx context.Context) {
	configs, err := LoadActiveConfigs(ctx, s.pool)
	if err != nil {
		s.logger.Error("load active configs failed", "err", err)
		return
	}

	if len(configs) == 0 {
		s.logger.Info("no active search configs, nothing to scrape")
		return
	}

	s.logger.Info("running scrape", "configs", len(configs))
	for _, cfg := range configs {
		if err := s.worker.Run(ctx, cfg); err != nil {
			s.logger.Error("worker failed for config", "config_id", cfg.ID, "err", err)
		}
	}
	s.logger.Info("scrape cycle complete")
}

// LoadActiveConfigs fetches all is_active = true search configs from the DB.
func LoadActiveConfigs(ctx context.Context, pool *pgxpool.Pool) ([]model.SearchConfig, error) {
	rows, err := pool.Query(ctx,
		`SELECT id, keywords, locations, exclude_terms, remote_ok, page_limit
		 FROM search_configs
		 WHERE is_active = true`,
	)
	if err != nil {
		return nil, fmt.Errorf("query search_configs: %w", err)
	}
	defer rows.Close()

	var configs []model.SearchConfig
	for rows.Next() {
		var c model.SearchConfig
		if err := rows.Scan(&c.ID, &c.Keywords, &c.Locations, &c.ExcludeTerms, &c.RemoteOK, &c.PageLimit); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		configs = append(configs, c)
	}

	return configs, rows.Err()
}
