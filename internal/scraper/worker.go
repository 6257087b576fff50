package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jobwatch/scraper-service/internal/detail"
	"jobwatch/scraper-service/internal/model"
)

// changeChannel is the redis pub/sub channel notified after every committed
// detail change, so downstream consumers can re-rank or re-notify.
const changeChannel = "JOB_DETAIL_CHANGED"

// Worker runs the full scrape cycle: discovers posting IDs from the search
// interface, registers new postings, then walks every live posting through
// fetch → extract → change detection. Postings are processed one at a time;
// the retry delays inside a single posting suspend only this worker.
type Worker struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	fetcher  *Fetcher
	detector *detail.Detector
	logger   *slog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(pool *pgxpool.Pool, rdb *redis.Client, fetcher *Fetcher, detector *detail.Detector, logger *slog.Logger) *Worker {
	return &Worker{pool: pool, rdb: rdb, fetcher: fetcher, detector: detector, logger: logger}
}

// Run executes one scrape cycle for the given SearchConfig: discovery for
// each (keyword × location) pair, then a detail pass over all live
// postings. Per-posting errors are logged and skipped — one broken page
// must not sink the cycle.
func (w *Worker) Run(ctx context.Context, cfg model.SearchConfig) error {
	w.logger.Info("scrape cycle started",
		"config_id", cfg.ID, "keywords", cfg.Keywords, "locations", cfg.Locations)

	discovered, registered := 0, 0
	for _, kw := range cfg.Keywords {
		for _, loc := range cfg.Locations {
			ids, err := w.fetcher.DiscoverIDs(ctx, kw, loc, cfg.RemoteOK, cfg.PageLimit)
			if err != nil {
				w.logger.Error("discovery failed, continuing",
					"keywords", kw, "location", loc, "err", err)
				continue
			}
			discovered += len(ids)
			n, err := w.registerPostings(ctx, ids)
			if err != nil {
				w.logger.Error("posting registration failed", "err", err)
				continue
			}
			registered += n
		}
	}

	w.logger.Info("discovery complete",
		"config_id", cfg.ID, "discovered", discovered, "new", registered)

	return w.scrapeDetails(ctx, cfg.ExcludeTerms)
}

// registerPostings inserts any posting IDs not seen before, deduplicating
// on external_id. Returns the number of newly registered postings.
func (w *Worker) registerPostings(ctx context.Context, ids []string) (int, error) {
	inserted := 0
	for _, id := range ids {
		tag, err := w.pool.Exec(ctx,
			`INSERT INTO job_postings (external_id, source_url)
			 SELECT $1, $2
			 WHERE NOT EXISTS (
			   SELECT 1 FROM job_postings WHERE external_id = $1
			 )`,
			id, DetailURL(w.fetcher.detailBase, id),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert job_postings: %w", err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// scrapeDetails walks every live posting sequentially: fetch the detail
// page under the fetch retry policy, filter exclusion terms, then run
// change detection. A gone posting is marked and skipped; any other
// failure is logged and skipped.
func (w *Worker) scrapeDetails(ctx context.Context, excludeTerms []string) error {
	postings, err := w.loadLivePostings(ctx)
	if err != nil {
		return err
	}

	var unseen, unchanged, changed, gone, excluded, failed int
	for _, p := range postings {
		fields, err := w.fetcher.FetchDetail(ctx, p.ExternalID)
		if err != nil {
			if errors.Is(err, ErrPostingGone) {
				if err := w.markGone(ctx, p.ID); err != nil {
					w.logger.Error("mark gone failed", "posting_id", p.ID, "err", err)
				}
				gone++
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("detail fetch failed, skipping",
				"posting_id", p.ID, "external_id", p.ExternalID, "err", err)
			failed++
			continue
		}

		if ContainsExcludedTerm(fields, excludeTerms) {
			excluded++
			continue
		}

		outcome, err := w.detector.Process(ctx, p.ID, fields)
		if err != nil {
			w.logger.Error("change detection failed, skipping",
				"posting_id", p.ID, "err", err)
			failed++
			continue
		}

		switch outcome {
		case detail.Unseen:
			unseen++
		case detail.Unchanged:
			unchanged++
		case detail.Changed:
			changed++
			w.publishChange(ctx, p)
		}
	}

	w.logger.Info("detail pass complete",
		"postings", len(postings), "unseen", unseen, "unchanged", unchanged,
		"changed", changed, "gone", gone, "excluded", excluded, "failed", failed)
	return nil
}

// loadLivePostings fetches all postings not yet marked gone.
func (w *Worker) loadLivePostings(ctx context.Context) ([]model.JobPosting, error) {
	rows, err := w.pool.Query(ctx,
		`SELECT id, external_id, source_url, gone, last_scraped_at, created_at
		 FROM job_postings
		 WHERE gone = false
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query job_postings: %w", err)
	}
	defer rows.Close()

	var postings []model.JobPosting
	for rows.Next() {
		var p model.JobPosting
		if err := rows.Scan(&p.ID, &p.ExternalID, &p.SourceURL, &p.Gone, &p.LastScrapedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// markGone flags a posting the source no longer serves. Its detail and
// history rows are kept — removal from the source is not removal from us.
func (w *Worker) markGone(ctx context.Context, postingID string) error {
	_, err := w.pool.Exec(ctx,
		`UPDATE job_postings SET gone = true WHERE id = $1`, postingID)
	if err != nil {
		return fmt.Errorf("update job_postings: %w", err)
	}
	return nil
}

// publishChange notifies the change channel (non-fatal on failure).
func (w *Worker) publishChange(ctx context.Context, p model.JobPosting) {
	event, _ := json.Marshal(map[string]string{
		"type":       "JOB_DETAIL_CHANGED",
		"postingId":  p.ID,
		"externalId": p.ExternalID,
	})
	if err := w.rdb.Publish(ctx, changeChannel, event).Err(); err != nil {
		w.logger.Warn("publish change event failed", "posting_id", p.ID, "err", err)
	}
}
