package detail

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobwatch/scraper-service/internal/model"
)

// PostgresStore is the pgx-backed Store used in production.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a verified pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindByPosting returns the single detail row for a posting, or nil.
func (s *PostgresStore) FindByPosting(ctx context.Context, postingID string) (*model.JobDetail, error) {
	var d model.JobDetail
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_posting_id, title, company_name, location,
		        description_text, extracted_json::text, checksum, created_at, updated_at
		 FROM job_details
		 WHERE job_posting_id = $1`,
		postingID,
	).Scan(
		&d.ID, &d.JobPostingID, &d.Title, &d.CompanyName, &d.Location,
		&d.DescriptionText, &d.ExtractedJSON, &d.Checksum, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query job_details: %w", err)
	}
	return &d, nil
}

// FindExtractionByChecksum searches live detail rows first, then history,
// for any row fingerprinted identically. No freshness bound: any match is
// reused, matching how duplicate postings are handled upstream.
func (s *PostgresStore) FindExtractionByChecksum(ctx context.Context, sum string) (string, bool, error) {
	var extracted string
	err := s.pool.QueryRow(ctx,
		`SELECT extracted_json::text FROM (
		   SELECT extracted_json, updated_at AS at FROM job_details WHERE checksum = $1
		   UNION ALL
		   SELECT extracted_json, archived_at AS at FROM job_detail_history WHERE checksum = $1
		 ) matches
		 ORDER BY at DESC
		 LIMIT 1`,
		sum,
	).Scan(&extracted)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query extraction by checksum: %w", err)
	}
	return extracted, true, nil
}

// CreateDetail inserts the first detail row for a posting and stamps the
// posting's last_scraped_at, in one transaction.
func (s *PostgresStore) CreateDetail(ctx context.Context, d *model.JobDetail) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO job_details
		   (job_posting_id, title, company_name, location, description_text, extracted_json, checksum)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		 RETURNING id, created_at, updated_at`,
		d.JobPostingID, d.Title, d.CompanyName, d.Location, d.DescriptionText, d.ExtractedJSON, d.Checksum,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job_details: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE job_postings SET last_scraped_at = NOW() WHERE id = $1`,
		d.JobPostingID,
	); err != nil {
		return fmt.Errorf("touch job_postings: %w", err)
	}

	return tx.Commit(ctx)
}

// ArchiveAndUpdate copies the prior row's state into job_detail_history,
// overwrites the detail row, and stamps the posting — atomically. The
// history copy happens server-side from the current row, before the update,
// so a failure at any step leaves the prior state fully intact.
func (s *PostgresStore) ArchiveAndUpdate(ctx context.Context, existing *model.JobDetail, fields model.ScrapedFields, extracted, sum string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO job_detail_history
		   (job_detail_id, title, company_name, location, description_text, extracted_json, checksum)
		 SELECT id, title, company_name, location, description_text, extracted_json, checksum
		 FROM job_details
		 WHERE id = $1`,
		existing.ID,
	); err != nil {
		return fmt.Errorf("insert job_detail_history: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE job_details
		 SET title = $1, company_name = $2, location = $3, description_text = $4,
		     extracted_json = $5::jsonb, checksum = $6, updated_at = NOW()
		 WHERE id = $7`,
		fields.Title, fields.CompanyName, fields.Location, fields.Description,
		extracted, sum, existing.ID,
	); err != nil {
		return fmt.Errorf("update job_details: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE job_postings SET last_scraped_at = NOW() WHERE id = $1`,
		existing.JobPostingID,
	); err != nil {
		return fmt.Errorf("touch job_postings: %w", err)
	}

	return tx.Commit(ctx)
}
