// Package detail implements checksum-based change detection for job detail
// rows: first scrape creates, identical re-scrape is a no-op, changed
// content archives the prior row into history and updates in place, all
// inside one transaction.
package detail

import (
	"context"
	"fmt"
	"log/slog"

	"jobwatch/scraper-service/internal/ai"
	"jobwatch/scraper-service/internal/checksum"
	"jobwatch/scraper-service/internal/model"
	"jobwatch/scraper-service/internal/retry"
)

// Outcome is the per-posting result of one change-detection pass.
type Outcome int

const (
	// Unseen: no detail row existed; one was created.
	Unseen Outcome = iota
	// Unchanged: stored checksum matched the candidate; nothing written.
	Unchanged
	// Changed: prior row archived to history and updated in place.
	Changed
)

func (o Outcome) String() string {
	switch o {
	case Unseen:
		return "unseen"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Store is the persistence contract the detector drives. ArchiveAndUpdate
// must be atomic: history insert, detail update and posting timestamp touch
// commit together or not at all.
type Store interface {
	// FindByPosting returns the detail row for a posting, or nil when none
	// exists yet.
	FindByPosting(ctx context.Context, postingID string) (*model.JobDetail, error)

	// FindExtractionByChecksum returns a stored extraction payload from any
	// detail or history row whose checksum equals sum. ok is false when no
	// row matches.
	FindExtractionByChecksum(ctx context.Context, sum string) (extracted string, ok bool, err error)

	// CreateDetail inserts the first detail row for a posting and stamps
	// the posting's last-scraped time.
	CreateDetail(ctx context.Context, d *model.JobDetail) error

	// ArchiveAndUpdate atomically copies the existing row into history,
	// overwrites it with fields/extracted/sum, and stamps the posting's
	// last-scraped time.
	ArchiveAndUpdate(ctx context.Context, existing *model.JobDetail, fields model.ScrapedFields, extracted, sum string) error
}

// Detector runs the change-detection protocol for one posting at a time.
// It holds no mutable state; concurrent use is safe if the Store is.
type Detector struct {
	store     Store
	extractor ai.Extractor
	logger    *slog.Logger
}

// NewDetector constructs a Detector.
func NewDetector(store Store, extractor ai.Extractor, logger *slog.Logger) *Detector {
	return &Detector{store: store, extractor: extractor, logger: logger}
}

// Fingerprint computes the content checksum for a set of scraped fields.
// The digest covers exactly these four fields, never the AI extraction, so
// identical posting text always implies a reusable extraction.
func Fingerprint(f model.ScrapedFields) (string, error) {
	return checksum.Sum(map[string]any{
		"title":       f.Title,
		"companyName": f.CompanyName,
		"location":    f.Location,
		"description": f.Description,
	})
}

// Process runs one change-detection pass for postingID with freshly scraped
// fields. A checksum rejection is returned as-is: it signals a caller bug
// and must not be absorbed by any retry policy.
func (d *Detector) Process(ctx context.Context, postingID string, fields model.ScrapedFields) (Outcome, error) {
	sum, err := Fingerprint(fields)
	if err != nil {
		return 0, err
	}

	existing, err := d.store.FindByPosting(ctx, postingID)
	if err != nil {
		return 0, fmt.Errorf("find detail for posting %s: %w", postingID, err)
	}

	if existing == nil {
		extracted, err := d.extraction(ctx, sum, fields)
		if err != nil {
			return 0, err
		}
		row := &model.JobDetail{
			JobPostingID:    postingID,
			Title:           fields.Title,
			CompanyName:     fields.CompanyName,
			Location:        fields.Location,
			DescriptionText: fields.Description,
			ExtractedJSON:   extracted,
			Checksum:        sum,
		}
		if err := d.store.CreateDetail(ctx, row); err != nil {
			return 0, fmt.Errorf("create detail for posting %s: %w", postingID, err)
		}
		return Unseen, nil
	}

	if existing.Checksum == sum {
		return Unchanged, nil
	}

	extracted, err := d.extraction(ctx, sum, fields)
	if err != nil {
		return 0, err
	}
	if err := d.store.ArchiveAndUpdate(ctx, existing, fields, extracted, sum); err != nil {
		return 0, fmt.Errorf("archive and update detail %s: %w", existing.ID, err)
	}
	return Changed, nil
}

// extraction resolves the AI payload for a checksum: reuse a stored
// extraction from any posting with identical content, else call the model
// under the extraction retry policy. Reposted-verbatim duplicates are
// common, so the lookup saves real extraction cost.
func (d *Detector) extraction(ctx context.Context, sum string, fields model.ScrapedFields) (string, error) {
	reused, ok, err := d.store.FindExtractionByChecksum(ctx, sum)
	if err != nil {
		return "", fmt.Errorf("extraction lookup by checksum: %w", err)
	}
	if ok {
		d.logger.Debug("reusing extraction from identical posting", "checksum", sum)
		return reused, nil
	}

	raw, err := retry.Do(ctx, ai.RetryPolicy(), func(ctx context.Context) ([]byte, error) {
		return d.extractor.Extract(ctx, fields)
	})
	if err != nil {
		return "", fmt.Errorf("ai extraction: %w", err)
	}
	return string(raw), nil
}
