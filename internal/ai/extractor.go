// Package ai derives structured job attributes from scraped posting fields
// via an OpenAI-compatible chat completions endpoint.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"jobwatch/scraper-service/internal/model"
	"jobwatch/scraper-service/internal/retry"
)

// ErrMalformedOutput marks a response the model produced that is not the
// JSON object we asked for. It is the only extraction error worth retrying:
// a second sampling often fixes it, while auth or quota errors will not
// improve on their own.
var ErrMalformedOutput = errors.New("malformed extraction output")

// Extractor is the interface the change-detection pipeline depends on. The
// returned payload is stored verbatim in job_details.extracted_json.
type Extractor interface {
	Extract(ctx context.Context, fields model.ScrapedFields) (json.RawMessage, error)
}

// RetryPolicy is the policy wrapped around every Extract call: one retry,
// and only for malformed output.
func RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  2,
		InitialDelay: 1000 * time.Millisecond,
		MaxDelay:     3000 * time.Millisecond,
		RetryOn: func(err error) retry.Decision {
			return retry.Decision{Retry: errors.Is(err, ErrMalformedOutput)}
		},
	}
}
