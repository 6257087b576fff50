package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobwatch/scraper-service/internal/model"
	"jobwatch/scraper-service/internal/retry"
)

const (
	httpTimeout = 15 * time.Second
	// Browsers' UA keeps the guest endpoints from rejecting the request
	// outright; anything beyond that is out of scope here.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// ErrPostingGone signals a posting the source no longer serves. It is a
// terminal outcome, not a failure: the caller marks the posting gone and
// moves on. Inside the fetch retry loop it travels as an abort so that no
// retry budget is spent on a page that will never come back.
var ErrPostingGone = errors.New("posting gone from source")

// errTransient marks responses worth retrying (5xx, 429).
var errTransient = errors.New("transient upstream response")

// Fetcher retrieves search pages and posting detail pages over HTTP and
// extracts fields via DOM selectors.
type Fetcher struct {
	searchBase string
	detailBase string
	client     *http.Client
}

// NewFetcher constructs a Fetcher with a shared HTTP client.
func NewFetcher(searchBase, detailBase string) *Fetcher {
	return &Fetcher{
		searchBase: searchBase,
		detailBase: detailBase,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// FetchPolicy is the retry policy wrapped around every search-page and
// detail-page request.
func FetchPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  6,
		InitialDelay: 2000 * time.Millisecond,
		Backoff:      retry.Exponential,
	}
}

// DiscoverIDs fetches search result pages for one (keywords × location)
// pair and returns the posting IDs found, paginating until an empty page
// or pageLimit pages. Each page request runs under FetchPolicy.
func (f *Fetcher) DiscoverIDs(ctx context.Context, keywords, location string, remoteOK bool, pageLimit int) ([]string, error) {
	if pageLimit < 1 {
		pageLimit = 1
	}

	var ids []string
	for page := 0; page < pageLimit; page++ {
		pageURL := SearchURL(f.searchBase, keywords, location, remoteOK, page*searchPageSize)

		batch, err := retry.Do(ctx, FetchPolicy(), func(ctx context.Context) ([]string, error) {
			return f.fetchSearchPage(ctx, pageURL)
		})
		if err != nil {
			return ids, fmt.Errorf("search page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		ids = append(ids, batch...)
		if len(batch) < searchPageSize {
			break // last page
		}
	}

	return ids, nil
}

// fetchSearchPage GETs one search page and pulls posting IDs out of the
// card markup via their data-entity-urn attributes.
func (f *Fetcher) fetchSearchPage(ctx context.Context, pageURL string) ([]string, error) {
	body, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ExtractPostingIDs(body)
}

// FetchDetail GETs a posting's detail page under FetchPolicy and extracts
// its fields. Returns ErrPostingGone when the source responds 404/410.
func (f *Fetcher) FetchDetail(ctx context.Context, externalID string) (model.ScrapedFields, error) {
	pageURL := DetailURL(f.detailBase, externalID)
	return retry.Do(ctx, FetchPolicy(), func(ctx context.Context) (model.ScrapedFields, error) {
		body, err := f.get(ctx, pageURL)
		if err != nil {
			return model.ScrapedFields{}, err
		}
		return ExtractDetailFields(body)
	})
}

// get performs one GET, classifying the response: 404/410 abort the retry
// loop as ErrPostingGone, 5xx and 429 are transient.
func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", retry.Abort(ErrPostingGone)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d from %s", errTransient, resp.StatusCode, rawURL)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// ExtractPostingIDs parses search-result markup and returns the posting ID
// of every job card, taken from the trailing segment of each card's
// data-entity-urn (urn:li:jobPosting:<id>).
func ExtractPostingIDs(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var ids []string
	seen := make(map[string]bool)
	doc.Find("[data-entity-urn]").Each(func(_ int, sel *goquery.Selection) {
		urn, _ := sel.Attr("data-entity-urn")
		idx := strings.LastIndex(urn, ":")
		if idx < 0 || idx == len(urn)-1 {
			return
		}
		id := urn[idx+1:]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	})
	return ids, nil
}

// ExtractDetailFields pulls the scraped field set out of a detail page.
// A page with no recognizable title is treated as gone: the source serves
// a stub page for removed postings instead of a 404 in some regions.
func ExtractDetailFields(html string) (model.ScrapedFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.ScrapedFields{}, fmt.Errorf("parse detail page: %w", err)
	}

	fields := model.ScrapedFields{
		Title:       text(doc, "h1.top-card-layout__title, h1.topcard__title"),
		CompanyName: text(doc, "a.topcard__org-name-link, span.topcard__flavor"),
		Location:    text(doc, "span.topcard__flavor--bullet"),
		Description: text(doc, "div.show-more-less-html__markup, div.description__text"),
	}

	if fields.Title == "" {
		return model.ScrapedFields{}, retry.Abort(ErrPostingGone)
	}
	return fields, nil
}

// text returns the trimmed text of the first node matching selector.
func text(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}
