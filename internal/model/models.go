// Package model defines shared data structures for the scraper service.
package model

import "time"

// SearchConfig mirrors the search_configs table row relevant to scraping.
// Each (keyword × location) pair produces one search-page discovery pass.
type SearchConfig struct {
	ID           string
	Keywords     []string
	Locations    []string
	ExcludeTerms []string // any match in scraped text discards the posting
	RemoteOK     bool
	PageLimit    int // max search result pages per (keyword × location) pair
}

// JobPosting is one discovered posting identity. A posting is created the
// first time its external ID shows up in a search page and lives for as long
// as the source keeps serving it.
type JobPosting struct {
	ID            string
	ExternalID    string // source-side posting identifier
	SourceURL     string
	Gone          bool // posting removed from the source
	LastScrapedAt *time.Time
	CreatedAt     time.Time
}

// ScrapedFields is the raw field set pulled out of a posting's detail page
// by DOM selectors. The detail checksum is computed over exactly these four
// fields — never over the AI-derived extraction.
type ScrapedFields struct {
	Title       string `json:"title"`
	CompanyName string `json:"companyName"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// JobDetail is the persisted 1:1 detail row for a posting. Checksum is the
// canonical digest of the ScrapedFields subset at time of write.
type JobDetail struct {
	ID              string
	JobPostingID    string
	Title           string
	CompanyName     string
	Location        string
	DescriptionText string
	ExtractedJSON   string // AI-derived structured payload, stored verbatim
	Checksum        string // 64 lowercase hex chars
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JobDetailHistory is an append-only snapshot of a JobDetail's prior state,
// written inside the same transaction as the update that replaced it.
type JobDetailHistory struct {
	ID              string
	JobDetailID     string
	Title           string
	CompanyName     string
	Location        string
	DescriptionText string
	ExtractedJSON   string
	Checksum        string
	ArchivedAt      time.Time
}
