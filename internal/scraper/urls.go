// Package scraper implements job posting discovery, detail fetching and
// DOM field extraction.
package scraper

import (
	"fmt"
	"net/url"
)

const searchPageSize = 25

// SearchURL builds a guest search URL for one (keywords × location) pair.
// start is the zero-based result offset; pages step by searchPageSize.
func SearchURL(base, keywords, location string, remoteOK bool, start int) string {
	params := url.Values{}
	params.Set("keywords", keywords)
	params.Set("location", location)
	params.Set("start", fmt.Sprintf("%d", start))
	if remoteOK {
		params.Set("f_WT", "2") // remote work-type filter
	}
	return base + "?" + params.Encode()
}

// DetailURL builds the public detail-page URL for a posting.
func DetailURL(base, externalID string) string {
	return fmt.Sprintf("%s/%s", base, externalID)
}
