package scraper

import (
	"strings"

	"jobwatch/scraper-service/internal/model"
)

// ContainsExcludedTerm returns true if any exclusion term appears
// (case-insensitive) anywhere in the combined title + company + description
// text of a scraped posting.
//
// Checked before change detection — a match skips the posting entirely for
// this cycle, so no detail row is created or updated for it.
func ContainsExcludedTerm(fields model.ScrapedFields, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	combined := strings.ToLower(fields.Title + " " + fields.CompanyName + " " + fields.Description)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
