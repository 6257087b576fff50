package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobwatch/scraper-service/internal/model"
)

func TestContainsExcludedTerm(t *testing.T) {
	fields := model.ScrapedFields{
		Title:       "Senior Blockchain Engineer",
		CompanyName: "Acme",
		Description: "Work on our crypto exchange.",
	}

	tests := []struct {
		name  string
		terms []string
		want  bool
	}{
		{"no terms", nil, false},
		{"empty term ignored", []string{""}, false},
		{"match in title, case-insensitive", []string{"blockchain"}, true},
		{"match in description", []string{"CRYPTO"}, true},
		{"no match", []string{"gambling", "mlm"}, false},
		{"one of several matches", []string{"gambling", "crypto"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsExcludedTerm(fields, tt.terms))
		})
	}
}
