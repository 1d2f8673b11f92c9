package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "nyc 311 service requests", Normalize("NYC 311 - Service Requests!"))
	assert.Equal(t, "", Normalize("  ...  "))
	assert.Equal(t, "mayor's budget", Normalize("Mayor’s   Budget"))
}

func TestTokenizeFiltersStopWordsAndDupes(t *testing.T) {
	tokens := Tokenize("Restaurants in the City", "City restaurant inspections")
	assert.Equal(t, []string{"restaurants", "city", "restaurant", "inspections"}, tokens)
}

func TestTokenizeDeterministic(t *testing.T) {
	a := Tokenize("Traffic Volume Counts", "Counts of traffic volume by segment")
	b := Tokenize("Traffic Volume Counts", "Counts of traffic volume by segment")
	assert.Equal(t, a, b)
}

func TestTermsKeepsDuplicates(t *testing.T) {
	terms := Terms("traffic counts and traffic volume")
	assert.Equal(t, []string{"traffic", "counts", "traffic", "volume"}, terms)
}

func TestTokenizeDropsShortWords(t *testing.T) {
	tokens := Tokenize("K 9 Unit Deployments")
	assert.Equal(t, []string{"unit", "deployments"}, tokens)
}
