package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
)

var streetKeywords = map[string]struct{}{
	"street": {}, "st": {}, "road": {}, "rd": {}, "avenue": {}, "ave": {},
	"drive": {}, "dr": {}, "lane": {}, "ln": {}, "court": {}, "ct": {},
	"crescent": {}, "cres": {}, "place": {}, "pl": {}, "way": {},
	"parade": {}, "pde": {}, "boulevard": {}, "blvd": {}, "highway": {},
	"hwy": {}, "terrace": {}, "tce": {},
}

// ClassifyIntent guesses what kind of place a query describes.
//
// A leading digit means an address, a street-type word means a street, one
// word of three or more characters or two words without digits mean a
// suburb. Anything else is general.
func ClassifyIntent(query string) entities.Intent {
	q := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(q)
	if len(words) == 0 {
		return entities.IntentGeneral
	}

	if unicode.IsDigit([]rune(words[0])[0]) {
		return entities.IntentAddress
	}

	for _, word := range words {
		if _, ok := streetKeywords[word]; ok {
			return entities.IntentStreet
		}
	}

	if len(words) == 1 && utf8.RuneCountInString(q) >= 3 {
		return entities.IntentSuburb
	}

	if len(words) == 2 && !strings.ContainsFunc(q, unicode.IsDigit) {
		return entities.IntentSuburb
	}

	return entities.IntentGeneral
}
