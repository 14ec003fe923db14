package search

import (
	"strings"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// recipientTerms maps common recipient names to search phrasing.
var recipientTerms = map[string]string{
	"mother":     "for mom",
	"mom":        "for mom",
	"mothers":    "for mom",
	"father":     "for dad",
	"dad":        "for dad",
	"fathers":    "for dad",
	"girlfriend": "for girlfriend",
	"boyfriend":  "for boyfriend",
	"wife":       "for wife",
	"husband":    "for husband",
	"friend":     "for friend",
	"sister":     "for sister",
	"brother":    "for brother",
}

// occasionTerms maps common occasions to search phrasing.
var occasionTerms = map[string]string{
	"birthday":    "birthday gift",
	"anniversary": "anniversary gift",
	"wedding":     "wedding gift",
	"holiday":     "holiday gift",
	"christmas":   "christmas gift",
	"valentine":   "valentine gift",
	"graduation":  "graduation gift",
	"mothers day": "mothers day gift",
	"fathers day": "fathers day gift",
}

// maxQueryInterests caps how many comma-separated interests feed the query,
// keeping it short enough for the product API to rank well.
const maxQueryInterests = 3

// BuildQuery turns structured preferences into a product search query:
// category, recipient phrase, occasion phrase, then up to three interests.
// Empty preferences collapse to the generic query "gift".
func BuildQuery(prefs models.UserPreferences) string {
	var parts []string

	if prefs.Category != "" {
		parts = append(parts, prefs.Category)
	}

	if prefs.Recipient != "" {
		lower := strings.ToLower(prefs.Recipient)
		if term, ok := recipientTerms[lower]; ok {
			parts = append(parts, term)
		} else {
			parts = append(parts, "for "+prefs.Recipient)
		}
	}

	if prefs.Occasion != "" {
		lower := strings.ToLower(prefs.Occasion)
		if term, ok := occasionTerms[lower]; ok {
			parts = append(parts, term)
		} else {
			parts = append(parts, prefs.Occasion+" gift")
		}
	}

	if prefs.Preferences != "" {
		interests := strings.Split(prefs.Preferences, ",")
		for i, interest := range interests {
			if i >= maxQueryInterests {
				break
			}
			if trimmed := strings.TrimSpace(interest); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
	}

	query := strings.TrimSpace(strings.Join(parts, " "))
	if query == "" {
		return "gift"
	}
	return query
}
