// Package search finds candidate gift products for a set of user
// preferences. The production implementation queries the OpenWeb Ninja
// realtime Amazon data API; a deterministic catalog client backs tests and
// keyless deployments.
package search

import (
	"context"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// Searcher finds gift products matching user preferences.
type Searcher interface {
	// Search returns products matching the preferences. Preferences must be
	// complete (occasion, recipient, interests, and at least one budget
	// bound) before calling; use ValidateRequirements to check first.
	Search(ctx context.Context, prefs models.UserPreferences) ([]models.GiftItem, error)
}

// ValidateRequirements reports whether the preferences carry everything a
// product search needs, and which slots are missing when they do not.
func ValidateRequirements(prefs models.UserPreferences) (bool, []models.SlotName) {
	missing := prefs.MissingSlots(models.DefaultRequiredSlots())
	return len(missing) == 0, missing
}
