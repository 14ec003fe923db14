// Package models defines gift domain structures shared across SantAI modules.
package models

// SlotName identifies one named field of gift-search intent.
type SlotName string

const (
	// SlotOccasion is the event the gift is for.
	SlotOccasion SlotName = "occasion"
	// SlotRecipient is who the gift is for.
	SlotRecipient SlotName = "recipient"
	// SlotPreferences is free-text interests of the recipient.
	SlotPreferences SlotName = "preferences"
	// SlotBudget is satisfied by at least one budget bound.
	SlotBudget SlotName = "budget"
)

// DefaultRequiredSlots returns the slot set that must be filled before a
// product search can run: occasion, recipient, preferences, and at least one
// budget bound.
func DefaultRequiredSlots() []SlotName {
	return []SlotName{SlotOccasion, SlotRecipient, SlotPreferences, SlotBudget}
}

// UserPreferences is the slot set collected during a conversation. Slots are
// write-once: the extraction service only fills fields that are currently
// empty, and only an explicit update-preferences intent resets them.
type UserPreferences struct {
	Occasion    string   `json:"occasion,omitempty"`
	Recipient   string   `json:"recipient,omitempty"`
	Preferences string   `json:"preferences,omitempty"`
	BudgetMin   *float64 `json:"budget_min,omitempty"`
	BudgetMax   *float64 `json:"budget_max,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// HasBudget reports whether at least one budget bound is set.
func (p *UserPreferences) HasBudget() bool {
	return p.BudgetMin != nil || p.BudgetMax != nil
}

// slotFilled reports whether the named slot currently holds a value.
func (p *UserPreferences) slotFilled(slot SlotName) bool {
	switch slot {
	case SlotOccasion:
		return p.Occasion != ""
	case SlotRecipient:
		return p.Recipient != ""
	case SlotPreferences:
		return p.Preferences != ""
	case SlotBudget:
		return p.HasBudget()
	default:
		return false
	}
}

// MissingSlots returns the required slots that are still empty, in the order
// of the required set.
func (p *UserPreferences) MissingSlots(required []SlotName) []SlotName {
	var missing []SlotName
	for _, slot := range required {
		if !p.slotFilled(slot) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// IsComplete reports whether every required slot is filled.
func (p *UserPreferences) IsComplete(required []SlotName) bool {
	return len(p.MissingSlots(required)) == 0
}

// GiftItem represents a single product candidate. Immutable once constructed
// from search results or mock data.
type GiftItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        string  `json:"price"` // display string, e.g. "$79.99"
	Description  string  `json:"description,omitempty"`
	Source       string  `json:"source,omitempty"`
	URL          string  `json:"url,omitempty"`
	ImageURL     string  `json:"image_url,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	Availability string  `json:"availability,omitempty"`
}

// Validate checks the fields downstream consumers rely on.
func (g *GiftItem) Validate() error {
	if g.ID == "" {
		return ErrEmptyGiftID
	}
	if g.Name == "" {
		return ErrEmptyGiftName
	}
	return nil
}

// GiftRecommendation pairs a gift with the reason it was ranked for the user.
type GiftRecommendation struct {
	Gift   GiftItem `json:"gift"`
	Reason string   `json:"reason"`
	Rank   int      `json:"rank"` // 1-indexed position in the displayed list
}
