package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ParthPatel00/SantAI/internal/genai"
	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/util"
)

// maxRecommendations caps how many ranked gifts are live at a time.
const maxRecommendations = 5

// fallbackCategories is served when category generation fails.
var fallbackCategories = []string{
	"Electronics", "Books", "Jewelry", "Home Decor",
	"Sports Equipment", "Fashion Accessories", "Kitchen Gadgets", "Art & Crafts",
}

// fallbackAdditionalCategories is served when additional-category
// generation fails.
var fallbackAdditionalCategories = []string{
	"Experiences", "Gourmet Food", "Pet Supplies", "Garden Tools",
	"Travel Accessories", "Health & Wellness", "Office Supplies", "Toys & Games",
}

// Engine generates gift categories and ranks product candidates with the
// completion service. Every method degrades to a deterministic fallback;
// none ever returns an error to the state machine.
type Engine struct {
	genai genai.ClientInterface
}

// NewEngine creates a category and recommendation engine.
func NewEngine(client genai.ClientInterface) *Engine {
	return &Engine{genai: client}
}

// Categories suggests 6-8 gift categories for the user's slots.
func (e *Engine) Categories(ctx context.Context, prefs models.UserPreferences) []string {
	prompt := fmt.Sprintf(`Based on the following information, suggest 6-8 relevant gift categories:

Occasion: %s
Preferences: %s
Budget: %s

Return a JSON array of category names. Categories should be specific and relevant.
Examples: "Electronics", "Books", "Jewelry", "Home Decor", "Sports Equipment", "Art & Crafts", "Fashion Accessories", "Kitchen Gadgets"

Return only the JSON array, no other text.`, prefs.Occasion, prefs.Preferences, formatBudget(prefs))

	categories, err := e.generateCategoryList(ctx, prompt)
	if err != nil {
		slog.Warn("Engine.Categories: generation failed, using fallback list", "error", err)
		return append([]string(nil), fallbackCategories...)
	}
	return categories
}

// AdditionalCategories suggests 6-8 categories disjoint from the existing
// list. Names already offered are filtered out so repeated "more options"
// requests never re-offer a category.
func (e *Engine) AdditionalCategories(ctx context.Context, prefs models.UserPreferences, existing []string) []string {
	prompt := fmt.Sprintf(`The user has already seen these categories: %s

For the occasion: %s, preferences: %s, budget: %s

Suggest 6-8 different gift categories that are relevant but different from the existing ones.

Return a JSON array of category names. Return only the JSON array, no other text.`,
		strings.Join(existing, ", "), prefs.Occasion, prefs.Preferences, formatBudget(prefs))

	categories, err := e.generateCategoryList(ctx, prompt)
	if err != nil {
		slog.Warn("Engine.AdditionalCategories: generation failed, using fallback list", "error", err)
		categories = append([]string(nil), fallbackAdditionalCategories...)
	}

	return filterKnown(categories, existing)
}

// Rank orders the candidates against the user's preferences and returns at
// most five recommendations. On any failure the first five candidates are
// returned in input order with a generic reason.
func (e *Engine) Rank(ctx context.Context, gifts []models.GiftItem, prefs models.UserPreferences) []models.GiftRecommendation {
	if len(gifts) == 0 {
		return nil
	}

	ranked, err := e.rankWithModel(ctx, gifts, prefs)
	if err != nil {
		slog.Warn("Engine.Rank: ranking failed, using input order", "error", err)
		ranked = nil
		for i, gift := range gifts {
			if i >= maxRecommendations {
				break
			}
			ranked = append(ranked, models.GiftRecommendation{
				Gift:   gift,
				Reason: "A solid match for your preferences",
				Rank:   i + 1,
			})
		}
	}
	return ranked
}

// SelectRandom picks one category uniformly, for "surprise me".
func (e *Engine) SelectRandom(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	return util.PickRandom(categories)
}

func (e *Engine) generateCategoryList(ctx context.Context, prompt string) ([]string, error) {
	raw, err := e.genai.GeneratePrompt(ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("completion service call failed: %w", err)
	}

	jsonStr := genai.ExtractJSONArray(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON array in category response")
	}

	var categories []string
	if err := json.Unmarshal([]byte(jsonStr), &categories); err != nil {
		return nil, fmt.Errorf("failed to parse category response: %w", err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("empty category list")
	}
	return categories, nil
}

// rankReason is one entry of the model's ranking output.
type rankReason struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (e *Engine) rankWithModel(ctx context.Context, gifts []models.GiftItem, prefs models.UserPreferences) ([]models.GiftRecommendation, error) {
	giftsJSON, err := json.Marshal(gifts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gifts: %w", err)
	}

	prompt := fmt.Sprintf(`Based on the user's preferences and the available gifts, rank and recommend the top 5 gifts.

User Preferences:
- Occasion: %s
- Preferences: %s
- Budget: %s

Available Gifts: %s

Return a JSON array of at most 5 entries, best first, each shaped as:
[{"id": "gift_id", "reason": "why_this_gift_is_good_for_the_user"}]

Only use ids from the available gifts. Return only the JSON array, no other text.`,
		prefs.Occasion, prefs.Preferences, formatBudget(prefs), giftsJSON)

	raw, err := e.genai.GeneratePrompt(ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("completion service call failed: %w", err)
	}

	jsonStr := genai.ExtractJSONArray(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON array in ranking response")
	}

	var reasons []rankReason
	if err := json.Unmarshal([]byte(jsonStr), &reasons); err != nil {
		return nil, fmt.Errorf("failed to parse ranking response: %w", err)
	}

	byID := make(map[string]models.GiftItem, len(gifts))
	for _, gift := range gifts {
		byID[gift.ID] = gift
	}

	var ranked []models.GiftRecommendation
	for _, r := range reasons {
		if len(ranked) >= maxRecommendations {
			break
		}
		gift, ok := byID[r.ID]
		if !ok {
			slog.Debug("Engine.Rank: ignoring unknown gift id from model", "id", r.ID)
			continue
		}
		reason := r.Reason
		if reason == "" {
			reason = "A solid match for your preferences"
		}
		ranked = append(ranked, models.GiftRecommendation{Gift: gift, Reason: reason, Rank: len(ranked) + 1})
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("ranking matched no known gifts")
	}
	return ranked, nil
}

// filterKnown drops names already present (case-insensitive) in existing.
func filterKnown(categories, existing []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[strings.ToLower(strings.TrimSpace(c))] = true
	}

	var fresh []string
	for _, c := range categories {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, c)
	}
	return fresh
}

func formatBudget(prefs models.UserPreferences) string {
	switch {
	case prefs.BudgetMin != nil && prefs.BudgetMax != nil:
		return fmt.Sprintf("$%.0f-$%.0f", *prefs.BudgetMin, *prefs.BudgetMax)
	case prefs.BudgetMax != nil:
		return fmt.Sprintf("under $%.0f", *prefs.BudgetMax)
	case prefs.BudgetMin != nil:
		return fmt.Sprintf("$%.0f+", *prefs.BudgetMin)
	default:
		return "not specified"
	}
}
