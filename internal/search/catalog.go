package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// catalogSize is how many products the deterministic catalog generates per
// search, enough for three pages of five recommendations.
const catalogSize = 15

// CatalogClient is a deterministic Searcher used in tests and deployments
// without a product API key. It fabricates a fixed-size catalog themed on
// the user's category and occasion so the conversation flow behaves exactly
// as it would with live results.
type CatalogClient struct{}

// NewCatalogClient creates a deterministic catalog searcher.
func NewCatalogClient() *CatalogClient {
	return &CatalogClient{}
}

// Search generates the deterministic catalog for the given preferences.
func (c *CatalogClient) Search(ctx context.Context, prefs models.UserPreferences) ([]models.GiftItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	category := prefs.Category
	if category == "" {
		category = "gift"
	}
	occasion := prefs.Occasion
	if occasion == "" {
		occasion = "any occasion"
	}

	// IDs carry the category so different searches never produce colliding
	// gift identities.
	slug := strings.ReplaceAll(strings.ToLower(category), " ", "-")

	gifts := make([]models.GiftItem, 0, catalogSize)
	for i := 1; i <= catalogSize; i++ {
		gifts = append(gifts, models.GiftItem{
			ID:           fmt.Sprintf("%s_gift_%d", slug, i),
			Name:         fmt.Sprintf("%s Pick %d", category, i),
			Price:        fmt.Sprintf("$%d", 50+i*25),
			Description:  fmt.Sprintf("A great %s gift for %s", strings.ToLower(category), strings.ToLower(occasion)),
			Source:       fmt.Sprintf("Marketplace %d", i%3+1),
			URL:          fmt.Sprintf("https://example.com/gift%d", i),
			Rating:       4.0 + float64(i)*0.1,
			Availability: "In Stock",
		})
	}

	slog.Debug("CatalogClient.Search: generated catalog", "category", category, "count", len(gifts))
	return gifts, nil
}
