package flow

import (
	"fmt"
	"strings"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// slotQuestions are the per-slot prompts used when asking for missing info.
var slotQuestions = map[models.SlotName]string{
	models.SlotOccasion:    "• *What's the occasion?* (birthday, anniversary, holiday, just because, etc.)",
	models.SlotRecipient:   "• *Who is it for?* (friend, family member, partner, colleague, etc.)",
	models.SlotPreferences: "• *What are their preferences?* (hobbies, interests, favorite things, etc.)",
	models.SlotBudget:      "• *What's your budget?* (e.g., $50-100, under $50, $100+)",
}

// askForMissingInfo asks only for the still-missing slots, with a tone
// scaled to how much is left.
func askForMissingInfo(missing []models.SlotName) string {
	var questions []string
	for _, slot := range missing {
		if q, ok := slotQuestions[slot]; ok {
			questions = append(questions, q)
		}
	}

	switch {
	case len(questions) >= 3:
		return "I'm excited to help you find the perfect gift! 🎁\n\nTo get started, could you tell me:\n\n" +
			strings.Join(questions, "\n") +
			"\n\nDon't worry if you're not sure about everything - we can figure it out together! 😊"
	case len(questions) == 2:
		return "I'm getting a good sense of what you're looking for! Just need a couple more details:\n\n" +
			strings.Join(questions, "\n")
	case len(questions) == 1:
		return "I love what you've told me so far! Just one more thing:\n\n" + questions[0]
	default:
		return "Could you share a bit more about the person or occasion to help me find the perfect gift?"
	}
}

// acknowledgeLearned names what the last message taught us.
func acknowledgeLearned(before, after models.UserPreferences) string {
	var learned []string
	if before.Occasion == "" && after.Occasion != "" {
		learned = append(learned, fmt.Sprintf("the occasion (%s)", after.Occasion))
	}
	if before.Recipient == "" && after.Recipient != "" {
		learned = append(learned, fmt.Sprintf("who it's for (%s)", after.Recipient))
	}
	if before.Preferences == "" && after.Preferences != "" {
		learned = append(learned, fmt.Sprintf("their interests (%s)", after.Preferences))
	}
	if !before.HasBudget() && after.HasBudget() {
		learned = append(learned, fmt.Sprintf("your budget (%s)", formatBudget(after)))
	}
	if len(learned) == 0 {
		return ""
	}
	return "Got it! I've noted " + strings.Join(learned, ", ") + "."
}

// formatCategoryList renders an offered category page starting at the given
// 1-indexed position.
func formatCategoryList(categories []string, start int) string {
	var b strings.Builder
	for i, category := range categories {
		fmt.Fprintf(&b, "*%d. %s*\n", start+i, category)
	}
	return b.String()
}

func showCategoryOptions(prefs models.UserPreferences, categories []string) string {
	occasion := prefs.Occasion
	if occasion == "" {
		occasion = "this special occasion"
	}
	interests := prefs.Preferences
	if interests == "" {
		interests = "what you're looking for"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Perfect! I've got some great ideas for %s! 🎁\n\n", occasion)
	fmt.Fprintf(&b, "Based on %s and %s, here are the categories I think would work best:\n\n", interests, formatBudget(prefs))
	b.WriteString(formatCategoryList(categories, 1))
	b.WriteString("\n*What would you like to do?*\n")
	fmt.Fprintf(&b, "• *Pick a number* (1-%d) to choose a category\n", len(categories))
	b.WriteString("• *Say 'surprise me'* and I'll pick something perfect for you! 🎲\n")
	b.WriteString("• *Ask for 'more options'* if you want to see different categories\n")
	b.WriteString("• *Tell me more* about what you're looking for if you're not sure\n\n")
	b.WriteString("What sounds good to you? 😊")
	return b.String()
}

func showAdditionalCategories(fresh []string, startIndex int) string {
	var b strings.Builder
	b.WriteString("Great idea! Let me show you some more options that might be perfect:\n\n")
	b.WriteString(formatCategoryList(fresh, startIndex))
	b.WriteString("\n*What would you like to do?*\n")
	b.WriteString("• *Pick a number* to choose a category\n")
	b.WriteString("• *Say 'surprise me'* and I'll pick something amazing! 🎲\n")
	b.WriteString("• *Ask for 'more options'* if you want to see even more categories\n\n")
	b.WriteString("What catches your eye? 👀")
	return b.String()
}

func showRecommendations(prefs models.UserPreferences, recs []models.GiftRecommendation) string {
	category := prefs.Category
	if category == "" {
		category = "gift"
	}
	occasion := prefs.Occasion
	if occasion == "" {
		occasion = "this special occasion"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎉 *I found some amazing %s gifts for %s!*\n\n", strings.ToLower(category), occasion)
	fmt.Fprintf(&b, "Here are my top %d recommendations:\n\n", len(recs))

	for i, rec := range recs {
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, rec.Gift.Name)
		fmt.Fprintf(&b, "   💰 *Price:* %s\n", rec.Gift.Price)
		if rec.Gift.Description != "" {
			fmt.Fprintf(&b, "   📝 *Description:* %s\n", rec.Gift.Description)
		}
		if rec.Gift.Source != "" {
			fmt.Fprintf(&b, "   🏪 *Available at:* %s\n", rec.Gift.Source)
		}
		fmt.Fprintf(&b, "   💡 *Why I think you'll love it:* %s\n\n", rec.Reason)
	}

	b.WriteString("*What would you like to do?*\n")
	fmt.Fprintf(&b, "• *Pick a number (1-%d)* to choose your favorite! 🎯\n", len(recs))
	b.WriteString("• *Say 'show more options'* to see additional gifts 🔄\n")
	b.WriteString("• *Tell me to 'update preferences'* if you want to change something 🔧\n\n")
	b.WriteString("Which one catches your eye? 😊")
	return b.String()
}

func showSelectedGift(gift models.GiftItem, paymentURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Perfect! You've selected: *%s*\n\n", gift.Name)
	fmt.Fprintf(&b, "💰 Price: %s\n", gift.Price)
	if gift.Description != "" {
		fmt.Fprintf(&b, "📝 Description: %s\n", gift.Description)
	}
	fmt.Fprintf(&b, "\nComplete your purchase here:\n%s\n\n", paymentURL)
	b.WriteString("Let me know once you've paid and I'll wrap everything up! 🎁")
	return b.String()
}

const selectionHelpMessage = "I didn't quite understand your selection. You can:\n" +
	"• Choose a category by name or number\n" +
	"• Say 'surprise me' for a random selection\n" +
	"• Ask for 'more options' to see additional categories\n" +
	"• Tell me more about what you're looking for"

const recommendationHelpMessage = "I didn't understand your selection. Please choose a number (1-5) or say 'show more options' or 'update preferences'."

const noGiftsMessage = "I'm sorry, I couldn't find any products matching your criteria. Could you try adjusting your preferences or budget? I'd be happy to search again!"

const updatePreferencesMessage = "I'd be happy to help you update your preferences! What would you like to change?"
