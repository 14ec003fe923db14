package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ParthPatel00/SantAI/internal/genai"
	"github.com/ParthPatel00/SantAI/internal/models"
)

// Budget fallback patterns. The range form requires min <= max; an inverted
// range like "$100-50" is rejected outright rather than swapped.
var (
	budgetRangeRegex  = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)
	budgetUnderRegex  = regexp.MustCompile(`under\s+\$?(\d+)`)
	budgetDollarRegex = regexp.MustCompile(`\$(\d+)`)
)

// occasionKeywords drives the deterministic occasion fallback.
var occasionKeywords = []string{"birthday", "anniversary", "wedding", "holiday", "graduation", "promotion", "christmas"}

// recipientKeywords maps relationship words to the canonical recipient value.
var recipientKeywords = []struct {
	words []string
	value string
}{
	{[]string{"mother", "mom"}, "mother"},
	{[]string{"father", "dad"}, "father"},
	{[]string{"boss"}, "boss"},
	{[]string{"girlfriend"}, "girlfriend"},
	{[]string{"boyfriend"}, "boyfriend"},
	{[]string{"wife"}, "wife"},
	{[]string{"husband"}, "husband"},
	{[]string{"sister"}, "sister"},
	{[]string{"brother"}, "brother"},
	{[]string{"friend"}, "friend"},
}

// interestKeywords maps interest words to an expanded preferences value.
var interestKeywords = []struct {
	words []string
	value string
}{
	{[]string{"cooking"}, "cooking, kitchen, culinary"},
	{[]string{"sports", "athletic"}, "athletic, sports, fitness"},
	{[]string{"art"}, "art"},
	{[]string{"tech"}, "tech-related"},
	{[]string{"hiking"}, "hiking, outdoor, nature"},
	{[]string{"reading", "books"}, "reading, books"},
	{[]string{"music"}, "music"},
	{[]string{"gaming", "video games"}, "gaming"},
}

const extractionSystemPrompt = "You are a JSON extraction assistant. You ONLY return valid JSON objects. Never return code, explanations, or any other text."

// Extractor fills conversation slots from free-form user text. The language
// model is asked to emit only currently-null slots; its output is validated
// so an already-set slot is never clobbered, and any model failure degrades
// to deterministic keyword extraction.
type Extractor struct {
	genai    genai.ClientInterface
	required []models.SlotName
}

// NewExtractor creates a slot extractor. The required set determines which
// missing slots the model is prompted for; nil means the default set.
func NewExtractor(client genai.ClientInterface, required []models.SlotName) *Extractor {
	if len(required) == 0 {
		required = models.DefaultRequiredSlots()
	}
	return &Extractor{genai: client, required: required}
}

// extractionPayload is the JSON shape the model is instructed to return.
type extractionPayload struct {
	Occasion    *string  `json:"occasion"`
	Recipient   *string  `json:"recipient"`
	Preferences *string  `json:"preferences"`
	BudgetMin   *float64 `json:"budget_min"`
	BudgetMax   *float64 `json:"budget_max"`
}

// Extract merges slot values found in userText into current and returns the
// updated set. When allowOverwrite is false (the normal case), non-null
// slots are immutable: a model attempt to change one is logged and
// discarded. allowOverwrite is only true right after an explicit
// update-preferences intent.
func (e *Extractor) Extract(ctx context.Context, userText string, current models.UserPreferences, allowOverwrite bool) models.UserPreferences {
	extracted, err := e.extractWithModel(ctx, userText, current)
	if err != nil {
		slog.Warn("Extractor.Extract: model extraction failed, using keyword fallback", "error", err)
		extracted = fallbackExtraction(userText)
	}

	return mergeSlots(current, extracted, allowOverwrite)
}

// extractWithModel asks the completion service for the missing slots only.
func (e *Extractor) extractWithModel(ctx context.Context, userText string, current models.UserPreferences) (extractionPayload, error) {
	prompt := buildExtractionPrompt(userText, current, e.required)

	raw, err := e.genai.GeneratePrompt(ctx, extractionSystemPrompt, prompt)
	if err != nil {
		return extractionPayload{}, fmt.Errorf("completion service call failed: %w", err)
	}

	jsonStr := genai.ExtractJSONObject(raw)
	if jsonStr == "" {
		return extractionPayload{}, fmt.Errorf("no JSON object in extraction response")
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return extractionPayload{}, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	return payload, nil
}

func buildExtractionPrompt(userText string, current models.UserPreferences, required []models.SlotName) string {
	currentJSON, _ := json.Marshal(map[string]any{
		"occasion":    nilIfEmptyString(current.Occasion),
		"recipient":   nilIfEmptyString(current.Recipient),
		"preferences": nilIfEmptyString(current.Preferences),
		"budget_min":  current.BudgetMin,
		"budget_max":  current.BudgetMax,
	})
	missing := slotNames(current.MissingSlots(required))

	var b strings.Builder
	b.WriteString("You are a parameter extraction assistant. Extract ONLY the missing parameters from user input.\n\n")
	fmt.Fprintf(&b, "User Input: %q\nCurrent Parameters: %s\nMissing Parameters: %s\n\n", userText, currentJSON, strings.Join(missing, ", "))
	b.WriteString("CRITICAL RULES:\n")
	b.WriteString("1. ONLY extract parameters that are currently NULL in current parameters\n")
	b.WriteString("2. DO NOT change parameters that already have values\n")
	b.WriteString("3. DO NOT assume or infer information - only extract what is explicitly stated\n")
	b.WriteString("4. Return ONLY a JSON object with the parameters you can extract\n\n")
	b.WriteString("Return JSON with these exact fields:\n")
	b.WriteString(`{"occasion": "birthday/anniversary/wedding/etc or null", "recipient": "mother/father/sister/friend/etc or null", "preferences": "hobbies and interests or null", "budget_min": 100, "budget_max": 200}`)
	b.WriteString("\n\nUse null for anything not explicitly stated. Look for patterns like \"for my [person]\" to identify the recipient. Return ONLY the JSON object, no other text.")
	return b.String()
}

// fallbackExtraction is the deterministic keyword extractor used when the
// completion service fails or returns garbage.
func fallbackExtraction(userText string) extractionPayload {
	var payload extractionPayload
	lower := strings.ToLower(userText)

	for _, kw := range occasionKeywords {
		if strings.Contains(lower, kw) {
			occasion := kw
			payload.Occasion = &occasion
			break
		}
	}

	for _, entry := range recipientKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				value := entry.value
				payload.Recipient = &value
				break
			}
		}
		if payload.Recipient != nil {
			break
		}
	}

	for _, entry := range interestKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				value := entry.value
				payload.Preferences = &value
				break
			}
		}
		if payload.Preferences != nil {
			break
		}
	}

	var err error
	payload.BudgetMin, payload.BudgetMax, err = parseBudget(userText)
	if err != nil {
		slog.Warn("fallbackExtraction: rejecting budget", "error", err)
	}
	return payload
}

// parseBudget extracts budget bounds from text. Range first, then "under N",
// then a bare dollar amount as a minimum. An inverted range is rejected with
// ErrInvalidBudget rather than swapped.
func parseBudget(text string) (*float64, *float64, error) {
	lower := strings.ToLower(text)

	if m := budgetRangeRegex.FindStringSubmatch(text); m != nil {
		minVal, err1 := strconv.ParseFloat(m[1], 64)
		maxVal, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			if minVal > maxVal {
				return nil, nil, fmt.Errorf("%w: %v-%v", models.ErrInvalidBudget, minVal, maxVal)
			}
			return &minVal, &maxVal, nil
		}
	}

	if m := budgetUnderRegex.FindStringSubmatch(lower); m != nil {
		if maxVal, err := strconv.ParseFloat(m[1], 64); err == nil {
			return nil, &maxVal, nil
		}
	}

	if m := budgetDollarRegex.FindStringSubmatch(text); m != nil {
		if minVal, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &minVal, nil, nil
		}
	}

	return nil, nil, nil
}

// mergeSlots applies extracted values to the current slot set. With
// allowOverwrite false, a non-null slot keeps its value and any differing
// extracted value is discarded as a violation.
func mergeSlots(current models.UserPreferences, extracted extractionPayload, allowOverwrite bool) models.UserPreferences {
	merged := current

	setString := func(slot models.SlotName, cur *string, val *string) {
		if val == nil || strings.TrimSpace(*val) == "" {
			return
		}
		if *cur != "" && *cur != *val && !allowOverwrite {
			slog.Warn("mergeSlots: discarding slot overwrite attempt", "slot", slot, "current", *cur, "attempted", *val)
			return
		}
		*cur = strings.TrimSpace(*val)
	}

	setBudget := func(slot models.SlotName, cur **float64, val *float64) {
		if val == nil || *val <= 0 {
			return
		}
		if *cur != nil && **cur != *val && !allowOverwrite {
			slog.Warn("mergeSlots: discarding slot overwrite attempt", "slot", slot, "current", **cur, "attempted", *val)
			return
		}
		v := *val
		*cur = &v
	}

	// An inverted range from the model is as invalid as one from the
	// keyword fallback.
	if extracted.BudgetMin != nil && extracted.BudgetMax != nil && *extracted.BudgetMin > *extracted.BudgetMax {
		slog.Warn("mergeSlots: rejecting budget from extraction", "error", models.ErrInvalidBudget, "min", *extracted.BudgetMin, "max", *extracted.BudgetMax)
		extracted.BudgetMin = nil
		extracted.BudgetMax = nil
	}

	setString(models.SlotOccasion, &merged.Occasion, extracted.Occasion)
	setString(models.SlotRecipient, &merged.Recipient, extracted.Recipient)
	setString(models.SlotPreferences, &merged.Preferences, extracted.Preferences)
	setBudget(models.SlotBudget, &merged.BudgetMin, extracted.BudgetMin)
	setBudget(models.SlotBudget, &merged.BudgetMax, extracted.BudgetMax)

	return merged
}

func nilIfEmptyString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func slotNames(slots []models.SlotName) []string {
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = string(s)
	}
	return names
}
