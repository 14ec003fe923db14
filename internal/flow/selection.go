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
)

// Selection actions the intent resolver can return.
const (
	ActionSelect            = "select"
	ActionMoreOptions       = "more_options"
	ActionUpdatePreferences = "update_preferences"
	ActionUnclear           = "unclear"
)

// ordinalRegex finds a trailing or embedded number in inputs like "5",
// "Category 5" or "option 2".
var ordinalRegex = regexp.MustCompile(`(\d+)`)

// categorySynonyms maps common shorthand to the canonical category name.
var categorySynonyms = map[string]string{
	"tech":       "Electronics",
	"electronic": "Electronics",
	"gadget":     "Electronics",
	"book":       "Books",
	"reading":    "Books",
	"jewel":      "Jewelry",
	"jewellery":  "Jewelry",
	"ring":       "Jewelry",
	"necklace":   "Jewelry",
	"home":       "Home Decor",
	"decor":      "Home Decor",
	"sport":      "Sports Equipment",
	"fitness":    "Sports Equipment",
	"exercise":   "Sports Equipment",
	"fashion":    "Fashion Accessories",
	"clothes":    "Fashion Accessories",
	"clothing":   "Fashion Accessories",
	"kitchen":    "Kitchen Gadgets",
	"cooking":    "Kitchen Gadgets",
	"art":        "Art & Crafts",
	"craft":      "Art & Crafts",
	"creative":   "Art & Crafts",
}

// SelectionResult is the resolved intent for one user message against the
// currently displayed option list.
type SelectionResult struct {
	SelectedOption     string `json:"selected_option"`
	WantsMoreOptions   bool   `json:"wants_more_options"`
	UpdatedPreferences bool   `json:"updated_preferences"`
	Action             string `json:"action"`
}

// Selector resolves free-form user input against an offered option list,
// using the completion service with a deterministic fallback parser.
type Selector struct {
	genai genai.ClientInterface
}

// NewSelector creates a selection intent resolver.
func NewSelector(client genai.ClientInterface) *Selector {
	return &Selector{genai: client}
}

// Resolve classifies the user's input into one of the selection actions.
func (s *Selector) Resolve(ctx context.Context, userInput string, options []string) SelectionResult {
	result, err := s.resolveWithModel(ctx, userInput, options)
	if err != nil {
		slog.Warn("Selector.Resolve: model resolution failed, using deterministic parser", "error", err)
		return resolveDeterministic(userInput, options)
	}
	return result
}

func (s *Selector) resolveWithModel(ctx context.Context, userInput string, options []string) (SelectionResult, error) {
	optionsJSON, _ := json.Marshal(options)
	prompt := fmt.Sprintf(`You are an intelligent assistant that understands user intent from abstract or conversational input.

User said: %q

Available options: %s

Guidelines:
- Be flexible in interpreting user intent (e.g., "I like electronics" selects "Electronics" if available)
- Handle partial matches (e.g., "books" selects "Books" if available)
- Recognize requests for more options (e.g., "show me more", "what else", "other options")
- Detect preference updates (e.g., "actually, I want something different", "change my mind")
- Handle number selections: if the user says just a number like "5" or "Category 5", map it to the 5th option in the list

Return a JSON object with:
- selected_option: the selected option's literal text, or null
- wants_more_options: true/false
- updated_preferences: true/false
- action: "select", "more_options", "update_preferences", or "unclear"

Return only the JSON object, no other text.`, userInput, optionsJSON)

	raw, err := s.genai.GeneratePrompt(ctx, "", prompt)
	if err != nil {
		return SelectionResult{}, fmt.Errorf("completion service call failed: %w", err)
	}

	jsonStr := genai.ExtractJSONObject(raw)
	if jsonStr == "" {
		return SelectionResult{}, fmt.Errorf("no JSON object in selection response")
	}

	var result SelectionResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return SelectionResult{}, fmt.Errorf("failed to parse selection response: %w", err)
	}

	switch result.Action {
	case ActionSelect, ActionMoreOptions, ActionUpdatePreferences, ActionUnclear:
	default:
		return SelectionResult{}, fmt.Errorf("unknown selection action %q", result.Action)
	}
	return result, nil
}

// resolveDeterministic parses selections without the model: ordinals,
// more/update phrases, then exact and substring option matches.
func resolveDeterministic(userInput string, options []string) SelectionResult {
	trimmed := strings.TrimSpace(userInput)
	lower := strings.ToLower(trimmed)

	for _, phrase := range []string{"more option", "show me more", "show more", "what else", "other option", "see more"} {
		if strings.Contains(lower, phrase) {
			return SelectionResult{WantsMoreOptions: true, Action: ActionMoreOptions}
		}
	}

	for _, phrase := range []string{"update", "change my mind", "change preference", "something different", "start over"} {
		if strings.Contains(lower, phrase) {
			return SelectionResult{UpdatedPreferences: true, Action: ActionUpdatePreferences}
		}
	}

	if _, ok := parseOrdinal(trimmed); ok {
		return SelectionResult{SelectedOption: trimmed, Action: ActionSelect}
	}

	for _, option := range options {
		optLower := strings.ToLower(option)
		if lower == optLower || strings.Contains(lower, optLower) || strings.Contains(optLower, lower) {
			return SelectionResult{SelectedOption: option, Action: ActionSelect}
		}
	}

	return SelectionResult{Action: ActionUnclear}
}

// parseOrdinal extracts a 1-indexed ordinal from inputs like "5",
// "Category 5" or "option 2". Free text without digits yields no ordinal.
func parseOrdinal(input string) (int, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(trimmed); err == nil {
		return n, true
	}

	lower := strings.ToLower(trimmed)
	for _, prefix := range []string{"category", "option", "number", "no.", "#"} {
		if strings.HasPrefix(lower, prefix) {
			if m := ordinalRegex.FindString(trimmed); m != "" {
				if n, err := strconv.Atoi(m); err == nil {
					return n, true
				}
			}
		}
	}

	// A numbered list entry like "3. Trail Backpack".
	if m := regexp.MustCompile(`^(\d+)\.`).FindStringSubmatch(trimmed); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}

	return 0, false
}

// resolveOption maps a resolved selection to an element of the currently
// displayed option list: exact match, then 1-indexed ordinal, then
// substring, then the synonym table. outOfRange reports an ordinal that
// does not fit the list so the caller can re-prompt instead of failing.
func resolveOption(selected string, options []string) (match string, outOfRange bool) {
	selected = strings.TrimSpace(selected)
	if selected == "" {
		return "", false
	}

	for _, option := range options {
		if strings.EqualFold(selected, option) {
			return option, false
		}
	}

	if n, ok := parseOrdinal(selected); ok {
		if n < 1 || n > len(options) {
			return "", true
		}
		return options[n-1], false
	}

	lower := strings.ToLower(selected)
	for _, option := range options {
		optLower := strings.ToLower(option)
		if strings.Contains(optLower, lower) || strings.Contains(lower, optLower) {
			return option, false
		}
	}

	for synonym, category := range categorySynonyms {
		if strings.Contains(lower, synonym) {
			for _, option := range options {
				if strings.EqualFold(option, category) {
					return option, false
				}
			}
		}
	}

	return "", false
}
