package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// fakeGenAI scripts completion responses for tests.
type fakeGenAI struct {
	fn func(systemPrompt, userPrompt string) (string, error)
}

func (f *fakeGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return f.fn("", "")
}

func (f *fakeGenAI) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.fn(systemPrompt, userPrompt)
}

func failingGenAI() *fakeGenAI {
	return &fakeGenAI{fn: func(string, string) (string, error) {
		return "", errors.New("model unavailable")
	}}
}

func floatPtr(f float64) *float64 { return &f }

func TestParseBudget(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantMin *float64
		wantMax *float64
		wantErr error
	}{
		{name: "range", in: "budget 100-200", wantMin: floatPtr(100), wantMax: floatPtr(200)},
		{name: "range with dollar signs", in: "$50 - $75 please", wantMin: floatPtr(50), wantMax: floatPtr(75)},
		{name: "inverted range rejected", in: "$100-50", wantErr: models.ErrInvalidBudget},
		{name: "under", in: "something under 50", wantMin: nil, wantMax: floatPtr(50)},
		{name: "under with dollar", in: "Under $80", wantMin: nil, wantMax: floatPtr(80)},
		{name: "bare dollar amount", in: "around $100", wantMin: floatPtr(100), wantMax: nil},
		{name: "no budget", in: "gift for my sister", wantMin: nil, wantMax: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMin, gotMax, err := parseBudget(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("parseBudget(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if !floatPtrEqual(gotMin, tt.wantMin) || !floatPtrEqual(gotMax, tt.wantMax) {
				t.Errorf("parseBudget(%q) = %v, %v, want %v, %v",
					tt.in, fmtPtr(gotMin), fmtPtr(gotMax), fmtPtr(tt.wantMin), fmtPtr(tt.wantMax))
			}
		})
	}
}

func TestFallbackExtraction(t *testing.T) {
	payload := fallbackExtraction("gift for my sister, she likes hiking, budget 100-200")

	if payload.Recipient == nil || *payload.Recipient != "sister" {
		t.Errorf("Recipient = %v, want sister", payload.Recipient)
	}
	if payload.Preferences == nil || *payload.Preferences != "hiking, outdoor, nature" {
		t.Errorf("Preferences = %v", payload.Preferences)
	}
	if payload.BudgetMin == nil || *payload.BudgetMin != 100 {
		t.Errorf("BudgetMin = %v, want 100", payload.BudgetMin)
	}
	if payload.BudgetMax == nil || *payload.BudgetMax != 200 {
		t.Errorf("BudgetMax = %v, want 200", payload.BudgetMax)
	}
	if payload.Occasion != nil {
		t.Errorf("Occasion = %v, want nil", *payload.Occasion)
	}
}

func TestMergeSlotsImmutability(t *testing.T) {
	current := models.UserPreferences{Occasion: "birthday", BudgetMin: floatPtr(50)}
	wedding := "wedding"
	extracted := extractionPayload{Occasion: &wedding, BudgetMin: floatPtr(75)}

	merged := mergeSlots(current, extracted, false)
	if merged.Occasion != "birthday" {
		t.Errorf("Occasion = %q, overwrite should have been discarded", merged.Occasion)
	}
	if *merged.BudgetMin != 50 {
		t.Errorf("BudgetMin = %v, overwrite should have been discarded", *merged.BudgetMin)
	}

	// With overwrite armed (explicit update-preferences intent), the same
	// extraction applies.
	merged = mergeSlots(current, extracted, true)
	if merged.Occasion != "wedding" {
		t.Errorf("Occasion = %q, want wedding after update intent", merged.Occasion)
	}
	if *merged.BudgetMin != 75 {
		t.Errorf("BudgetMin = %v, want 75 after update intent", *merged.BudgetMin)
	}
}

func TestMergeSlotsFillsNullsOnly(t *testing.T) {
	current := models.UserPreferences{Recipient: "sister"}
	hiking := "hiking"
	sister := "sister"
	extracted := extractionPayload{Recipient: &sister, Preferences: &hiking}

	merged := mergeSlots(current, extracted, false)
	if merged.Recipient != "sister" {
		t.Errorf("Recipient = %q", merged.Recipient)
	}
	if merged.Preferences != "hiking" {
		t.Errorf("Preferences = %q, want hiking", merged.Preferences)
	}
}

func TestMergeSlotsRejectsInvertedModelBudget(t *testing.T) {
	extracted := extractionPayload{BudgetMin: floatPtr(100), BudgetMax: floatPtr(50)}
	merged := mergeSlots(models.UserPreferences{}, extracted, false)
	if merged.BudgetMin != nil || merged.BudgetMax != nil {
		t.Errorf("inverted budget accepted: min=%v max=%v", fmtPtr(merged.BudgetMin), fmtPtr(merged.BudgetMax))
	}
}

func TestExtractorModelPath(t *testing.T) {
	client := &fakeGenAI{fn: func(system, user string) (string, error) {
		return `{"occasion": null, "recipient": "sister", "preferences": "hiking", "budget_min": 100, "budget_max": 200}`, nil
	}}
	e := NewExtractor(client, nil)

	got := e.Extract(context.Background(), "gift for my sister, she likes hiking, budget 100-200", models.UserPreferences{}, false)
	if got.Recipient != "sister" || got.Preferences != "hiking" {
		t.Errorf("Extract() = %+v", got)
	}
	if got.BudgetMin == nil || *got.BudgetMin != 100 || got.BudgetMax == nil || *got.BudgetMax != 200 {
		t.Errorf("budget = %v-%v", fmtPtr(got.BudgetMin), fmtPtr(got.BudgetMax))
	}
	if got.Occasion != "" {
		t.Errorf("Occasion = %q, want empty", got.Occasion)
	}
}

// TestExtractorPromptsConfiguredSlots checks a custom required set flows
// through to the missing-parameters list the model sees.
func TestExtractorPromptsConfiguredSlots(t *testing.T) {
	var prompt string
	client := &fakeGenAI{fn: func(system, user string) (string, error) {
		prompt = user
		return `{}`, nil
	}}
	e := NewExtractor(client, []models.SlotName{models.SlotOccasion, models.SlotRecipient})

	e.Extract(context.Background(), "something nice", models.UserPreferences{Recipient: "sister"}, false)

	if !strings.Contains(prompt, "Missing Parameters: occasion\n") {
		t.Errorf("missing-parameters list not limited to the configured slots:\n%s", prompt)
	}
}

func TestExtractorFallsBackOnModelFailure(t *testing.T) {
	e := NewExtractor(failingGenAI(), nil)

	got := e.Extract(context.Background(), "birthday gift for my brother under 50", models.UserPreferences{}, false)
	if got.Occasion != "birthday" {
		t.Errorf("Occasion = %q, want birthday", got.Occasion)
	}
	if got.Recipient != "brother" {
		t.Errorf("Recipient = %q, want brother", got.Recipient)
	}
	if got.BudgetMax == nil || *got.BudgetMax != 50 {
		t.Errorf("BudgetMax = %v, want 50", fmtPtr(got.BudgetMax))
	}
}

func TestExtractorFallsBackOnGarbageOutput(t *testing.T) {
	client := &fakeGenAI{fn: func(string, string) (string, error) {
		return "sorry, I can't produce JSON today", nil
	}}
	e := NewExtractor(client, nil)

	got := e.Extract(context.Background(), "anniversary gift for my wife", models.UserPreferences{}, false)
	if got.Occasion != "anniversary" || got.Recipient != "wife" {
		t.Errorf("Extract() = %+v, want keyword fallback values", got)
	}
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtPtr(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
