package flow

import (
	"context"
	"testing"
)

func TestParseOrdinal(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "5", want: 5, wantOK: true},
		{in: " 2 ", want: 2, wantOK: true},
		{in: "Category 5", want: 5, wantOK: true},
		{in: "option 2", want: 2, wantOK: true},
		{in: "number 3", want: 3, wantOK: true},
		{in: "#4", want: 4, wantOK: true},
		{in: "3. Trail Backpack", want: 3, wantOK: true},
		{in: "books", wantOK: false},
		{in: "I want 2 of them", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseOrdinal(tt.in)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("parseOrdinal(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveOption(t *testing.T) {
	options := []string{"Electronics", "Books", "Jewelry", "Home Decor"}

	tests := []struct {
		name           string
		selected       string
		wantMatch      string
		wantOutOfRange bool
	}{
		{name: "exact", selected: "Books", wantMatch: "Books"},
		{name: "exact case-insensitive", selected: "books", wantMatch: "Books"},
		{name: "ordinal", selected: "3", wantMatch: "Jewelry"},
		{name: "ordinal with prefix", selected: "category 1", wantMatch: "Electronics"},
		{name: "ordinal zero", selected: "0", wantOutOfRange: true},
		{name: "ordinal too big", selected: "9", wantOutOfRange: true},
		{name: "substring", selected: "home", wantMatch: "Home Decor"},
		{name: "synonym", selected: "something tech", wantMatch: "Electronics"},
		{name: "no match", selected: "puppies", wantMatch: ""},
		{name: "empty", selected: "", wantMatch: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, outOfRange := resolveOption(tt.selected, options)
			if match != tt.wantMatch || outOfRange != tt.wantOutOfRange {
				t.Errorf("resolveOption(%q) = %q, %v, want %q, %v",
					tt.selected, match, outOfRange, tt.wantMatch, tt.wantOutOfRange)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	options := []string{"Electronics", "Books"}

	tests := []struct {
		name       string
		in         string
		wantAction string
		wantOption string
	}{
		{name: "more options", in: "show me more options please", wantAction: ActionMoreOptions},
		{name: "what else", in: "what else do you have", wantAction: ActionMoreOptions},
		{name: "update", in: "I want to update my preferences", wantAction: ActionUpdatePreferences},
		{name: "change of mind", in: "actually I changed my mind, something different", wantAction: ActionUpdatePreferences},
		{name: "ordinal", in: "2", wantAction: ActionSelect, wantOption: "2"},
		{name: "exact option", in: "Books", wantAction: ActionSelect, wantOption: "Books"},
		{name: "option substring", in: "the electronics one", wantAction: ActionSelect, wantOption: "Electronics"},
		{name: "unclear", in: "hmm not sure", wantAction: ActionUnclear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveDeterministic(tt.in, options)
			if got.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", got.Action, tt.wantAction)
			}
			if tt.wantOption != "" && got.SelectedOption != tt.wantOption {
				t.Errorf("SelectedOption = %q, want %q", got.SelectedOption, tt.wantOption)
			}
		})
	}
}

func TestResolveModelPath(t *testing.T) {
	client := &fakeGenAI{fn: func(system, user string) (string, error) {
		return `{"selected_option": "Books", "wants_more_options": false, "updated_preferences": false, "action": "select"}`, nil
	}}
	s := NewSelector(client)

	got := s.Resolve(context.Background(), "I love reading", []string{"Electronics", "Books"})
	if got.Action != ActionSelect || got.SelectedOption != "Books" {
		t.Errorf("Resolve() = %+v", got)
	}
}

func TestResolveRejectsUnknownModelAction(t *testing.T) {
	// A bogus action from the model must fall through to the deterministic
	// parser rather than be trusted.
	client := &fakeGenAI{fn: func(system, user string) (string, error) {
		return `{"selected_option": null, "action": "buy_now"}`, nil
	}}
	s := NewSelector(client)

	got := s.Resolve(context.Background(), "show me more options", []string{"Electronics"})
	if got.Action != ActionMoreOptions {
		t.Errorf("Action = %q, want fallback more_options", got.Action)
	}
}

func TestResolveFallsBackOnGarbage(t *testing.T) {
	client := &fakeGenAI{fn: func(system, user string) (string, error) {
		return "not json at all", nil
	}}
	s := NewSelector(client)

	got := s.Resolve(context.Background(), "2", []string{"Electronics", "Books"})
	if got.Action != ActionSelect || got.SelectedOption != "2" {
		t.Errorf("Resolve() = %+v, want deterministic ordinal select", got)
	}
}
