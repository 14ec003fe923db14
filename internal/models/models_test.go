package models

import "testing"

func floatPtr(v float64) *float64 { return &v }

func TestUserPreferencesMissingSlots(t *testing.T) {
	tests := []struct {
		name    string
		prefs   UserPreferences
		missing []SlotName
	}{
		{
			name:    "empty slot set misses everything",
			prefs:   UserPreferences{},
			missing: []SlotName{SlotOccasion, SlotRecipient, SlotPreferences, SlotBudget},
		},
		{
			name:    "occasion and budget alone are not complete",
			prefs:   UserPreferences{Occasion: "birthday", BudgetMin: floatPtr(50), BudgetMax: floatPtr(100)},
			missing: []SlotName{SlotRecipient, SlotPreferences},
		},
		{
			name:    "single budget bound satisfies the budget slot",
			prefs:   UserPreferences{Occasion: "birthday", Recipient: "sister", Preferences: "hiking", BudgetMax: floatPtr(100)},
			missing: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing := tt.prefs.MissingSlots(DefaultRequiredSlots())
			if len(missing) != len(tt.missing) {
				t.Fatalf("MissingSlots() = %v, want %v", missing, tt.missing)
			}
			for i, slot := range tt.missing {
				if missing[i] != slot {
					t.Errorf("MissingSlots()[%d] = %s, want %s", i, missing[i], slot)
				}
			}
		})
	}
}

func TestUserPreferencesIsComplete(t *testing.T) {
	prefs := UserPreferences{Occasion: "birthday", BudgetMin: floatPtr(50), BudgetMax: floatPtr(100)}
	if prefs.IsComplete(DefaultRequiredSlots()) {
		t.Error("expected occasion+budget alone to be incomplete under the default required set")
	}

	prefs.Recipient = "sister"
	prefs.Preferences = "hiking"
	if !prefs.IsComplete(DefaultRequiredSlots()) {
		t.Error("expected all four slots filled to be complete")
	}

	// A caller-supplied required set changes the predicate without code changes.
	narrow := []SlotName{SlotOccasion, SlotBudget}
	empty := UserPreferences{Occasion: "birthday", BudgetMax: floatPtr(100)}
	if !empty.IsComplete(narrow) {
		t.Error("expected occasion+budget to satisfy a narrowed required set")
	}
}

func TestResponseValidate(t *testing.T) {
	tests := []struct {
		name    string
		resp    Response
		wantErr error
	}{
		{"valid", Response{From: "user1", Body: "hi", Time: 1}, nil},
		{"missing sender", Response{Body: "hi"}, ErrEmptyUserID},
		{"missing body", Response{From: "user1"}, ErrEmptyMessageBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.resp.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPeerReplyValidate(t *testing.T) {
	reply := PeerReply{Type: PeerTypePersonalityResponse, RequestID: "req-1", Friend: "devam", Answer: "calm"}
	if err := reply.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	reply.RequestID = ""
	if err := reply.Validate(); err != ErrEmptyRequestID {
		t.Errorf("Validate() = %v, want ErrEmptyRequestID", err)
	}

	bad := PeerReply{Type: "chatty_nonsense", RequestID: "req-2"}
	if err := bad.Validate(); err != ErrInvalidPeerType {
		t.Errorf("Validate() = %v, want ErrInvalidPeerType", err)
	}
}
