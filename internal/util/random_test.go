package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomID(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		hexLength  int
		wantPrefix string
		wantLength int // expected total length: prefix + hexLength
	}{
		{
			name:       "transaction ID format",
			prefix:     "txn_",
			hexLength:  8,
			wantPrefix: "txn_",
			wantLength: 12, // 4 + 8
		},
		{
			name:       "custom prefix",
			prefix:     "test_",
			hexLength:  16,
			wantPrefix: "test_",
			wantLength: 21, // 5 + 16
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomID(tt.prefix, tt.hexLength)

			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("GenerateRandomID() = %v, want prefix %v", got, tt.wantPrefix)
			}

			if len(got) != tt.wantLength {
				t.Errorf("GenerateRandomID() length = %v, want %v", len(got), tt.wantLength)
			}

			hexPart := got[len(tt.wantPrefix):]
			if !isValidHex(hexPart) {
				t.Errorf("GenerateRandomID() hex part = %v is not valid hex", hexPart)
			}
		})
	}
}

func TestGenerateRandomHex(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"zero length", 0, 0},
		{"negative length", -1, 0},
		{"small length", 8, 8},
		{"large length", 64, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomHex(tt.length)

			if len(got) != tt.want {
				t.Errorf("GenerateRandomHex() length = %v, want %v", len(got), tt.want)
			}

			if tt.want > 0 && !isValidHex(got) {
				t.Errorf("GenerateRandomHex() = %v is not valid hex", got)
			}
		})
	}
}

func TestGenerateTransactionID(t *testing.T) {
	got := GenerateTransactionID()

	if !strings.HasPrefix(got, "txn_") {
		t.Errorf("GenerateTransactionID() = %v, want prefix txn_", got)
	}

	if len(got) != 12 { // "txn_" + 8 hex chars
		t.Errorf("GenerateTransactionID() length = %v, want 12", len(got))
	}

	if !isValidHex(got[4:]) {
		t.Errorf("GenerateTransactionID() hex part = %v is not valid hex", got[4:])
	}
}

func TestRandomIDUniqueness(t *testing.T) {
	const iterations = 1000
	seen := make(map[string]bool)

	for i := 0; i < iterations; i++ {
		id := GenerateRandomID("test_", 16)
		if seen[id] {
			t.Errorf("GenerateRandomID() generated duplicate: %v", id)
		}
		seen[id] = true
	}
}

func TestPickRandom(t *testing.T) {
	if got := PickRandom([]string(nil)); got != "" {
		t.Errorf("PickRandom(nil) = %q, want empty", got)
	}

	items := []string{"Electronics", "Books", "Jewelry"}
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		pick := PickRandom(items)
		found := false
		for _, item := range items {
			if pick == item {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("PickRandom() = %q, not a member of input", pick)
		}
		seen[pick] = true
	}
	if len(seen) < 2 {
		t.Errorf("PickRandom() only ever returned %v across 200 draws", seen)
	}
}

// Helper function to validate hex strings
func isValidHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
