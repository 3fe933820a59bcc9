package typeid

import (
	"strings"
	"testing"
)

func TestNewHasPrefix(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"image", NewImageID, PrefixImage},
		{"asset", NewAssetID, PrefixAsset},
		{"session", NewSessionID, PrefixSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.gen()
			if !strings.HasPrefix(id, tt.prefix+"_") {
				t.Errorf("id %q does not start with %q", id, tt.prefix+"_")
			}
			if err := Validate(id, tt.prefix); err != nil {
				t.Errorf("Validate(%q): %v", id, err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	if err := Validate(NewImageID(), PrefixAsset); err == nil {
		t.Error("expected prefix mismatch error")
	}
	if err := Validate("not-an-id", PrefixImage); err == nil {
		t.Error("expected parse error")
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewImageID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
