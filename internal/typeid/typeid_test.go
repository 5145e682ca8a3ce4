package typeid

import (
	"strings"
	"testing"
)

func TestNew_PrefixAndValidate(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"session", NewSessionID, PrefixSession},
		{"revision", NewRevisionID, PrefixRevision},
		{"message", NewMessageID, PrefixMessage},
		{"asset", NewAssetID, PrefixAsset},
		{"export", NewExportID, PrefixExport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.gen()
			if !strings.HasPrefix(id, tt.prefix+"_") {
				t.Errorf("id = %q, want prefix %q", id, tt.prefix+"_")
			}
			if err := Validate(id, tt.prefix); err != nil {
				t.Errorf("Validate(%q) error = %v", id, err)
			}
		})
	}
}

func TestValidate_WrongPrefix(t *testing.T) {
	id := NewSessionID()
	if err := Validate(id, PrefixRevision); err == nil {
		t.Errorf("Validate(%q, %q) = nil, want error", id, PrefixRevision)
	}
	if err := Validate("not-an-id", PrefixSession); err == nil {
		t.Error("Validate(garbage) = nil, want error")
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRevisionID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
