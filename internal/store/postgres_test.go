package store

import (
	"testing"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
)

func TestUnsavedRevisions(t *testing.T) {
	revs := []history.Revision{{ID: "rev_1"}, {ID: "rev_2"}, {ID: "rev_3"}}

	tests := []struct {
		name   string
		stored []string
		want   []string
	}{
		{"nothing stored", nil, []string{"rev_1", "rev_2", "rev_3"}},
		{"all stored", []string{"rev_3", "rev_1", "rev_2"}, nil},
		{"new tail", []string{"rev_1", "rev_2"}, []string{"rev_3"}},
		{"stale stored id ignored", []string{"rev_0", "rev_2"}, []string{"rev_1", "rev_3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := unsavedRevisions(tt.stored, revs)
			if len(got) != len(tt.want) {
				t.Fatalf("unsavedRevisions() = %d revisions, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.ID != tt.want[i] {
					t.Errorf("unsavedRevisions()[%d] = %q, want %q", i, r.ID, tt.want[i])
				}
			}
		})
	}
}

func TestProductChanged(t *testing.T) {
	img := &history.Image{Data: []byte{1, 2, 3}, MIMEType: "image/png"}

	digest, changed := productChanged(nil, img)
	if !changed || len(digest) == 0 {
		t.Fatalf("productChanged(nil, img) = %x, %v, want digest and true", digest, changed)
	}
	if _, changed := productChanged(digest, img); changed {
		t.Error("productChanged() with same product = true, want false")
	}

	other := &history.Image{Data: []byte{1, 2, 3}, MIMEType: "image/jpeg"}
	if _, changed := productChanged(digest, other); !changed {
		t.Error("productChanged() with different MIME type = false, want true")
	}

	if got, changed := productChanged(digest, nil); !changed || got != nil {
		t.Errorf("productChanged(digest, nil) = %x, %v, want nil and true", got, changed)
	}
	if _, changed := productChanged(nil, nil); changed {
		t.Error("productChanged(nil, nil) = true, want false")
	}
}
