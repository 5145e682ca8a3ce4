// Package history keeps the linear undo/redo timeline of scene revisions.
package history

import (
	"time"

	"github.com/Nikhil-Joson/HomeCanvas/internal/typeid"
)

// Source records what produced a revision.
type Source string

const (
	SourceUpload    Source = "upload"
	SourceComposite Source = "composite"
	SourceEdit      Source = "edit"
)

// Image is an encoded image payload with its pixel dimensions.
type Image struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// IsZero reports whether the image carries no data.
func (img Image) IsZero() bool {
	return len(img.Data) == 0
}

// Revision is one immutable entry of the scene timeline.
type Revision struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Image     Image     `json:"image"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRevision creates a revision with a fresh id. seq is the creation order
// within the owning history.
func NewRevision(seq int64, img Image, src Source) Revision {
	return Revision{
		ID:        typeid.NewRevisionID(),
		Seq:       seq,
		Image:     img,
		Source:    src,
		CreatedAt: time.Now().UTC(),
	}
}
