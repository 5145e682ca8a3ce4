// Package generate is the boundary to the external image-generation service.
package generate

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/imaging"
)

// ErrEmptyResponse is returned when the model produced no usable image for a
// composite.
var ErrEmptyResponse = errors.New("generation returned no image")

// Service composes products into scenes and edits scenes from instructions.
type Service interface {
	GenerateComposite(ctx context.Context, req CompositeRequest) (*CompositeResult, error)
	EditWithInstruction(ctx context.Context, prompt string, base history.Image) (*EditResult, error)
}

// CompositeRequest places Product into Scene at Position.
type CompositeRequest struct {
	Product      history.Image
	ProductLabel string
	Scene        history.Image
	SceneLabel   string
	Position     geometry.NormalizedPosition
}

// CompositeResult holds the composed scene plus the marked-up input that was
// used to describe the placement.
type CompositeResult struct {
	Image      history.Image
	DebugImage history.Image
	Prompt     string
}

// EditResult carries whatever the model returned. Either field may be empty;
// both empty is a soft failure for the caller to report.
type EditResult struct {
	Text  string
	Image *history.Image
}

// Empty reports whether the model returned nothing usable.
func (r *EditResult) Empty() bool {
	return r == nil || (r.Text == "" && r.Image == nil)
}

// UserMessage turns a generation error into a message fit for the chat or
// the error banner.
func UserMessage(err error) string {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400:
			return "The image service rejected the request."
		case 401, 403:
			return "The image service API key is invalid or lacks permission."
		case 429:
			return "The image service is rate limited. Try again in a moment."
		case 500, 502, 503, 504:
			return "The image service is unavailable. Try again later."
		}
	}
	var decodeErr *imaging.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return "The image service returned an image that could not be read."
	case errors.Is(err, context.DeadlineExceeded):
		return "The image service took too long to respond."
	case errors.Is(err, ErrEmptyResponse):
		return "The image service did not return an image."
	}
	return "Image generation failed. Reset and try again."
}
