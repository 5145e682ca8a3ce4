package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/imaging"
)

var (
	ErrUploadTooLarge = errors.New("upload too large")
	ErrMissingFile    = errors.New("missing file field")
)

// Upload is a decoded image upload.
type Upload struct {
	Image    history.Image
	Label    string
	Filename string
}

// ReadUpload parses a multipart form with a "file" field and an optional
// "label" field, and validates that the file decodes as an image.
func ReadUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*Upload, error) {
	if r.ContentLength > maxBytes {
		return nil, fmt.Errorf("%w (max %d bytes)", ErrUploadTooLarge, maxBytes)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w (max %d bytes)", ErrUploadTooLarge, maxBytes)
		}
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, ErrMissingFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	img, err := imaging.Inspect("upload", data)
	if err != nil {
		return nil, err
	}

	label := r.FormValue("label")
	if label == "" {
		label = header.Filename
	}
	return &Upload{Image: img, Label: label, Filename: header.Filename}, nil
}
