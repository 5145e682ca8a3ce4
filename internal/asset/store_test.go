package asset

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/imaging"
)

func pngImage(t *testing.T, w, h int) history.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return history.Image{Data: buf.Bytes(), MIMEType: "image/png", Width: w, Height: h}
}

func TestStore_PublishRelease(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "/assets")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	h, err := s.Publish(pngImage(t, 4, 4))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if h.URL != "/assets/"+h.File {
		t.Errorf("URL = %q, want /assets/%s", h.URL, h.File)
	}
	if _, err := os.Stat(filepath.Join(dir, h.File)); err != nil {
		t.Fatalf("published file missing: %v", err)
	}
	if s.Live() != 1 {
		t.Errorf("Live() = %d, want 1", s.Live())
	}

	if err := s.Release(h); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, h.File)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after Release: %v", err)
	}
	if err := s.Release(h); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("second Release() error = %v, want ErrUnknownHandle", err)
	}
	if err := s.Release(Handle{}); err != nil {
		t.Errorf("Release(zero) error = %v", err)
	}
}

func TestStore_Serve(t *testing.T) {
	s, err := NewStore(t.TempDir(), "/assets/")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	img := pngImage(t, 4, 4)
	h, err := s.Publish(img)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	srv := s.Serve()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, h.URL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d, want 200", h.URL, rec.Code)
	}
	if got := rec.Header().Get("ETag"); got != `"`+imaging.Digest(img.Data)+`"` {
		t.Errorf("ETag = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), img.Data) {
		t.Error("served body differs from published data")
	}

	req := httptest.NewRequest(http.MethodGet, h.URL, nil)
	req.Header.Set("If-None-Match", h.ETag)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional GET = %d, want 304", rec.Code)
	}

	if err := s.Release(h); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, h.URL, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET released = %d, want 404", rec.Code)
	}
}

func TestStore_Sweep(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "asset_01h0000000000000000000000.png")
	if err := os.WriteFile(stale, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(dir, "/assets/")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	h, err := s.Publish(pngImage(t, 2, 2))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	s.Sweep()

	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Error("stale asset not swept")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("unrelated file removed")
	}
	if _, err := os.Stat(filepath.Join(dir, h.File)); err != nil {
		t.Error("live asset removed")
	}
}

func multipartRequest(t *testing.T, label string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if label != "" {
		if err := mw.WriteField("label", label); err != nil {
			t.Fatal(err)
		}
	}
	if data != nil {
		fw, err := mw.CreateFormFile("file", "chair.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReadUpload(t *testing.T) {
	img := pngImage(t, 6, 3)

	up, err := ReadUpload(httptest.NewRecorder(), multipartRequest(t, "oak chair", img.Data), 1<<20)
	if err != nil {
		t.Fatalf("ReadUpload() error = %v", err)
	}
	if up.Label != "oak chair" || up.Image.Width != 6 || up.Image.Height != 3 {
		t.Errorf("ReadUpload() = %+v", up)
	}

	up, err = ReadUpload(httptest.NewRecorder(), multipartRequest(t, "", img.Data), 1<<20)
	if err != nil {
		t.Fatalf("ReadUpload() error = %v", err)
	}
	if up.Label != "chair.png" {
		t.Errorf("Label = %q, want filename fallback", up.Label)
	}
}

func TestReadUpload_Errors(t *testing.T) {
	img := pngImage(t, 6, 3)

	if _, err := ReadUpload(httptest.NewRecorder(), multipartRequest(t, "x", nil), 1<<20); !errors.Is(err, ErrMissingFile) {
		t.Errorf("no file: error = %v, want ErrMissingFile", err)
	}

	var de *imaging.DecodeError
	if _, err := ReadUpload(httptest.NewRecorder(), multipartRequest(t, "x", []byte("nope")), 1<<20); !errors.As(err, &de) {
		t.Errorf("bad image: error = %v, want DecodeError", err)
	}

	big := bytes.Repeat(img.Data, 100)
	if _, err := ReadUpload(httptest.NewRecorder(), multipartRequest(t, "x", big), 64); !errors.Is(err, ErrUploadTooLarge) {
		t.Errorf("too large: error = %v, want ErrUploadTooLarge", err)
	}
}
