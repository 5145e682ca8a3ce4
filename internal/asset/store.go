package asset

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
	"github.com/Nikhil-Joson/HomeCanvas/internal/imaging"
	"github.com/Nikhil-Joson/HomeCanvas/internal/typeid"
)

var ErrUnknownHandle = errors.New("unknown display handle")

// Handle is a published image file. It stays servable until released.
type Handle struct {
	ID   string `json:"id"`
	File string `json:"-"`
	URL  string `json:"url"`
	ETag string `json:"etag"`
}

// Store publishes images as immutable files under a directory and serves them.
type Store struct {
	dir    string
	prefix string

	mu    sync.RWMutex
	etags map[string]string // file name -> etag
}

// NewStore creates a store that writes into dir and builds URLs under
// urlPrefix (for example "/assets/").
func NewStore(dir, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Store{dir: dir, prefix: urlPrefix, etags: make(map[string]string)}, nil
}

// Publish writes img to a new file and returns its handle.
func (s *Store) Publish(img history.Image) (Handle, error) {
	if img.IsZero() {
		return Handle{}, errors.New("publish empty image")
	}
	id := typeid.NewAssetID()
	name := id + imaging.Extension(img.MIMEType)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return Handle{}, fmt.Errorf("write asset: %w", err)
	}

	h := Handle{
		ID:   id,
		File: name,
		URL:  s.prefix + name,
		ETag: `"` + imaging.Digest(img.Data) + `"`,
	}
	s.mu.Lock()
	s.etags[name] = h.ETag
	s.mu.Unlock()
	return h, nil
}

// Release removes a published file. Releasing the zero handle is a no-op.
func (s *Store) Release(h Handle) error {
	if h.File == "" {
		return nil
	}
	s.mu.Lock()
	_, ok := s.etags[h.File]
	delete(s.etags, h.File)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h.ID)
	}

	if err := os.Remove(filepath.Join(s.dir, h.File)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove asset: %w", err)
	}
	return nil
}

// Live reports how many handles are currently published.
func (s *Store) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.etags)
}

// Serve returns an http.Handler that serves published files with caching
// headers. Released files are not served even if still on disk.
func (s *Store) Serve() http.Handler {
	fs := http.FileServer(http.Dir(s.dir))
	return http.StripPrefix(s.prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		s.mu.RLock()
		etag, ok := s.etags[name]
		s.mu.RUnlock()
		if !ok {
			http.NotFound(w, r)
			return
		}

		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("ETag", etag)
		fs.ServeHTTP(w, r)
	}))
}

// Sweep removes files in the store directory that no handle refers to, left
// behind by a previous process.
func (s *Store) Sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("sweep asset dir", "error", err, "dir", s.dir)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), typeid.PrefixAsset+"_") {
			continue
		}
		if _, ok := s.etags[e.Name()]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			slog.Warn("remove stale asset", "error", err, "file", e.Name())
		}
	}
}
