// Package memory keeps attachment blobs in process memory.
package memory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"example.com/fieldactivity/internal/domain"
	"example.com/fieldactivity/internal/storage"
)

// Store implements domain.AttachmentStore and domain.AttachmentRemover.
type Store struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
}

// NewStore constructs a store whose links are rooted at baseURL.
func NewStore(baseURL string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

// Store implements domain.AttachmentStore.
func (s *Store) Store(ctx context.Context, upload domain.Upload) (domain.StoredObject, error) {
	if upload.Body == nil {
		return domain.StoredObject{}, fmt.Errorf("empty upload body")
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return domain.StoredObject{}, fmt.Errorf("read upload: %w", err)
	}
	key := storage.ObjectKey(upload.Name)

	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()

	link, _ := s.URLFor(ctx, key)
	return domain.StoredObject{Path: key, URL: link}, nil
}

// URLFor implements domain.AttachmentStore.
func (s *Store) URLFor(_ context.Context, path string) (string, error) {
	return s.baseURL + "/" + path, nil
}

// Remove implements domain.AttachmentRemover.
func (s *Store) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

// Object returns the stored bytes for path.
func (s *Store) Object(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[path]
	return data, ok
}

// Len reports how many blobs are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// ServeHTTP streams the object named by the "path" wildcard.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, ok := s.Object(r.PathValue("path"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}
