// Package storage persists raw schema documents so a registry can be
// rebuilt across restarts. Stores hold the document text, not compiled
// schemas.
package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Document formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("schema document not found")

// Document is one stored schema document.
type Document struct {
	ID        string
	Name      string
	Format    string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists schema documents.
type Store interface {
	// Save inserts the document or replaces the one sharing its id,
	// preserving the original creation time on replace.
	Save(ctx context.Context, doc Document) error

	// Get retrieves a document by id, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// List returns every document ordered by name, then id.
	List(ctx context.Context) ([]Document, error)

	// Delete removes a document. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases the underlying resources.
	Close() error
}

// MemStore is an in-memory Store for tests and ephemeral setups.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		docs: make(map[string]Document),
	}
}

// Save inserts or replaces a document.
func (s *MemStore) Save(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return errors.New("storage: empty document id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.docs[doc.ID]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.Data = append([]byte(nil), doc.Data...)
	s.docs[doc.ID] = doc
	return nil
}

// Get retrieves a document by id.
func (s *MemStore) Get(ctx context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Data = append([]byte(nil), doc.Data...)
	return doc, nil
}

// List returns every document ordered by name, then id.
func (s *MemStore) List(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		doc.Data = append([]byte(nil), doc.Data...)
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Name != docs[j].Name {
			return docs[i].Name < docs[j].Name
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Delete removes a document.
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error {
	return nil
}

// Ensure interface compliance.
var _ Store = (*MemStore)(nil)
