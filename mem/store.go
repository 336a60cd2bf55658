// Package mem provides an in-memory annotation store. It backs tests and
// the degraded mode entered when the on-disk datastore is corrupt.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/fwojciec/differ"
)

// Compile-time interface verification.
var _ differ.AnnotationStore = (*Store)(nil)

// Store holds annotations in memory. Writes to the same id are serialized
// by a single mutex.
type Store struct {
	mu          sync.RWMutex
	annotations map[string]*differ.Annotation
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{annotations: make(map[string]*differ.Annotation)}
}

// Create inserts a new annotation.
func (s *Store) Create(_ context.Context, a *differ.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.annotations[a.ID] = &cp
	return nil
}

// Get returns the annotation with the given id.
func (s *Store) Get(_ context.Context, id string) (*differ.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.annotations[id]
	if !ok {
		return nil, differ.OpError("get", id, differ.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// Update replaces the annotation's body, kind and resolved flag.
func (s *Store) Update(_ context.Context, id string, body string, kind differ.AnnotationKind, resolved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.annotations[id]
	if !ok {
		return differ.OpError("update", id, differ.ErrNotFound)
	}
	a.Body, a.Kind, a.Resolved = body, kind, resolved
	return nil
}

// UpdateAnchor commits a re-resolved position for one annotation.
func (s *Store) UpdateAnchor(_ context.Context, id string, line, endLine int, anchor differ.Anchor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.annotations[id]
	if !ok {
		return differ.OpError("update-anchor", id, differ.ErrNotFound)
	}
	a.Line, a.EndLine, a.Anchor = line, endLine, anchor
	return nil
}

// Delete removes the annotation with the given id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.annotations[id]; !ok {
		return differ.OpError("delete", id, differ.ErrNotFound)
	}
	delete(s.annotations, id)
	return nil
}

// ListByFile returns the annotations on one path, ordered by line.
func (s *Store) ListByFile(_ context.Context, path string) ([]*differ.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*differ.Annotation
	for _, a := range s.annotations {
		if a.FilePath == path {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortAnnotations(out)
	return out, nil
}

// ListAll returns every annotation, ordered by file then line.
func (s *Store) ListAll(_ context.Context) ([]*differ.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*differ.Annotation, 0, len(s.annotations))
	for _, a := range s.annotations {
		cp := *a
		out = append(out, &cp)
	}
	sortAnnotations(out)
	return out, nil
}

// Clear removes all annotations.
func (s *Store) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.annotations)
	s.annotations = make(map[string]*differ.Annotation)
	return n, nil
}

func sortAnnotations(anns []*differ.Annotation) {
	sort.Slice(anns, func(i, j int) bool {
		if anns[i].FilePath != anns[j].FilePath {
			return anns[i].FilePath < anns[j].FilePath
		}
		if anns[i].Line != anns[j].Line {
			return anns[i].Line < anns[j].Line
		}
		return anns[i].ID < anns[j].ID
	})
}
