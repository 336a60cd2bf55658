// Package mock provides function-field test doubles for the differ
// interfaces.
package mock

import (
	"context"

	"github.com/fwojciec/differ"
)

// Compile-time interface verification.
var (
	_ differ.Repository      = (*Repository)(nil)
	_ differ.DiffProvider    = (*DiffProvider)(nil)
	_ differ.TextDiffer      = (*TextDiffer)(nil)
	_ differ.AnnotationStore = (*AnnotationStore)(nil)
	_ differ.Watcher         = (*Watcher)(nil)
	_ differ.Tokenizer       = (*Tokenizer)(nil)
)

// Repository implements differ.Repository for testing.
type Repository struct {
	RootFn         func() string
	ResolveFn      func(ctx context.Context, ref string) (differ.RevisionHandle, error)
	ReadFileFn     func(ctx context.Context, h differ.RevisionHandle, path string) ([]byte, error)
	ChangedPathsFn func(ctx context.Context, a, b differ.RevisionHandle, pathFilter []string) ([]string, error)
	StageHunkFn    func(ctx context.Context, path string, h differ.Hunk) error
	UnstageHunkFn  func(ctx context.Context, path string, h differ.Hunk) error
	DiscardHunkFn  func(ctx context.Context, path string, h differ.Hunk) error
}

func (m *Repository) Root() string {
	if m.RootFn == nil {
		return ""
	}
	return m.RootFn()
}

func (m *Repository) Resolve(ctx context.Context, ref string) (differ.RevisionHandle, error) {
	if m.ResolveFn == nil {
		return differ.RevisionHandle{Ref: ref, Live: ref == differ.RevWorktree || ref == differ.RevIndex}, nil
	}
	return m.ResolveFn(ctx, ref)
}

func (m *Repository) ReadFile(ctx context.Context, h differ.RevisionHandle, path string) ([]byte, error) {
	return m.ReadFileFn(ctx, h, path)
}

func (m *Repository) ChangedPaths(ctx context.Context, a, b differ.RevisionHandle, pathFilter []string) ([]string, error) {
	return m.ChangedPathsFn(ctx, a, b, pathFilter)
}

func (m *Repository) StageHunk(ctx context.Context, path string, h differ.Hunk) error {
	return m.StageHunkFn(ctx, path, h)
}

func (m *Repository) UnstageHunk(ctx context.Context, path string, h differ.Hunk) error {
	return m.UnstageHunkFn(ctx, path, h)
}

func (m *Repository) DiscardHunk(ctx context.Context, path string, h differ.Hunk) error {
	return m.DiscardHunkFn(ctx, path, h)
}

// DiffProvider implements differ.DiffProvider for testing.
type DiffProvider struct {
	DiffRangeFn func(ctx context.Context, rng differ.Range, paths []string) (*differ.Diff, error)
}

func (m *DiffProvider) DiffRange(ctx context.Context, rng differ.Range, paths []string) (*differ.Diff, error) {
	return m.DiffRangeFn(ctx, rng, paths)
}

// TextDiffer implements differ.TextDiffer for testing.
type TextDiffer struct {
	DiffFn func(before, after string, contextLines int) ([]differ.Hunk, error)
}

func (m *TextDiffer) Diff(before, after string, contextLines int) ([]differ.Hunk, error) {
	return m.DiffFn(before, after, contextLines)
}

// AnnotationStore implements differ.AnnotationStore for testing.
type AnnotationStore struct {
	CreateFn       func(ctx context.Context, a *differ.Annotation) error
	GetFn          func(ctx context.Context, id string) (*differ.Annotation, error)
	UpdateFn       func(ctx context.Context, id string, body string, kind differ.AnnotationKind, resolved bool) error
	UpdateAnchorFn func(ctx context.Context, id string, line, endLine int, anchor differ.Anchor) error
	DeleteFn       func(ctx context.Context, id string) error
	ListByFileFn   func(ctx context.Context, path string) ([]*differ.Annotation, error)
	ListAllFn      func(ctx context.Context) ([]*differ.Annotation, error)
	ClearFn        func(ctx context.Context) (int, error)
}

func (m *AnnotationStore) Create(ctx context.Context, a *differ.Annotation) error {
	return m.CreateFn(ctx, a)
}

func (m *AnnotationStore) Get(ctx context.Context, id string) (*differ.Annotation, error) {
	return m.GetFn(ctx, id)
}

func (m *AnnotationStore) Update(ctx context.Context, id string, body string, kind differ.AnnotationKind, resolved bool) error {
	return m.UpdateFn(ctx, id, body, kind, resolved)
}

func (m *AnnotationStore) UpdateAnchor(ctx context.Context, id string, line, endLine int, anchor differ.Anchor) error {
	return m.UpdateAnchorFn(ctx, id, line, endLine, anchor)
}

func (m *AnnotationStore) Delete(ctx context.Context, id string) error {
	return m.DeleteFn(ctx, id)
}

func (m *AnnotationStore) ListByFile(ctx context.Context, path string) ([]*differ.Annotation, error) {
	return m.ListByFileFn(ctx, path)
}

func (m *AnnotationStore) ListAll(ctx context.Context) ([]*differ.Annotation, error) {
	return m.ListAllFn(ctx)
}

func (m *AnnotationStore) Clear(ctx context.Context) (int, error) {
	return m.ClearFn(ctx)
}

// Watcher implements differ.Watcher for testing.
type Watcher struct {
	EventsCh chan struct{}
	CloseFn  func() error
}

func (m *Watcher) Events() <-chan struct{} { return m.EventsCh }

func (m *Watcher) Close() error {
	if m.CloseFn == nil {
		return nil
	}
	return m.CloseFn()
}

// Tokenizer implements differ.Tokenizer for testing.
type Tokenizer struct {
	TokenizeFn func(language, source string) []differ.Token
}

func (m *Tokenizer) Tokenize(language, source string) []differ.Token {
	return m.TokenizeFn(language, source)
}
