package differ

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Annotator creates and mutates annotations, computing anchors from the
// current worktree content at creation time.
type Annotator struct {
	repo     Repository
	store    AnnotationStore
	resolver *Resolver
}

// NewAnnotator builds an annotator.
func NewAnnotator(repo Repository, store AnnotationStore, resolver *Resolver) *Annotator {
	return &Annotator{repo: repo, store: store, resolver: resolver}
}

// Create stores a new annotation anchored at the given 1-based line of
// path in the worktree. When the file cannot be read the anchor degrades
// to a bare line number.
func (an *Annotator) Create(ctx context.Context, path string, line, endLine int, kind AnnotationKind, body string) (*Annotation, error) {
	anchor := Anchor{Line: line}
	wt, err := an.repo.Resolve(ctx, RevWorktree)
	if err == nil {
		if data, err := an.repo.ReadFile(ctx, wt, path); err == nil && !IsBinaryText(data) {
			anchor = BuildAnchor(SplitLines(string(data)), line, an.resolver.Context)
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	a := &Annotation{
		ID:        uuid.NewString(),
		FilePath:  path,
		Side:      SideNew,
		Line:      line,
		EndLine:   endLine,
		Kind:      kind,
		Body:      body,
		Anchor:    anchor,
		CreatedAt: time.Now(),
	}
	if err := an.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Edit replaces an annotation's body and kind.
func (an *Annotator) Edit(ctx context.Context, id, body string, kind AnnotationKind) error {
	a, err := an.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return an.store.Update(ctx, id, body, kind, a.Resolved)
}

// SetResolved marks an annotation resolved or unresolved.
func (an *Annotator) SetResolved(ctx context.Context, id string, resolved bool) error {
	a, err := an.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return an.store.Update(ctx, id, a.Body, a.Kind, resolved)
}

// ToggleKind flips an annotation between comment and todo.
func (an *Annotator) ToggleKind(ctx context.Context, id string) error {
	a, err := an.store.Get(ctx, id)
	if err != nil {
		return err
	}
	kind := KindComment
	if a.Kind == KindComment {
		kind = KindTodo
	}
	return an.store.Update(ctx, id, a.Body, kind, a.Resolved)
}

// Delete removes an annotation by id.
func (an *Annotator) Delete(ctx context.Context, id string) error {
	return an.store.Delete(ctx, id)
}
