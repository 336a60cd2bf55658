package differ

import (
	"context"
	"time"
)

// AnnotationKind distinguishes plain comments from actionable todos.
type AnnotationKind int

// Annotation kinds.
const (
	KindComment AnnotationKind = iota
	KindTodo
)

// String returns the storage name of the kind.
func (k AnnotationKind) String() string {
	if k == KindTodo {
		return "todo"
	}
	return "comment"
}

// ParseAnnotationKind parses a storage name into a kind.
func ParseAnnotationKind(s string) (AnnotationKind, bool) {
	switch s {
	case "comment":
		return KindComment, true
	case "todo":
		return KindTodo, true
	}
	return KindComment, false
}

// Side identifies which side of a diff an annotation attaches to.
type Side int

// Sides.
const (
	SideNew Side = iota
	SideOld
)

// String returns the storage name of the side.
func (s Side) String() string {
	if s == SideOld {
		return "old"
	}
	return "new"
}

// ParseSide parses a storage name into a side.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "new":
		return SideNew, true
	case "old":
		return SideOld, true
	}
	return SideNew, false
}

// Annotation is user content attached to a position in a file. The ID is
// stable and immutable once created; the anchor is replaced whenever the
// underlying content moves, but never the identity.
type Annotation struct {
	ID        string // immutable, assigned at creation
	FilePath  string // relative to the repository root
	Side      Side
	Line      int // derived, possibly-stale view of the anchor
	EndLine   int // 0 for single-line annotations
	Kind      AnnotationKind
	Body      string
	Resolved  bool
	Anchor    Anchor
	CreatedAt time.Time
}

// Anchor is the re-resolvable position descriptor for an annotation. Line
// numbers are a derived view; the anchor's content and surrounding context
// are what identify the position after the file changes.
type Anchor struct {
	Line   int      // line number at the time the anchor was (re)built
	Text   string   // content of the anchored line
	Before []string // up to k lines immediately above
	After  []string // up to k lines immediately below
}

// Resolved is the outcome of resolving one annotation against the current
// version of its file.
type Resolved struct {
	Annotation *Annotation
	Line       int  // 0 when orphaned
	Orphaned   bool // anchor not found in the current text
	Exact      bool // resolved by exact fingerprint match
}

// AnnotationStore persists annotations for one repository. Implementations
// must serialize writes to the same annotation id; reads may run
// concurrently with diff computation.
type AnnotationStore interface {
	Create(ctx context.Context, a *Annotation) error
	Get(ctx context.Context, id string) (*Annotation, error)
	// Update replaces the mutable user-facing fields. Other annotations'
	// anchors are not touched.
	Update(ctx context.Context, id string, body string, kind AnnotationKind, resolved bool) error
	// UpdateAnchor commits a re-resolved position: the new line range and
	// the replacement anchor. Called only after a successful resolution so
	// a failed one can never corrupt a previously good anchor.
	UpdateAnchor(ctx context.Context, id string, line, endLine int, anchor Anchor) error
	Delete(ctx context.Context, id string) error
	ListByFile(ctx context.Context, path string) ([]*Annotation, error)
	ListAll(ctx context.Context) ([]*Annotation, error)
	// Clear removes every annotation for the repository and reports how
	// many were removed.
	Clear(ctx context.Context) (int, error)
}
