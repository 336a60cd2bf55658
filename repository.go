package differ

import "context"

// Revision names the two live references. Anything else passed to
// Repository.Resolve is interpreted by the backing repository (a commit
// sha, branch, tag, HEAD~2, ...).
const (
	RevWorktree = "WORKTREE"
	RevIndex    = "INDEX"
)

// RevisionHandle is a resolved revision reference. Historical handles are
// immutable; the worktree and index handles are live and can change
// between reads.
type RevisionHandle struct {
	Ref  string // as passed to Resolve
	ID   string // object id for historical revisions, empty for live refs
	Live bool
}

// Repository reads file contents and status for arbitrary revisions and
// applies hunk-scoped patches against the index or worktree. Side effects
// are confined to the two live references; historical revisions are
// read-only.
type Repository interface {
	// Root returns the absolute path of the repository worktree root.
	Root() string

	// Resolve turns a revision reference into a handle. Returns
	// ErrNotFound for unresolvable references.
	Resolve(ctx context.Context, ref string) (RevisionHandle, error)

	// ReadFile returns the content of path at the given revision.
	// Returns ErrNotFound when the path is absent in that revision.
	ReadFile(ctx context.Context, h RevisionHandle, path string) ([]byte, error)

	// ChangedPaths enumerates paths that differ between two handles,
	// optionally restricted by pathFilter prefixes.
	ChangedPaths(ctx context.Context, a, b RevisionHandle, pathFilter []string) ([]string, error)

	// StageHunk applies the hunk's patch to the index.
	StageHunk(ctx context.Context, path string, h Hunk) error

	// UnstageHunk reverts the hunk's patch from the index only.
	UnstageHunk(ctx context.Context, path string, h Hunk) error

	// DiscardHunk reverts the hunk's patch from the worktree.
	DiscardHunk(ctx context.Context, path string, h Hunk) error
}

// Watcher emits a signal whenever something under the watched tree
// changes. Bursts are coalesced by the reload coordinator, not here;
// implementations may pre-debounce but are not required to.
type Watcher interface {
	// Events returns the change signal channel. It is closed when the
	// watcher is closed.
	Events() <-chan struct{}

	// Close stops watching and releases resources.
	Close() error
}
