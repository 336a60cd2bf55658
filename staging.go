package differ

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// HunkState is the staging state of one hunk. PartiallyStaged does not
// appear: git apply works at hunk granularity here, so a hunk is either
// in the index or it is not.
type HunkState int

// Hunk states. Discarded is terminal; the hunk no longer exists after the
// worktree change is reverted.
const (
	HunkUnstaged HunkState = iota
	HunkStaged
	HunkDiscarded
)

// String returns a display name for the state.
func (s HunkState) String() string {
	switch s {
	case HunkStaged:
		return "staged"
	case HunkDiscarded:
		return "discarded"
	}
	return "unstaged"
}

// Stager drives the per-hunk staging state machine. Each transition
// either fully applies or leaves everything unchanged: the repository
// verifies the patch against the target before mutating, and a Conflict
// (the target changed since the hunk was computed) propagates with state
// intact so the caller re-diffs before retrying.
//
// Hunk identity is content-addressed, so an edited hunk is a new hunk in
// its default Unstaged state.
//
// Safe for concurrent use: the reload loop resets state while the viewer
// reads and transitions it.
type Stager struct {
	repo Repository

	mu     sync.Mutex
	states map[string]HunkState
}

// NewStager creates a stager over the given repository.
func NewStager(repo Repository) *Stager {
	return &Stager{repo: repo, states: make(map[string]HunkState)}
}

// State returns the current state of a hunk.
func (s *Stager) State(path string, h Hunk) HunkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[hunkKey(path, h)]
}

// Stage applies the hunk's patch to the index. Valid only from Unstaged.
func (s *Stager) Stage(ctx context.Context, path string, h Hunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := hunkKey(path, h)
	if st := s.states[key]; st != HunkUnstaged {
		return OpError("stage", path, fmt.Errorf("hunk is %s: %w", st, ErrPreconditionFailed))
	}
	if err := s.repo.StageHunk(ctx, path, h); err != nil {
		return err
	}
	s.states[key] = HunkStaged
	return nil
}

// Unstage reverts the hunk's patch from the index only. Valid only from
// Staged.
func (s *Stager) Unstage(ctx context.Context, path string, h Hunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := hunkKey(path, h)
	if st := s.states[key]; st != HunkStaged {
		return OpError("unstage", path, fmt.Errorf("hunk is %s: %w", st, ErrPreconditionFailed))
	}
	if err := s.repo.UnstageHunk(ctx, path, h); err != nil {
		return err
	}
	s.states[key] = HunkUnstaged
	return nil
}

// Discard reverts the hunk's patch from the worktree. Forbidden on a
// Staged hunk: it must be unstaged first, never silently unstaged here.
func (s *Stager) Discard(ctx context.Context, path string, h Hunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := hunkKey(path, h)
	if st := s.states[key]; st != HunkUnstaged {
		return OpError("discard", path, fmt.Errorf("hunk is %s: %w", st, ErrPreconditionFailed))
	}
	if err := s.repo.DiscardHunk(ctx, path, h); err != nil {
		return err
	}
	s.states[key] = HunkDiscarded
	return nil
}

// Reset drops all recorded states. Called when a new snapshot replaces
// the hunks the states referred to.
func (s *Stager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]HunkState)
}

// hunkKey content-addresses a hunk within its file.
func hunkKey(path string, h Hunk) string {
	hash := fnv.New64a()
	for _, l := range h.Lines {
		fmt.Fprintf(hash, "%d:%t:%s\n", l.Kind, l.NoEOL, l.Content)
	}
	return fmt.Sprintf("%s@@-%d,%d+%d,%d#%x", path, h.OldStart, h.OldCount, h.NewStart, h.NewCount, hash.Sum64())
}
