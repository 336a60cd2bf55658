package differ

import (
	"sync"
	"time"
)

// ViewMode is the presentation axis: one column or two.
type ViewMode int

// View modes.
const (
	ViewUnified ViewMode = iota
	ViewSideBySide
)

// Snapshot is an immutable view of one diff computation: the file diffs
// plus every annotation re-resolved against the current content. The
// session swaps whole snapshots; nothing mutates one in place.
type Snapshot struct {
	Range       Range
	Files       []FileDiff
	Annotations map[string][]Resolved // keyed by file path
	Taken       time.Time
}

// Focus identifies the current cursor position within a snapshot.
type Focus struct {
	File int
	Hunk int
}

// PendingEdit is an annotation create/edit buffer. It is not committed to
// the store until the user confirms.
type PendingEdit struct {
	AnnotationID string // empty when creating
	FilePath     string
	Line         int
	Kind         AnnotationKind
	Body         string
}

// Session is the authoritative in-memory model consumed by the rendering
// layer: current snapshot, per-file expand/collapse, focus, view mode and
// the pending annotation edit. All methods are safe for concurrent use;
// the event loop processes one command at a time, but reloads swap
// snapshots from another goroutine.
type Session struct {
	mu       sync.Mutex
	snap     *Snapshot
	view     ViewMode
	expanded map[string]bool
	focus    Focus
	pending  *PendingEdit
	status   string
}

// NewSession creates a session with an empty snapshot. All files start
// collapsed; focus is on the first changed file.
func NewSession(cfg Config) *Session {
	view := ViewUnified
	if cfg.SideBySide {
		view = ViewSideBySide
	}
	return &Session{
		snap:     &Snapshot{Annotations: map[string][]Resolved{}},
		view:     view,
		expanded: make(map[string]bool),
	}
}

// Snapshot returns the current snapshot.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Swap atomically replaces the snapshot, preserving the cursor by
// re-locating the focused file by path and clamping the hunk index. When
// the focused file disappeared (e.g. fully staged away) focus falls back
// to the nearest earlier entry.
func (s *Session) Swap(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var focusedPath string
	if s.focus.File < len(s.snap.Files) {
		focusedPath = s.snap.Files[s.focus.File].Path()
	}
	prevFile := s.focus.File
	s.snap = snap

	s.focus.File = 0
	found := false
	for i, f := range snap.Files {
		if f.Path() == focusedPath {
			s.focus.File = i
			found = true
			break
		}
	}
	if !found && len(snap.Files) > 0 {
		if prevFile >= len(snap.Files) {
			prevFile = len(snap.Files) - 1
		}
		s.focus.File = prevFile
	}
	s.clampHunkLocked()
}

func (s *Session) clampHunkLocked() {
	if s.focus.File >= len(s.snap.Files) {
		s.focus = Focus{}
		return
	}
	n := len(s.snap.Files[s.focus.File].Hunks)
	if n == 0 {
		s.focus.Hunk = 0
	} else if s.focus.Hunk >= n {
		s.focus.Hunk = n - 1
	}
}

// Focus returns the current cursor position.
func (s *Session) Focus() Focus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// FocusedFile returns the file under the cursor.
func (s *Session) FocusedFile() (FileDiff, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus.File >= len(s.snap.Files) {
		return FileDiff{}, false
	}
	return s.snap.Files[s.focus.File], true
}

// FocusedHunk returns the hunk under the cursor.
func (s *Session) FocusedHunk() (Hunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus.File >= len(s.snap.Files) {
		return Hunk{}, false
	}
	hunks := s.snap.Files[s.focus.File].Hunks
	if s.focus.Hunk >= len(hunks) {
		return Hunk{}, false
	}
	return hunks[s.focus.Hunk], true
}

// NextFile moves focus to the next changed file.
func (s *Session) NextFile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus.File+1 < len(s.snap.Files) {
		s.focus.File++
		s.focus.Hunk = 0
	}
}

// PrevFile moves focus to the previous changed file.
func (s *Session) PrevFile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus.File > 0 {
		s.focus.File--
		s.focus.Hunk = 0
	}
}

// NextHunk moves focus to the next hunk, crossing file boundaries.
func (s *Session) NextHunk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus.File >= len(s.snap.Files) {
		return
	}
	if s.focus.Hunk+1 < len(s.snap.Files[s.focus.File].Hunks) {
		s.focus.Hunk++
		return
	}
	if s.focus.File+1 < len(s.snap.Files) {
		s.focus.File++
		s.focus.Hunk = 0
	}
}

// PrevHunk moves focus to the previous hunk, crossing file boundaries.
func (s *Session) PrevHunk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus.Hunk > 0 {
		s.focus.Hunk--
		return
	}
	if s.focus.File > 0 {
		s.focus.File--
		if n := len(s.snap.Files[s.focus.File].Hunks); n > 0 {
			s.focus.Hunk = n - 1
		} else {
			s.focus.Hunk = 0
		}
	}
}

// ToggleExpand flips the focused file between collapsed (hunks only) and
// expanded (full file) display.
func (s *Session) ToggleExpand() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus.File >= len(s.snap.Files) {
		return
	}
	path := s.snap.Files[s.focus.File].Path()
	s.expanded[path] = !s.expanded[path]
}

// Expanded reports whether the file at path is expanded.
func (s *Session) Expanded(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[path]
}

// ToggleView flips between unified and side-by-side display.
func (s *Session) ToggleView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == ViewUnified {
		s.view = ViewSideBySide
	} else {
		s.view = ViewUnified
	}
}

// View returns the current view mode.
func (s *Session) View() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// StartEdit opens the pending annotation edit buffer.
func (s *Session) StartEdit(pe PendingEdit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &pe
}

// Pending returns the current edit buffer, nil when none is open.
func (s *Session) Pending() *PendingEdit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	cp := *s.pending
	return &cp
}

// UpdatePending replaces the body of the open edit buffer.
func (s *Session) UpdatePending(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Body = body
	}
}

// ConfirmEdit closes the edit buffer and returns it for committing.
func (s *Session) ConfirmEdit() (PendingEdit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return PendingEdit{}, false
	}
	pe := *s.pending
	s.pending = nil
	return pe, true
}

// CancelEdit discards the edit buffer.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// SetStatus sets the status line message.
func (s *Session) SetStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = msg
}

// Status returns the status line message.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
