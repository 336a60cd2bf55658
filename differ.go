// Package differ provides domain types for computing diffs and anchoring
// persistent annotations to positions that survive edits.
package differ

import "context"

// Diff represents a complete diff containing one or more file changes.
type Diff struct {
	Files []FileDiff
}

// FileDiff represents changes to a single file.
type FileDiff struct {
	OldPath  string // empty for new files
	NewPath  string // empty for deleted files
	Op       FileOp // Added, Deleted, Modified, Renamed, Copied
	IsBinary bool   // Binary files have no hunks
	Hunks    []Hunk
}

// Path returns the best display path for the file: the new path when the
// file still exists, the old path otherwise.
func (f FileDiff) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// FileOp represents the type of operation performed on a file.
type FileOp int

// File operation types.
const (
	FileModified FileOp = iota
	FileAdded
	FileDeleted
	FileRenamed
	FileCopied
)

// Hunk represents a contiguous block of changes within a file.
//
// Hunks within a FileDiff are ordered by ascending NewStart and never
// overlap in either the old or the new line ranges.
type Hunk struct {
	OldStart int // 1-based first line in the old text
	OldCount int
	NewStart int // 1-based first line in the new text
	NewCount int
	Section  string // optional function name after @@ ... @@
	Lines    []Line
}

// Line represents a single line within a hunk.
type Line struct {
	Kind       LineKind
	Content    string
	OldLineNum int  // 0 if line is Added
	NewLineNum int  // 0 if line is Removed
	NoEOL      bool // last line of its file, missing the trailing newline
}

// LineKind represents the type of a diff line.
type LineKind int

// Line kinds.
const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// RangeMode selects what a diff compares.
type RangeMode int

// Range modes, mirroring git diff's revision forms.
const (
	RangeUnstaged  RangeMode = iota // worktree vs index
	RangeStaged                     // index vs HEAD
	RangeWorktree                   // worktree vs a revision
	RangeCommits                    // two revisions
	RangeMergeBase                  // merge-base of two revisions vs the second
)

// Range identifies the two states a diff compares. From and To are
// revision references; they are unused for Unstaged and Staged, and To is
// unused for Worktree.
type Range struct {
	Mode RangeMode
	From string
	To   string
}

// Live reports whether the range involves the worktree or the index, the
// two references that can change between queries.
func (r Range) Live() bool {
	return r.Mode == RangeUnstaged || r.Mode == RangeStaged || r.Mode == RangeWorktree
}

// TextDiffer computes a line-level diff between two texts. Output depends
// only on the inputs and contextLines; implementations must be
// deterministic.
type TextDiffer interface {
	// Diff returns the hunks describing the change from before to after,
	// grouped with the given number of context lines. A nil slice means
	// the texts are equal.
	Diff(before, after string, contextLines int) ([]Hunk, error)
}

// DiffProvider computes the diff for a revision range, optionally
// restricted to the given paths.
type DiffProvider interface {
	DiffRange(ctx context.Context, rng Range, paths []string) (*Diff, error)
}
