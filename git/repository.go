// Package git implements the repository accessor and diff provider by
// shelling out to the git binary. Going through the git command rather
// than an object-model library keeps custom diff drivers, attributes and
// index handling exactly as git does them.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/fwojciec/differ"
)

// Compile-time interface verification.
var (
	_ differ.Repository   = (*Repository)(nil)
	_ differ.DiffProvider = (*Repository)(nil)
)

// Repository accesses one git worktree. All index/worktree mutations and
// read-for-diff operations are serialized under a single mutex: applying
// concurrent patches against the same index is unsafe, and a diff taken
// mid-mutation would be torn.
type Repository struct {
	mu           sync.Mutex
	root         string
	td           differ.TextDiffer
	contextLines int
}

// Discover locates the repository containing dir and returns a Repository
// rooted at its worktree. The text differ synthesizes diffs for untracked
// files, which git diff does not emit. Returns ErrNotFound when dir is
// not inside a git repository.
func Discover(ctx context.Context, dir string, td differ.TextDiffer, contextLines int) (*Repository, error) {
	out, err := runGit(ctx, dir, nil, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, differ.OpError("discover", dir, fmt.Errorf("not in a git repository: %w", differ.ErrNotFound))
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return nil, differ.OpError("discover", dir, differ.ErrNotFound)
	}
	return &Repository{root: root, td: td, contextLines: contextLines}, nil
}

// Root returns the absolute worktree root.
func (r *Repository) Root() string { return r.root }

// Resolve turns a revision reference into a handle. The worktree and
// index references resolve to live handles with no object id.
func (r *Repository) Resolve(ctx context.Context, ref string) (differ.RevisionHandle, error) {
	switch ref {
	case differ.RevWorktree, differ.RevIndex:
		return differ.RevisionHandle{Ref: ref, Live: true}, nil
	}
	out, err := r.run(ctx, nil, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return differ.RevisionHandle{}, differ.OpError("resolve", ref, differ.ErrNotFound)
	}
	return differ.RevisionHandle{Ref: ref, ID: strings.TrimSpace(string(out))}, nil
}

// ReadFile returns path's content at the given revision.
func (r *Repository) ReadFile(ctx context.Context, h differ.RevisionHandle, path string) ([]byte, error) {
	if h.Live && h.Ref == differ.RevWorktree {
		data, err := os.ReadFile(filepath.Join(r.root, path))
		switch {
		case os.IsNotExist(err):
			return nil, differ.OpError("read", path, differ.ErrNotFound)
		case os.IsPermission(err):
			return nil, differ.OpError("read", path, differ.ErrAccessDenied)
		case err != nil:
			return nil, differ.OpError("read", path, err)
		}
		return data, nil
	}

	spec := ":" + path // index
	if !h.Live {
		spec = h.ID + ":" + path
	}
	out, err := r.run(ctx, nil, "show", spec)
	if err != nil {
		if isMissingPath(err) {
			return nil, differ.OpError("read", path, differ.ErrNotFound)
		}
		return nil, differ.OpError("read", path, err)
	}
	return out, nil
}

// ChangedPaths enumerates paths differing between two handles, optionally
// restricted by path filters.
func (r *Repository) ChangedPaths(ctx context.Context, a, b differ.RevisionHandle, pathFilter []string) ([]string, error) {
	args := []string{"diff", "--name-only", "--no-color"}
	switch {
	case a.Ref == differ.RevIndex && b.Ref == differ.RevWorktree:
		// default form
	case b.Ref == differ.RevIndex && !a.Live:
		args = append(args, "--cached", a.ID)
	case b.Ref == differ.RevWorktree && !a.Live:
		args = append(args, a.ID)
	case !a.Live && !b.Live:
		args = append(args, a.ID, b.ID)
	default:
		return nil, differ.OpError("changed-paths", "", fmt.Errorf("unsupported handle pair %q..%q", a.Ref, b.Ref))
	}
	if len(pathFilter) > 0 {
		args = append(args, "--")
		args = append(args, pathFilter...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.run(ctx, nil, args...)
	if err != nil {
		return nil, differ.OpError("changed-paths", "", err)
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// DiffRange computes the diff for a revision range, optionally restricted
// to paths. One git invocation produces the whole diff; parsing is done
// with go-gitdiff.
func (r *Repository) DiffRange(ctx context.Context, rng differ.Range, paths []string) (*differ.Diff, error) {
	args := []string{"diff", "--no-color", fmt.Sprintf("-U%d", r.contextLines), "--find-renames", "--find-copies"}
	switch rng.Mode {
	case differ.RangeUnstaged:
	case differ.RangeStaged:
		args = append(args, "--staged")
	case differ.RangeWorktree:
		args = append(args, rng.From)
	case differ.RangeCommits:
		args = append(args, rng.From+".."+rng.To)
	case differ.RangeMergeBase:
		args = append(args, rng.From+"..."+rng.To)
	}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.run(ctx, nil, args...)
	if err != nil {
		if isUnknownRevision(err) {
			return nil, differ.OpError("diff", rng.From, differ.ErrNotFound)
		}
		return nil, differ.OpError("diff", "", err)
	}

	files, _, err := gitdiff.Parse(bytes.NewReader(out))
	if err != nil {
		return nil, differ.OpError("diff", "", fmt.Errorf("parse git output: %w", err))
	}

	d := &differ.Diff{}
	for _, f := range files {
		d.Files = append(d.Files, convertFile(f))
	}

	// git diff never emits untracked files; synthesize added-file diffs
	// for them when the worktree is one side of the range.
	if rng.Mode == differ.RangeUnstaged || rng.Mode == differ.RangeWorktree {
		untracked, err := r.untrackedFiles(ctx, paths)
		if err != nil {
			return nil, err
		}
		d.Files = append(d.Files, untracked...)
	}
	return d, nil
}

// untrackedFiles builds an added-file diff for every untracked,
// non-ignored path. Callers must hold r.mu.
func (r *Repository) untrackedFiles(ctx context.Context, paths []string) ([]differ.FileDiff, error) {
	if r.td == nil {
		return nil, nil
	}
	args := []string{"ls-files", "--others", "--exclude-standard"}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := r.run(ctx, nil, args...)
	if err != nil {
		return nil, differ.OpError("diff", "", err)
	}

	var files []differ.FileDiff
	for _, path := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if path == "" {
			continue
		}
		fd := differ.FileDiff{NewPath: path, Op: differ.FileAdded}
		data, err := os.ReadFile(filepath.Join(r.root, path))
		if err != nil {
			continue // raced with a delete
		}
		if differ.IsBinaryText(data) {
			fd.IsBinary = true
		} else {
			hunks, err := r.td.Diff("", string(data), r.contextLines)
			if err != nil {
				return nil, differ.OpError("diff", path, err)
			}
			fd.Hunks = hunks
		}
		files = append(files, fd)
	}
	return files, nil
}

// convertFile maps a parsed gitdiff file onto the domain type.
func convertFile(f *gitdiff.File) differ.FileDiff {
	fd := differ.FileDiff{
		OldPath:  f.OldName,
		NewPath:  f.NewName,
		IsBinary: f.IsBinary,
	}
	switch {
	case f.IsNew:
		fd.Op = differ.FileAdded
		fd.OldPath = ""
	case f.IsDelete:
		fd.Op = differ.FileDeleted
		fd.NewPath = ""
	case f.IsCopy:
		fd.Op = differ.FileCopied
	case f.IsRename:
		fd.Op = differ.FileRenamed
	}
	for _, frag := range f.TextFragments {
		h := differ.Hunk{
			OldStart: int(frag.OldPosition),
			OldCount: int(frag.OldLines),
			NewStart: int(frag.NewPosition),
			NewCount: int(frag.NewLines),
			Section:  frag.Comment,
		}
		oldNum, newNum := int(frag.OldPosition), int(frag.NewPosition)
		for _, l := range frag.Lines {
			content := strings.TrimSuffix(l.Line, "\n")
			switch l.Op {
			case gitdiff.OpContext:
				h.Lines = append(h.Lines, differ.Line{
					Kind: differ.LineContext, Content: content,
					OldLineNum: oldNum, NewLineNum: newNum,
					NoEOL: l.NoEOL(),
				})
				oldNum++
				newNum++
			case gitdiff.OpDelete:
				h.Lines = append(h.Lines, differ.Line{
					Kind: differ.LineRemoved, Content: content,
					OldLineNum: oldNum,
					NoEOL:      l.NoEOL(),
				})
				oldNum++
			case gitdiff.OpAdd:
				h.Lines = append(h.Lines, differ.Line{
					Kind: differ.LineAdded, Content: content,
					NewLineNum: newNum,
					NoEOL:      l.NoEOL(),
				})
				newNum++
			}
		}
		fd.Hunks = append(fd.Hunks, h)
	}
	return fd
}

// StageHunk applies the hunk's patch to the index.
func (r *Repository) StageHunk(ctx context.Context, path string, h differ.Hunk) error {
	return r.apply(ctx, "stage", path, h, false, "--cached")
}

// UnstageHunk reverts the hunk's patch from the index only; the worktree
// is untouched.
func (r *Repository) UnstageHunk(ctx context.Context, path string, h differ.Hunk) error {
	return r.apply(ctx, "unstage", path, h, true, "--cached")
}

// DiscardHunk reverts the hunk's patch from the worktree.
func (r *Repository) DiscardHunk(ctx context.Context, path string, h differ.Hunk) error {
	return r.apply(ctx, "discard", path, h, true)
}

// apply builds a one-hunk patch and runs git apply. The patch is checked
// against the target first so a stale hunk fails cleanly with ErrConflict
// before anything is modified; git apply itself verifies the whole patch
// before writing, so a passing check is applied atomically.
func (r *Repository) apply(ctx context.Context, op, path string, h differ.Hunk, reverse bool, extra ...string) error {
	patch := FormatHunkPatch(path, h)

	args := []string{"apply", "--whitespace=nowarn"}
	args = append(args, extra...)
	if reverse {
		args = append(args, "--reverse")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	check := append(append([]string(nil), args...), "--check", "-")
	if _, err := r.run(ctx, strings.NewReader(patch), check...); err != nil {
		return classifyApplyError(op, path, err)
	}
	if _, err := r.run(ctx, strings.NewReader(patch), append(args, "-")...); err != nil {
		return classifyApplyError(op, path, err)
	}
	return nil
}

// FormatHunkPatch renders a minimal unified patch containing exactly one
// hunk, suitable for git apply.
func FormatHunkPatch(path string, h differ.Hunk) string {
	var b strings.Builder
	oldFile, newFile := "a/"+path, "b/"+path
	if h.OldCount == 0 && h.OldStart == 0 {
		oldFile = "/dev/null"
	}
	if h.NewCount == 0 && h.NewStart == 0 {
		newFile = "/dev/null"
	}
	fmt.Fprintf(&b, "--- %s\n", oldFile)
	fmt.Fprintf(&b, "+++ %s\n", newFile)
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	for _, l := range h.Lines {
		switch l.Kind {
		case differ.LineContext:
			b.WriteString(" ")
		case differ.LineAdded:
			b.WriteString("+")
		case differ.LineRemoved:
			b.WriteString("-")
		}
		b.WriteString(l.Content)
		b.WriteString("\n")
		if l.NoEOL {
			b.WriteString("\\ No newline at end of file\n")
		}
	}
	return b.String()
}

// run executes git -C root with the given args.
func (r *Repository) run(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	return runGit(ctx, r.root, stdin, args...)
}

func runGit(ctx context.Context, dir string, stdin io.Reader, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, &gitError{args: args, msg: msg}
	}
	return stdout.Bytes(), nil
}

// gitError carries git's stderr so callers can classify failures.
type gitError struct {
	args []string
	msg  string
}

func (e *gitError) Error() string {
	return fmt.Sprintf("git %s: %s", strings.Join(e.args, " "), e.msg)
}

func isMissingPath(err error) bool {
	var ge *gitError
	if !errors.As(err, &ge) {
		return false
	}
	return strings.Contains(ge.msg, "does not exist") ||
		strings.Contains(ge.msg, "exists on disk, but not in") ||
		strings.Contains(ge.msg, "is in the index, but not at")
}

func isUnknownRevision(err error) bool {
	var ge *gitError
	if !errors.As(err, &ge) {
		return false
	}
	return strings.Contains(ge.msg, "unknown revision") ||
		strings.Contains(ge.msg, "bad revision")
}

func classifyApplyError(op, path string, err error) error {
	var ge *gitError
	if errors.As(err, &ge) {
		if strings.Contains(ge.msg, "patch does not apply") ||
			strings.Contains(ge.msg, "patch failed") ||
			strings.Contains(ge.msg, "does not match index") {
			return differ.OpError(op, path, fmt.Errorf("%s: %w", ge.msg, differ.ErrConflict))
		}
	}
	return differ.OpError(op, path, err)
}
