package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/differ"
	"github.com/fwojciec/differ/git"
	"github.com/fwojciec/differ/udiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepo creates a git repository with one committed file.
func testRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := t.TempDir()
	mustGit(t, dir, "init", "-q")
	mustGit(t, dir, "config", "user.email", "test@example.com")
	mustGit(t, dir, "config", "user.name", "test")

	writeFile(t, dir, "main.txt", "one\ntwo\nthree\nfour\nfive\n")
	mustGit(t, dir, "add", ".")
	mustGit(t, dir, "commit", "-q", "-m", "initial")

	repo, err := git.Discover(context.Background(), dir, udiff.NewEngine(), 3)
	require.NoError(t, err)
	return dir, repo
}

func mustGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func headID(t *testing.T, dir string) string {
	t.Helper()
	out, err := exec.Command("git", "-C", dir, "rev-parse", "HEAD").Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(out))
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	t.Run("finds the worktree root from a subdirectory", func(t *testing.T) {
		t.Parallel()
		dir, _ := testRepo(t)
		sub := filepath.Join(dir, "nested", "deeper")
		require.NoError(t, os.MkdirAll(sub, 0o755))

		repo, err := git.Discover(context.Background(), sub, udiff.NewEngine(), 3)
		require.NoError(t, err)
		// Resolve symlinks: macOS tempdirs live behind /private.
		wantRoot, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		gotRoot, err := filepath.EvalSymlinks(repo.Root())
		require.NoError(t, err)
		assert.Equal(t, wantRoot, gotRoot)
	})

	t.Run("outside a repository", func(t *testing.T) {
		t.Parallel()
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git binary not available")
		}
		_, err := git.Discover(context.Background(), t.TempDir(), udiff.NewEngine(), 3)
		assert.ErrorIs(t, err, differ.ErrNotFound)
	})
}

func TestRepository_Resolve(t *testing.T) {
	t.Parallel()

	dir, repo := testRepo(t)
	ctx := context.Background()

	t.Run("live references", func(t *testing.T) {
		t.Parallel()
		h, err := repo.Resolve(ctx, differ.RevWorktree)
		require.NoError(t, err)
		assert.True(t, h.Live)

		h, err = repo.Resolve(ctx, differ.RevIndex)
		require.NoError(t, err)
		assert.True(t, h.Live)
	})

	t.Run("commit reference", func(t *testing.T) {
		t.Parallel()
		h, err := repo.Resolve(ctx, "HEAD")
		require.NoError(t, err)
		assert.False(t, h.Live)
		assert.Equal(t, headID(t, dir), h.ID)
	})

	t.Run("unknown reference", func(t *testing.T) {
		t.Parallel()
		_, err := repo.Resolve(ctx, "no-such-branch")
		assert.ErrorIs(t, err, differ.ErrNotFound)
	})
}

func TestRepository_ReadFile(t *testing.T) {
	t.Parallel()

	dir, repo := testRepo(t)
	ctx := context.Background()

	// Modify the worktree without staging so the three states differ.
	writeFile(t, dir, "main.txt", "one\nCHANGED\nthree\nfour\nfive\n")

	t.Run("worktree", func(t *testing.T) {
		t.Parallel()
		wt, err := repo.Resolve(ctx, differ.RevWorktree)
		require.NoError(t, err)
		data, err := repo.ReadFile(ctx, wt, "main.txt")
		require.NoError(t, err)
		assert.Contains(t, string(data), "CHANGED")
	})

	t.Run("index holds the committed content", func(t *testing.T) {
		t.Parallel()
		idx, err := repo.Resolve(ctx, differ.RevIndex)
		require.NoError(t, err)
		data, err := repo.ReadFile(ctx, idx, "main.txt")
		require.NoError(t, err)
		assert.Contains(t, string(data), "two")
		assert.NotContains(t, string(data), "CHANGED")
	})

	t.Run("commit", func(t *testing.T) {
		t.Parallel()
		h, err := repo.Resolve(ctx, "HEAD")
		require.NoError(t, err)
		data, err := repo.ReadFile(ctx, h, "main.txt")
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\nthree\nfour\nfive\n", string(data))
	})

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()
		wt, err := repo.Resolve(ctx, differ.RevWorktree)
		require.NoError(t, err)
		_, err = repo.ReadFile(ctx, wt, "nope.txt")
		assert.ErrorIs(t, err, differ.ErrNotFound)

		h, err := repo.Resolve(ctx, "HEAD")
		require.NoError(t, err)
		_, err = repo.ReadFile(ctx, h, "nope.txt")
		assert.ErrorIs(t, err, differ.ErrNotFound)
	})
}

func TestRepository_DiffRange(t *testing.T) {
	t.Parallel()

	t.Run("unstaged modification", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		writeFile(t, dir, "main.txt", "one\nCHANGED\nthree\nfour\nfive\n")

		d, err := repo.DiffRange(context.Background(), differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		require.Len(t, d.Files, 1)

		fd := d.Files[0]
		assert.Equal(t, "main.txt", fd.Path())
		assert.Equal(t, differ.FileModified, fd.Op)
		require.Len(t, fd.Hunks, 1)

		var removed, added []string
		for _, l := range fd.Hunks[0].Lines {
			switch l.Kind {
			case differ.LineRemoved:
				removed = append(removed, l.Content)
			case differ.LineAdded:
				added = append(added, l.Content)
			}
		}
		assert.Equal(t, []string{"two"}, removed)
		assert.Equal(t, []string{"CHANGED"}, added)
	})

	t.Run("staged versus unstaged", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		writeFile(t, dir, "main.txt", "one\nSTAGED\nthree\nfour\nfive\n")
		mustGit(t, dir, "add", "main.txt")
		writeFile(t, dir, "main.txt", "one\nSTAGED\nthree\nfour\nWORKTREE\n")

		ctx := context.Background()
		staged, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeStaged}, nil)
		require.NoError(t, err)
		require.Len(t, staged.Files, 1)
		assert.Contains(t, hunkText(staged.Files[0]), "STAGED")
		assert.NotContains(t, hunkText(staged.Files[0]), "WORKTREE")

		unstaged, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		require.Len(t, unstaged.Files, 1)
		assert.Contains(t, hunkText(unstaged.Files[0]), "WORKTREE")
	})

	t.Run("commit range", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		first := headID(t, dir)
		writeFile(t, dir, "main.txt", "one\ntwo\nthree\nfour\nfive\nsix\n")
		mustGit(t, dir, "add", ".")
		mustGit(t, dir, "commit", "-q", "-m", "second")

		d, err := repo.DiffRange(context.Background(), differ.Range{
			Mode: differ.RangeCommits, From: first, To: "HEAD",
		}, nil)
		require.NoError(t, err)
		require.Len(t, d.Files, 1)
		assert.Contains(t, hunkText(d.Files[0]), "six")
	})

	t.Run("untracked files appear as added", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		writeFile(t, dir, "brand-new.txt", "alpha\nbeta\n")

		d, err := repo.DiffRange(context.Background(), differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		require.Len(t, d.Files, 1)

		fd := d.Files[0]
		assert.Equal(t, "brand-new.txt", fd.Path())
		assert.Equal(t, differ.FileAdded, fd.Op)
		require.Len(t, fd.Hunks, 1)
		assert.Equal(t, 0, fd.Hunks[0].OldCount)
		assert.Equal(t, 2, fd.Hunks[0].NewCount)
	})

	t.Run("path filter", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		writeFile(t, dir, "other.txt", "content\n")
		mustGit(t, dir, "add", "other.txt")
		mustGit(t, dir, "commit", "-q", "-m", "add other")
		writeFile(t, dir, "main.txt", "one\nX\nthree\nfour\nfive\n")
		writeFile(t, dir, "other.txt", "changed\n")

		d, err := repo.DiffRange(context.Background(), differ.Range{Mode: differ.RangeUnstaged}, []string{"main.txt"})
		require.NoError(t, err)
		require.Len(t, d.Files, 1)
		assert.Equal(t, "main.txt", d.Files[0].Path())
	})

	t.Run("unknown revision", func(t *testing.T) {
		t.Parallel()
		_, repo := testRepo(t)
		_, err := repo.DiffRange(context.Background(), differ.Range{
			Mode: differ.RangeCommits, From: "nope", To: "HEAD",
		}, nil)
		assert.ErrorIs(t, err, differ.ErrNotFound)
	})
}

func hunkText(fd differ.FileDiff) string {
	var b strings.Builder
	for _, h := range fd.Hunks {
		for _, l := range h.Lines {
			b.WriteString(l.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func TestRepository_Staging(t *testing.T) {
	t.Parallel()

	t.Run("stage then unstage a hunk", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		ctx := context.Background()
		writeFile(t, dir, "main.txt", "one\nCHANGED\nthree\nfour\nfive\n")

		d, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		require.Len(t, d.Files, 1)
		hunk := d.Files[0].Hunks[0]

		require.NoError(t, repo.StageHunk(ctx, "main.txt", hunk))

		staged, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeStaged}, nil)
		require.NoError(t, err)
		require.Len(t, staged.Files, 1, "the hunk moved to the staged range")

		unstaged, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		assert.Empty(t, unstaged.Files, "nothing left unstaged")

		require.NoError(t, repo.UnstageHunk(ctx, "main.txt", hunk))

		unstaged, err = repo.DiffRange(ctx, differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		require.Len(t, unstaged.Files, 1, "the hunk is back")
	})

	t.Run("discard reverts the worktree", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		ctx := context.Background()
		writeFile(t, dir, "main.txt", "one\nCHANGED\nthree\nfour\nfive\n")

		d, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		hunk := d.Files[0].Hunks[0]

		require.NoError(t, repo.DiscardHunk(ctx, "main.txt", hunk))

		data, err := os.ReadFile(filepath.Join(dir, "main.txt"))
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\nthree\nfour\nfive\n", string(data))
	})

	t.Run("stage a file missing its trailing newline", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		ctx := context.Background()
		writeFile(t, dir, "noeol.txt", "one\ntwo\nlast")
		mustGit(t, dir, "add", "noeol.txt")
		mustGit(t, dir, "commit", "-q", "-m", "noeol")
		writeFile(t, dir, "noeol.txt", "one\ntwo\nCHANGED")

		d, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		require.Len(t, d.Files, 1)
		hunk := d.Files[0].Hunks[0]

		removed := hunk.Lines[len(hunk.Lines)-2]
		added := hunk.Lines[len(hunk.Lines)-1]
		assert.True(t, removed.NoEOL, "old final line carries the marker")
		assert.True(t, added.NoEOL, "new final line carries the marker")

		require.NoError(t, repo.StageHunk(ctx, "noeol.txt", hunk))

		staged, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeStaged}, nil)
		require.NoError(t, err)
		require.Len(t, staged.Files, 1)

		unstaged, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		assert.Empty(t, unstaged.Files)
	})

	t.Run("discard a file missing its trailing newline", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		ctx := context.Background()
		writeFile(t, dir, "noeol.txt", "one\ntwo\nlast")
		mustGit(t, dir, "add", "noeol.txt")
		mustGit(t, dir, "commit", "-q", "-m", "noeol")
		writeFile(t, dir, "noeol.txt", "one\ntwo\nCHANGED")

		d, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		hunk := d.Files[0].Hunks[0]

		require.NoError(t, repo.DiscardHunk(ctx, "noeol.txt", hunk))

		data, err := os.ReadFile(filepath.Join(dir, "noeol.txt"))
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\nlast", string(data))
	})

	t.Run("stale hunk conflicts and mutates nothing", func(t *testing.T) {
		t.Parallel()
		dir, repo := testRepo(t)
		ctx := context.Background()
		writeFile(t, dir, "main.txt", "one\nCHANGED\nthree\nfour\nfive\n")

		d, err := repo.DiffRange(ctx, differ.Range{Mode: differ.RangeUnstaged}, nil)
		require.NoError(t, err)
		hunk := d.Files[0].Hunks[0]

		// The worktree moves on before the hunk is applied.
		current := "one\nDIFFERENT\nthree\nfour\nfive\n"
		writeFile(t, dir, "main.txt", current)

		err = repo.DiscardHunk(ctx, "main.txt", hunk)
		assert.ErrorIs(t, err, differ.ErrConflict)

		data, err := os.ReadFile(filepath.Join(dir, "main.txt"))
		require.NoError(t, err)
		assert.Equal(t, current, string(data), "worktree untouched after conflict")
	})
}

func TestFormatHunkPatch(t *testing.T) {
	t.Parallel()

	t.Run("modification", func(t *testing.T) {
		t.Parallel()
		h := differ.Hunk{
			OldStart: 1, OldCount: 3, NewStart: 1, NewCount: 3,
			Lines: []differ.Line{
				{Kind: differ.LineContext, Content: "one"},
				{Kind: differ.LineRemoved, Content: "two"},
				{Kind: differ.LineAdded, Content: "CHANGED"},
				{Kind: differ.LineContext, Content: "three"},
			},
		}
		patch := git.FormatHunkPatch("main.txt", h)
		assert.Equal(t, "--- a/main.txt\n+++ b/main.txt\n@@ -1,3 +1,3 @@\n one\n-two\n+CHANGED\n three\n", patch)
	})

	t.Run("no newline marker follows the affected lines", func(t *testing.T) {
		t.Parallel()
		h := differ.Hunk{
			OldStart: 1, OldCount: 2, NewStart: 1, NewCount: 2,
			Lines: []differ.Line{
				{Kind: differ.LineContext, Content: "one"},
				{Kind: differ.LineRemoved, Content: "last", NoEOL: true},
				{Kind: differ.LineAdded, Content: "CHANGED", NoEOL: true},
			},
		}
		patch := git.FormatHunkPatch("main.txt", h)
		assert.Equal(t,
			"--- a/main.txt\n+++ b/main.txt\n@@ -1,2 +1,2 @@\n one\n"+
				"-last\n\\ No newline at end of file\n"+
				"+CHANGED\n\\ No newline at end of file\n",
			patch)
	})

	t.Run("new file uses dev null", func(t *testing.T) {
		t.Parallel()
		h := differ.Hunk{
			OldStart: 0, OldCount: 0, NewStart: 1, NewCount: 1,
			Lines: []differ.Line{
				{Kind: differ.LineAdded, Content: "hello"},
			},
		}
		patch := git.FormatHunkPatch("new.txt", h)
		assert.Contains(t, patch, "--- /dev/null\n")
		assert.Contains(t, patch, "+++ b/new.txt\n")
	})
}

func TestRepository_ChangedPaths(t *testing.T) {
	t.Parallel()

	dir, repo := testRepo(t)
	ctx := context.Background()
	writeFile(t, dir, "main.txt", "one\nX\nthree\nfour\nfive\n")

	idx, err := repo.Resolve(ctx, differ.RevIndex)
	require.NoError(t, err)
	wt, err := repo.Resolve(ctx, differ.RevWorktree)
	require.NoError(t, err)

	paths, err := repo.ChangedPaths(ctx, idx, wt, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.txt"}, paths)
}
