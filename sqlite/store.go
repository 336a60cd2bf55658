// Package sqlite persists annotations in a local SQLite database using
// the pure-Go modernc driver. Repositories are stored by a hash of their
// root path so the database carries no absolute paths.
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/differ"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Compile-time interface verification.
var _ differ.AnnotationStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS repos (
	id INTEGER PRIMARY KEY,
	repo_hash TEXT NOT NULL UNIQUE,
	display_name TEXT
);

CREATE TABLE IF NOT EXISTS annotations (
	id TEXT PRIMARY KEY,
	repo_id INTEGER NOT NULL REFERENCES repos(id),
	file_path TEXT NOT NULL,
	side TEXT NOT NULL DEFAULT 'new',
	kind TEXT NOT NULL DEFAULT 'comment' CHECK (kind IN ('comment', 'todo')),
	body TEXT NOT NULL,
	line INTEGER NOT NULL CHECK (line > 0),
	end_line INTEGER NOT NULL DEFAULT 0,
	anchor_line INTEGER NOT NULL DEFAULT 0,
	anchor_text TEXT NOT NULL DEFAULT '',
	ctx_before TEXT NOT NULL DEFAULT '',
	ctx_after TEXT NOT NULL DEFAULT '',
	resolved INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_repo_file ON annotations(repo_id, file_path);
`

// Store is an annotation store bound to one repository.
type Store struct {
	db     *sql.DB
	repoID int64
}

// Open opens or creates the database at path and binds the store to the
// repository rooted at repoRoot. A database that exists but cannot be
// read or migrated is reported as ErrCorrupt so the caller can degrade to
// an empty annotation set instead of refusing to run.
func Open(ctx context.Context, path, repoRoot, displayName string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, differ.OpError("open", path, err)
	}
	// WAL allows the TUI to read while a CLI invocation writes.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=30000;"); err != nil {
		db.Close()
		return nil, corrupt(path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, corrupt(path, err)
	}

	repoID, err := getOrCreateRepo(ctx, db, HashRepoPath(repoRoot), displayName)
	if err != nil {
		db.Close()
		return nil, corrupt(path, err)
	}
	return &Store{db: db, repoID: repoID}, nil
}

func corrupt(path string, err error) error {
	return differ.OpError("open", path, fmt.Errorf("%v: %w", err, differ.ErrCorrupt))
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// HashRepoPath returns the identity hash for a repository root path.
func HashRepoPath(root string) string {
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:])
}

func getOrCreateRepo(ctx context.Context, db *sql.DB, hash, displayName string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, "SELECT id FROM repos WHERE repo_hash = ?", hash).Scan(&id)
	switch {
	case err == nil:
		if displayName != "" {
			_, err = db.ExecContext(ctx, "UPDATE repos SET display_name = ? WHERE id = ?", displayName, id)
		}
		return id, err
	case errors.Is(err, sql.ErrNoRows):
		res, err := db.ExecContext(ctx,
			"INSERT INTO repos (repo_hash, display_name) VALUES (?, ?)", hash, displayName)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	default:
		return 0, err
	}
}

// Create inserts a new annotation.
func (s *Store) Create(ctx context.Context, a *differ.Annotation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annotations (
			id, repo_id, file_path, side, kind, body, line, end_line,
			anchor_line, anchor_text, ctx_before, ctx_after, resolved, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, s.repoID, a.FilePath, a.Side.String(), a.Kind.String(), a.Body,
		a.Line, a.EndLine,
		a.Anchor.Line, a.Anchor.Text,
		joinContext(a.Anchor.Before), joinContext(a.Anchor.After),
		boolToInt(a.Resolved), a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return differ.OpError("create", a.FilePath, err)
	}
	return nil
}

// Get returns the annotation with the given id.
func (s *Store) Get(ctx context.Context, id string) (*differ.Annotation, error) {
	row := s.db.QueryRowContext(ctx, selectCols+" WHERE repo_id = ? AND id = ?", s.repoID, id)
	a, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, differ.OpError("get", id, differ.ErrNotFound)
	}
	if err != nil {
		return nil, differ.OpError("get", id, err)
	}
	return a, nil
}

// Update replaces the annotation's body, kind and resolved flag.
func (s *Store) Update(ctx context.Context, id string, body string, kind differ.AnnotationKind, resolved bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE annotations SET body = ?, kind = ?, resolved = ? WHERE repo_id = ? AND id = ?",
		body, kind.String(), boolToInt(resolved), s.repoID, id)
	return checkUpdated("update", id, res, err)
}

// UpdateAnchor commits a re-resolved position for one annotation.
func (s *Store) UpdateAnchor(ctx context.Context, id string, line, endLine int, anchor differ.Anchor) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE annotations
		SET line = ?, end_line = ?, anchor_line = ?, anchor_text = ?, ctx_before = ?, ctx_after = ?
		WHERE repo_id = ? AND id = ?`,
		line, endLine, anchor.Line, anchor.Text,
		joinContext(anchor.Before), joinContext(anchor.After),
		s.repoID, id)
	return checkUpdated("update-anchor", id, res, err)
}

// Delete removes the annotation with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM annotations WHERE repo_id = ? AND id = ?", s.repoID, id)
	return checkUpdated("delete", id, res, err)
}

// ListByFile returns the annotations on one path, ordered by line.
func (s *Store) ListByFile(ctx context.Context, path string) ([]*differ.Annotation, error) {
	return s.list(ctx, selectCols+" WHERE repo_id = ? AND file_path = ? ORDER BY line", s.repoID, path)
}

// ListAll returns every annotation for the repository, ordered by file
// then line.
func (s *Store) ListAll(ctx context.Context) ([]*differ.Annotation, error) {
	return s.list(ctx, selectCols+" WHERE repo_id = ? ORDER BY file_path, line", s.repoID)
}

// Clear removes all annotations for the repository.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM annotations WHERE repo_id = ?", s.repoID)
	if err != nil {
		return 0, differ.OpError("clear", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, differ.OpError("clear", "", err)
	}
	return int(n), nil
}

const selectCols = `
	SELECT id, file_path, side, kind, body, line, end_line,
	       anchor_line, anchor_text, ctx_before, ctx_after, resolved, created_at
	FROM annotations`

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*differ.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, differ.OpError("list", "", err)
	}
	defer rows.Close()

	var out []*differ.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, differ.OpError("list", "", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, differ.OpError("list", "", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row scanner) (*differ.Annotation, error) {
	var (
		a                  differ.Annotation
		side, kind, before string
		after, createdAt   string
		resolved           int
	)
	err := row.Scan(&a.ID, &a.FilePath, &side, &kind, &a.Body, &a.Line, &a.EndLine,
		&a.Anchor.Line, &a.Anchor.Text, &before, &after, &resolved, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Side, _ = differ.ParseSide(side)
	a.Kind, _ = differ.ParseAnnotationKind(kind)
	a.Anchor.Before = splitContext(before)
	a.Anchor.After = splitContext(after)
	a.Resolved = resolved != 0
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func checkUpdated(op, id string, res sql.Result, err error) error {
	if err != nil {
		return differ.OpError(op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return differ.OpError(op, id, err)
	}
	if n == 0 {
		return differ.OpError(op, id, differ.ErrNotFound)
	}
	return nil
}

// Context lines are stored JSON-encoded so every slice round-trips, the
// single empty line included.
func joinContext(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	b, _ := json.Marshal(lines)
	return string(b)
}

func splitContext(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	if err := json.Unmarshal([]byte(s), &lines); err != nil {
		return nil
	}
	return lines
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
