package differ

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// IsBinaryText reports whether content should be treated as binary: it
// contains a null byte or is not valid UTF-8. Binary files get a single
// pseudo-hunk with no line-level content.
func IsBinaryText(content []byte) bool {
	for _, b := range content {
		if b == 0 {
			return true
		}
	}
	return !utf8.Valid(content)
}

// ApplyHunks reconstructs the after text by replaying hunks onto before.
// Hunks must be ordered and non-overlapping. Returns ErrConflict when a
// context or removed line no longer matches before, which means the hunks
// were computed against different content.
func ApplyHunks(before string, hunks []Hunk) (string, error) {
	lines := SplitLines(before)
	var out []string
	cursor := 1 // next 1-based old line not yet consumed
	noEOL := false

	for _, h := range hunks {
		start := h.OldStart
		if h.OldCount == 0 {
			// Pure insertion: OldStart names the line after which the
			// insertion happens.
			start = h.OldStart + 1
		}
		if start < cursor || start-1 > len(lines) {
			return "", OpError("apply", "", fmt.Errorf("hunk at -%d,%d out of order: %w", h.OldStart, h.OldCount, ErrConflict))
		}
		out = append(out, lines[cursor-1:start-1]...)
		cursor = start

		for _, l := range h.Lines {
			switch l.Kind {
			case LineContext, LineRemoved:
				if cursor > len(lines) || lines[cursor-1] != l.Content {
					return "", OpError("apply", "", fmt.Errorf("line %d does not match: %w", cursor, ErrConflict))
				}
				if l.Kind == LineContext {
					out = append(out, l.Content)
					noEOL = l.NoEOL
				}
				cursor++
			case LineAdded:
				out = append(out, l.Content)
				noEOL = l.NoEOL
			}
		}
	}
	if tail := lines[cursor-1:]; len(tail) > 0 {
		out = append(out, tail...)
		noEOL = !strings.HasSuffix(before, "\n")
	}

	if len(out) == 0 {
		return "", nil
	}
	result := strings.Join(out, "\n")
	if !noEOL {
		result += "\n"
	}
	return result, nil
}
