// Package udiff implements line-level diffing on top of the go-udiff
// Myers implementation.
package udiff

import (
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/fwojciec/differ"
)

// Compile-time interface verification.
var _ differ.TextDiffer = (*Engine)(nil)

// Engine computes deterministic line diffs. It is stateless; output
// depends only on the inputs and the context setting.
type Engine struct{}

// NewEngine creates a new diff engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Diff returns the hunks describing the change from before to after.
// Runs of changes within contextLines of each other share a hunk; a gap
// wider than twice the context splits them. Equal inputs yield no hunks.
func (e *Engine) Diff(before, after string, contextLines int) ([]differ.Hunk, error) {
	if before == after {
		return nil, nil
	}
	edits := udiff.Strings(before, after)
	ud, err := udiff.ToUnifiedDiff("a", "b", before, edits, contextLines)
	if err != nil {
		return nil, fmt.Errorf("compute diff: %w", err)
	}

	hunks := make([]differ.Hunk, 0, len(ud.Hunks))
	for _, uh := range ud.Hunks {
		h := differ.Hunk{OldStart: uh.FromLine, NewStart: uh.ToLine}
		oldNum, newNum := uh.FromLine, uh.ToLine
		for _, ul := range uh.Lines {
			content := trimNewline(ul.Content)
			// A missing trailing newline only happens on the final line
			// of a file; go-udiff keeps the content bare in that case.
			noEOL := !strings.HasSuffix(ul.Content, "\n")
			switch ul.Kind {
			case udiff.Equal:
				h.Lines = append(h.Lines, differ.Line{
					Kind:       differ.LineContext,
					Content:    content,
					OldLineNum: oldNum,
					NewLineNum: newNum,
					NoEOL:      noEOL,
				})
				h.OldCount++
				h.NewCount++
				oldNum++
				newNum++
			case udiff.Delete:
				h.Lines = append(h.Lines, differ.Line{
					Kind:       differ.LineRemoved,
					Content:    content,
					OldLineNum: oldNum,
					NoEOL:      noEOL,
				})
				h.OldCount++
				oldNum++
			case udiff.Insert:
				h.Lines = append(h.Lines, differ.Line{
					Kind:       differ.LineAdded,
					Content:    content,
					NewLineNum: newNum,
					NoEOL:      noEOL,
				})
				h.NewCount++
				newNum++
			}
		}
		// Zero-count ranges follow the git convention: the start names
		// the line after which the change applies, not a consumed line.
		if h.OldCount == 0 {
			h.OldStart--
		}
		if h.NewCount == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
	}
	return hunks, nil
}

func trimNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}
