package differ

import (
	"hash/fnv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Fingerprint returns the content fingerprint of a line. Leading and
// trailing whitespace does not participate in identity, so pure
// re-indentation still matches.
func Fingerprint(line string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.TrimSpace(line)))
	return h.Sum64()
}

// BuildAnchor captures an anchor for the 1-based line lineNo of lines,
// recording up to k lines of context on each side. Returns a zero-text
// anchor when lineNo is out of range; such anchors resolve only by line
// number.
func BuildAnchor(lines []string, lineNo, k int) Anchor {
	a := Anchor{Line: lineNo}
	if lineNo < 1 || lineNo > len(lines) {
		return a
	}
	idx := lineNo - 1
	a.Text = lines[idx]
	start := idx - k
	if start < 0 {
		start = 0
	}
	a.Before = append([]string(nil), lines[start:idx]...)
	end := idx + 1 + k
	if end > len(lines) {
		end = len(lines)
	}
	a.After = append([]string(nil), lines[idx+1:end]...)
	return a
}

// LineDelta returns the net line-count change contributed by hunks that
// end strictly above oldLine, i.e. how far a line at oldLine in the old
// text is expected to have shifted in the new text.
func LineDelta(fd *FileDiff, oldLine int) int {
	if fd == nil {
		return 0
	}
	delta := 0
	for _, h := range fd.Hunks {
		if h.OldStart+h.OldCount <= oldLine {
			delta += h.NewCount - h.OldCount
		}
	}
	return delta
}

// Resolver re-resolves anchors against new versions of a file.
//
// Resolution is a two-phase search: an exact fingerprint match within a
// bounded window of the delta-adjusted expected line, then a
// context-similarity fallback scored by surrounding-line fingerprints plus
// normalized edit distance. Candidates below Threshold orphan the
// annotation rather than guessing.
type Resolver struct {
	Window    int     // ± lines searched around the expected line
	Context   int     // k context lines per side
	Threshold float64 // minimum fallback score

	dmp *diffmatchpatch.DiffMatchPatch
}

// NewResolver builds a resolver from config.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{
		Window:    cfg.AnchorWindow,
		Context:   cfg.AnchorContext,
		Threshold: cfg.AnchorThreshold,
		dmp:       diffmatchpatch.New(),
	}
}

// Resolve finds the best-matching 1-based line for the anchor in lines.
// delta shifts the expected line by the net line-count change observed
// since anchoring (see LineDelta). The second result reports an exact
// fingerprint match; ok is false when the anchor is orphaned.
func (r *Resolver) Resolve(a Anchor, lines []string, delta int) (line int, exact, ok bool) {
	if len(lines) == 0 || a.Text == "" && a.Line == 0 {
		return 0, false, false
	}
	expected := a.Line + delta
	if expected < 1 {
		expected = 1
	}
	if expected > len(lines) {
		expected = len(lines)
	}

	// A degraded anchor has no content to match. Its empty fingerprint
	// would snap to any blank line nearby, so it positions by line number
	// alone.
	if a.Text == "" {
		return expected, false, true
	}
	fp := Fingerprint(a.Text)

	// Exact match, nearest first so ties resolve by proximity.
	for _, idx := range r.windowOrder(expected, len(lines)) {
		if Fingerprint(lines[idx-1]) == fp {
			return idx, true, true
		}
	}

	// A unique exact match anywhere in the file survives arbitrarily
	// large shifts (e.g. a big block prepended above the anchor).
	unique := 0
	for i, l := range lines {
		if Fingerprint(l) == fp {
			if unique != 0 {
				unique = 0
				break
			}
			unique = i + 1
		}
	}
	if unique != 0 {
		return unique, true, true
	}

	// Context-similarity fallback within the window.
	best, bestScore := 0, -1.0
	for _, idx := range r.windowOrder(expected, len(lines)) {
		score := r.similarity(a.Text, lines[idx-1]) + r.contextBonus(a, lines, idx)
		if score > bestScore {
			best, bestScore = idx, score
		}
	}
	if best != 0 && bestScore >= r.Threshold {
		return best, false, true
	}
	return 0, false, false
}

// windowOrder yields 1-based line numbers around expected, nearest first:
// expected, expected-1, expected+1, ...
func (r *Resolver) windowOrder(expected, n int) []int {
	out := make([]int, 0, 2*r.Window+1)
	if expected >= 1 && expected <= n {
		out = append(out, expected)
	}
	for d := 1; d <= r.Window; d++ {
		if lo := expected - d; lo >= 1 && lo <= n {
			out = append(out, lo)
		}
		if hi := expected + d; hi >= 1 && hi <= n {
			out = append(out, hi)
		}
	}
	return out
}

// similarity returns 1 - normalized edit distance between two trimmed
// lines, in [0, 1].
func (r *Resolver) similarity(a, b string) float64 {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	diffs := r.dmp.DiffMain(a, b, false)
	dist := float64(r.dmp.DiffLevenshtein(diffs))
	max := float64(len([]rune(a)))
	if lb := float64(len([]rune(b))); lb > max {
		max = lb
	}
	return 1 - dist/max
}

// contextBonus scores how many of the anchor's recorded surrounding lines
// match the candidate's surroundings, 0.1 per matching fingerprint.
func (r *Resolver) contextBonus(a Anchor, lines []string, lineNo int) float64 {
	bonus := 0.0
	for i := 0; i < len(a.Before); i++ {
		// a.Before is ordered top-down; compare inside-out.
		ctx := a.Before[len(a.Before)-1-i]
		idx := lineNo - 2 - i
		if idx >= 0 && idx < len(lines) && Fingerprint(lines[idx]) == Fingerprint(ctx) {
			bonus += 0.1
		}
	}
	for i, ctx := range a.After {
		idx := lineNo + i
		if idx >= 0 && idx < len(lines) && Fingerprint(lines[idx]) == Fingerprint(ctx) {
			bonus += 0.1
		}
	}
	return bonus
}

// ResolveAll resolves every annotation on one file against the current
// text, preserving input order. fd, when non-nil, is the diff from the
// annotations' recorded version to the current text and supplies the
// expected-line adjustment. Orphaned annotations are reported, never
// dropped; their anchors stay unchanged so a reappearing line (e.g. after
// an undo) recovers them.
func (r *Resolver) ResolveAll(anns []*Annotation, current string, fd *FileDiff) []Resolved {
	lines := SplitLines(current)
	out := make([]Resolved, 0, len(anns))
	for _, a := range anns {
		if a.Side == SideOld {
			// Old-side annotations attach to removed code; their stored
			// line is relative to the old text and is reported as-is.
			out = append(out, Resolved{Annotation: a, Line: a.Line, Exact: true})
			continue
		}
		line, exact, ok := r.Resolve(a.Anchor, lines, LineDelta(fd, a.Anchor.Line))
		if !ok {
			out = append(out, Resolved{Annotation: a, Orphaned: true})
			continue
		}
		out = append(out, Resolved{Annotation: a, Line: line, Exact: exact})
	}
	return out
}

// Rehome builds the replacement anchor for a successful resolution. The
// caller commits it to the store only when Moved reports true, so a failed
// resolution can never clobber a good anchor.
func (r *Resolver) Rehome(res Resolved, current string) (Anchor, bool) {
	if res.Orphaned || res.Annotation.Side == SideOld {
		return Anchor{}, false
	}
	a := res.Annotation
	if res.Exact && res.Line == a.Anchor.Line && a.Anchor.Text != "" {
		return Anchor{}, false
	}
	return BuildAnchor(SplitLines(current), res.Line, r.Context), true
}

// SplitLines splits text into lines without trailing newlines. Empty text
// has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
