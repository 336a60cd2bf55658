package bubbletea

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/differ"
	"github.com/muesli/termenv"
)

// dim is the muted foreground, chosen for the detected terminal
// background.
var dim = func() lipgloss.Color {
	if termenv.HasDarkBackground() {
		return lipgloss.Color("#565f89")
	}
	return lipgloss.Color("#9699a3")
}()

var (
	styleHeader     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))
	styleFile       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0af68"))
	styleFileFocus  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0af68")).Underline(true)
	styleHunkHead   = lipgloss.NewStyle().Foreground(dim)
	styleHunkFocus  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")).Bold(true)
	styleAdded      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	styleRemoved    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	styleLineNum    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b4261"))
	styleAnnotation = lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7")).Italic(true)
	styleOrphaned   = lipgloss.NewStyle().Foreground(dim).Italic(true)
	styleStatus     = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0caf5")).Background(lipgloss.Color("#283457"))
	styleBadge      = lipgloss.NewStyle().Foreground(lipgloss.Color("#1a1b26")).Background(lipgloss.Color("#e0af68")).Padding(0, 1)
)

func (m *model) View() string {
	if !m.ready {
		return "loading..."
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *model) renderHeader() string {
	snap := m.session.Snapshot()
	focus := m.session.Focus()
	if len(snap.Files) == 0 {
		return styleHeader.Render("differ · no changes")
	}
	file := snap.Files[focus.File]
	return styleHeader.Render(fmt.Sprintf("differ · %s (%d/%d files)", file.Path(), focus.File+1, len(snap.Files)))
}

func (m *model) renderFooter() string {
	if m.mode == modeAnnotate {
		return styleStatus.Width(m.vp.Width).Render("annotate: "+m.input.View()) + "\n" +
			"enter save · esc cancel"
	}
	status := m.session.Status()
	state := ""
	if file, ok := m.session.FocusedFile(); ok {
		if hunk, ok := m.session.FocusedHunk(); ok {
			state = " · " + m.viewer.Stager.State(file.Path(), hunk).String()
		}
	}
	help := "j/k hunk · n/p file · s stage · u unstage · x discard · a annotate · tab expand · v split · q quit"
	return styleStatus.Width(m.vp.Width).Render(status+state) + "\n" + help
}

// renderBody renders every file: collapsed files show hunks only,
// expanded files show the full worktree content with changes highlighted.
func (m *model) renderBody() string {
	snap := m.session.Snapshot()
	focus := m.session.Focus()
	var b strings.Builder
	for i, file := range snap.Files {
		m.renderFile(&b, file, i == focus.File, focus.Hunk, snap.Annotations[file.Path()])
		b.WriteString("\n")
	}
	if len(snap.Files) == 0 {
		b.WriteString("nothing to show\n")
	}
	return b.String()
}

func (m *model) renderFile(b *strings.Builder, file differ.FileDiff, focused bool, focusHunk int, anns []differ.Resolved) {
	style := styleFile
	if focused {
		style = styleFileFocus
	}
	b.WriteString(style.Render(fileHeader(file)))
	b.WriteString("\n")

	if file.IsBinary {
		b.WriteString(styleHunkHead.Render("  binary file differs"))
		b.WriteString("\n")
		return
	}

	if focused && m.session.Expanded(file.Path()) {
		m.renderExpanded(b, file, anns)
		return
	}

	lang := m.language(file.Path())
	for hi, hunk := range file.Hunks {
		headStyle := styleHunkHead
		if focused && hi == focusHunk {
			headStyle = styleHunkFocus
		}
		b.WriteString(headStyle.Render(hunkHeader(hunk)))
		b.WriteString("\n")
		if m.session.View() == differ.ViewSideBySide {
			m.renderSideBySide(b, hunk, lang, anns)
		} else {
			m.renderUnified(b, hunk, lang, anns)
		}
	}
	m.renderOrphans(b, anns)
}

func fileHeader(file differ.FileDiff) string {
	switch file.Op {
	case differ.FileAdded:
		return "A " + file.NewPath
	case differ.FileDeleted:
		return "D " + file.OldPath
	case differ.FileRenamed:
		return "R " + file.OldPath + " → " + file.NewPath
	case differ.FileCopied:
		return "C " + file.OldPath + " → " + file.NewPath
	}
	return "M " + file.NewPath
}

func hunkHeader(h differ.Hunk) string {
	s := fmt.Sprintf("  @@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	if h.Section != "" {
		s += " " + h.Section
	}
	return s
}

func (m *model) renderUnified(b *strings.Builder, hunk differ.Hunk, lang string, anns []differ.Resolved) {
	for _, l := range hunk.Lines {
		b.WriteString(m.renderLine(l, lang))
		b.WriteString("\n")
		if l.Kind != differ.LineRemoved {
			m.renderAnnotationsAt(b, anns, l.NewLineNum)
		}
	}
}

func (m *model) renderSideBySide(b *strings.Builder, hunk differ.Hunk, lang string, anns []differ.Resolved) {
	half := m.vp.Width/2 - 1
	if half < 10 {
		half = 10
	}
	type row struct{ left, right string }
	var rows []row
	var pendingLeft []string

	flush := func() {
		for _, l := range pendingLeft {
			rows = append(rows, row{left: l})
		}
		pendingLeft = nil
	}

	for _, l := range hunk.Lines {
		switch l.Kind {
		case differ.LineContext:
			flush()
			s := fmt.Sprintf("%4d %s", l.OldLineNum, ExpandTabs(l.Content))
			rows = append(rows, row{left: s, right: fmt.Sprintf("%4d %s", l.NewLineNum, ExpandTabs(l.Content))})
		case differ.LineRemoved:
			pendingLeft = append(pendingLeft, styleRemoved.Render(fmt.Sprintf("%4d-%s", l.OldLineNum, ExpandTabs(l.Content))))
		case differ.LineAdded:
			right := styleAdded.Render(fmt.Sprintf("%4d+%s", l.NewLineNum, ExpandTabs(l.Content)))
			if len(pendingLeft) > 0 {
				rows = append(rows, row{left: pendingLeft[0], right: right})
				pendingLeft = pendingLeft[1:]
			} else {
				rows = append(rows, row{right: right})
			}
		}
	}
	flush()

	for _, r := range rows {
		left := lipgloss.NewStyle().Width(half).MaxWidth(half).Render(r.left)
		right := lipgloss.NewStyle().Width(half).MaxWidth(half).Render(r.right)
		b.WriteString(left)
		b.WriteString("│")
		b.WriteString(right)
		b.WriteString("\n")
	}
	for _, l := range hunk.Lines {
		if l.Kind != differ.LineRemoved {
			m.renderAnnotationsAt(b, anns, l.NewLineNum)
		}
	}
}

// renderExpanded shows the full current file with added lines
// highlighted.
func (m *model) renderExpanded(b *strings.Builder, file differ.FileDiff, anns []differ.Resolved) {
	if m.viewer.ReadFile == nil {
		b.WriteString(styleHunkHead.Render("  (expanded view unavailable)"))
		b.WriteString("\n")
		return
	}
	data, err := m.viewer.ReadFile(file.Path())
	if err != nil {
		b.WriteString(styleHunkHead.Render("  (cannot read " + file.Path() + ")"))
		b.WriteString("\n")
		return
	}
	added := make(map[int]bool)
	for _, h := range file.Hunks {
		for _, l := range h.Lines {
			if l.Kind == differ.LineAdded {
				added[l.NewLineNum] = true
			}
		}
	}
	lang := m.language(file.Path())
	for i, content := range differ.SplitLines(string(data)) {
		num := i + 1
		line := differ.Line{Kind: differ.LineContext, Content: content, NewLineNum: num, OldLineNum: num}
		if added[num] {
			line.Kind = differ.LineAdded
			line.OldLineNum = 0
		}
		b.WriteString(m.renderLine(line, lang))
		b.WriteString("\n")
		m.renderAnnotationsAt(b, anns, num)
	}
}

// renderLine renders one diff line: marker, line number, content. Context
// lines get syntax highlighting when a tokenizer is available.
func (m *model) renderLine(l differ.Line, lang string) string {
	var marker string
	var num int
	var style lipgloss.Style
	switch l.Kind {
	case differ.LineAdded:
		marker, num, style = "+", l.NewLineNum, styleAdded
	case differ.LineRemoved:
		marker, num, style = "-", l.OldLineNum, styleRemoved
	default:
		marker, num = " ", l.NewLineNum
	}
	prefix := styleLineNum.Render(fmt.Sprintf("%4d ", num)) + marker

	content := ExpandTabs(l.Content)
	if l.Kind == differ.LineContext && lang != "" && m.viewer.Tokenizer != nil {
		if tokens := m.viewer.Tokenizer.Tokenize(lang, content); tokens != nil {
			var sb strings.Builder
			for _, tok := range tokens {
				ts := lipgloss.NewStyle()
				if tok.Style.Foreground != "" {
					ts = ts.Foreground(lipgloss.Color(tok.Style.Foreground))
				}
				if tok.Style.Bold {
					ts = ts.Bold(true)
				}
				sb.WriteString(ts.Render(strings.TrimSuffix(tok.Text, "\n")))
			}
			return prefix + sb.String()
		}
	}
	return prefix + style.Render(content)
}

func (m *model) renderAnnotationsAt(b *strings.Builder, anns []differ.Resolved, line int) {
	if !m.viewer.ShowAnnotations || line == 0 {
		return
	}
	for _, res := range anns {
		if res.Orphaned || res.Line != line {
			continue
		}
		a := res.Annotation
		badge := "C"
		if a.Kind == differ.KindTodo {
			badge = "T"
		}
		if a.Resolved {
			badge += "✓"
		}
		b.WriteString("      " + styleBadge.Render(badge) + " " + styleAnnotation.Render(a.Body))
		b.WriteString("\n")
	}
}

func (m *model) renderOrphans(b *strings.Builder, anns []differ.Resolved) {
	for _, res := range anns {
		if !res.Orphaned {
			continue
		}
		a := res.Annotation
		b.WriteString(styleOrphaned.Render(fmt.Sprintf("      ◌ orphaned (was L%d): %s", a.Anchor.Line, a.Body)))
		b.WriteString("\n")
	}
}

func (m *model) language(path string) string {
	if m.viewer.Detector == nil {
		return ""
	}
	return m.viewer.Detector.DetectFromPath(path)
}
