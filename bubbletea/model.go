package bubbletea

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/differ"
)

type model struct {
	viewer  *Viewer
	session *differ.Session

	vp    viewport.Model
	input textinput.Model
	mode  inputMode
	ready bool
}

func newModel(v *Viewer, s *differ.Session) *model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 500
	return &model{viewer: v, session: s, input: input}
}

func (m *model) Init() tea.Cmd {
	return waitChanged(m.viewer.Changed)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight, footerHeight := 1, 2
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight - footerHeight
		}
		m.vp.SetContent(m.renderBody())
		return m, nil

	case changedMsg:
		m.vp.SetContent(m.renderBody())
		return m, waitChanged(m.viewer.Changed)

	case tea.KeyMsg:
		if m.mode == modeAnnotate {
			return m.updateAnnotate(msg)
		}
		return m.updateNormal(msg)
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.session.NextHunk()
	case "k", "up":
		m.session.PrevHunk()
	case "n":
		m.session.NextFile()
	case "p":
		m.session.PrevFile()
	case "tab", "enter":
		m.session.ToggleExpand()
	case "v":
		m.session.ToggleView()
	case "R":
		return m, m.requestReload()

	case "s":
		return m, m.stagingKey("stage")
	case "u":
		return m, m.stagingKey("unstage")
	case "x":
		return m, m.stagingKey("discard")

	case "a":
		return m.startAnnotation()
	case "d":
		m.annotationKey(func(ctx context.Context, id string) error {
			return m.viewer.Annotator.Delete(ctx, id)
		}, "annotation deleted")
	case "r":
		m.annotationKey(func(ctx context.Context, id string) error {
			return m.viewer.Annotator.SetResolved(ctx, id, true)
		}, "annotation resolved")
	case "t":
		m.annotationKey(func(ctx context.Context, id string) error {
			return m.viewer.Annotator.ToggleKind(ctx, id)
		}, "annotation type toggled")

	case "ctrl+d", "pgdown":
		m.vp.HalfPageDown()
		return m, nil
	case "ctrl+u", "pgup":
		m.vp.HalfPageUp()
		return m, nil
	}

	m.vp.SetContent(m.renderBody())
	return m, nil
}

// startAnnotation opens the edit buffer at the focused hunk's first
// changed line.
func (m *model) startAnnotation() (tea.Model, tea.Cmd) {
	file, ok := m.session.FocusedFile()
	if !ok {
		return m, nil
	}
	hunk, ok := m.session.FocusedHunk()
	if !ok {
		return m, nil
	}
	line := hunk.NewStart
	for _, l := range hunk.Lines {
		if l.Kind == differ.LineAdded {
			line = l.NewLineNum
			break
		}
	}
	m.session.StartEdit(differ.PendingEdit{
		FilePath: file.Path(),
		Line:     line,
		Kind:     differ.KindComment,
	})
	m.mode = modeAnnotate
	m.input.SetValue("")
	m.input.Focus()
	return m, textinput.Blink
}

func (m *model) updateAnnotate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.session.CancelEdit()
		m.mode = modeNormal
		m.input.Blur()
		return m, nil

	case "enter":
		m.session.UpdatePending(m.input.Value())
		pe, ok := m.session.ConfirmEdit()
		m.mode = modeNormal
		m.input.Blur()
		if !ok || pe.Body == "" {
			return m, nil
		}
		ctx := context.Background()
		var err error
		if pe.AnnotationID == "" {
			_, err = m.viewer.Annotator.Create(ctx, pe.FilePath, pe.Line, 0, pe.Kind, pe.Body)
		} else {
			err = m.viewer.Annotator.Edit(ctx, pe.AnnotationID, pe.Body, pe.Kind)
		}
		if err != nil {
			m.session.SetStatus(err.Error())
			return m, nil
		}
		m.session.SetStatus(fmt.Sprintf("annotation saved at %s:%d", pe.FilePath, pe.Line))
		return m, m.requestReload()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// annotationKey applies op to the first annotation inside the focused
// hunk's new-line range.
func (m *model) annotationKey(op func(context.Context, string) error, done string) {
	res, ok := m.focusedAnnotation()
	if !ok {
		m.session.SetStatus("no annotation under cursor")
		return
	}
	if err := op(context.Background(), res.Annotation.ID); err != nil {
		m.session.SetStatus(err.Error())
		return
	}
	m.session.SetStatus(done)
	m.vp.SetContent(m.renderBody())
}

func (m *model) focusedAnnotation() (differ.Resolved, bool) {
	file, ok := m.session.FocusedFile()
	if !ok {
		return differ.Resolved{}, false
	}
	hunk, ok := m.session.FocusedHunk()
	if !ok {
		return differ.Resolved{}, false
	}
	snap := m.session.Snapshot()
	for _, res := range snap.Annotations[file.Path()] {
		if res.Orphaned {
			continue
		}
		if res.Line >= hunk.NewStart && res.Line < hunk.NewStart+hunk.NewCount {
			return res, true
		}
	}
	return differ.Resolved{}, false
}
