// Package bubbletea implements the interactive diff viewer using the
// charmbracelet stack.
package bubbletea

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/differ"
)

// Compile-time interface verification.
var _ differ.Viewer = (*Viewer)(nil)

// Viewer runs the TUI over a session. All repository mutations go through
// the stager; reloads are requested over the Requests channel and land as
// snapshot swaps observed via the Changed channel.
type Viewer struct {
	Stager    *differ.Stager
	Annotator *differ.Annotator
	Tokenizer differ.Tokenizer
	Detector  differ.LanguageDetector
	ReadFile  func(path string) ([]byte, error) // worktree reads for expanded view

	// Requests asks the reload coordinator for a fresh snapshot; Changed
	// delivers one signal per completed swap.
	Requests chan<- struct{}
	Changed  <-chan struct{}

	// ShowAnnotations toggles inline annotation rendering.
	ShowAnnotations bool
}

// View displays the session and blocks until the user exits.
func (v *Viewer) View(ctx context.Context, s *differ.Session) error {
	m := newModel(v, s)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// inputMode selects how key presses are interpreted.
type inputMode int

const (
	modeNormal inputMode = iota
	modeAnnotate
)

type changedMsg struct{}

// waitChanged re-subscribes to snapshot swap signals.
func waitChanged(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m *model) requestReload() tea.Cmd {
	if m.viewer.Requests == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case m.viewer.Requests <- struct{}{}:
		default:
		}
		return nil
	}
}

// stagingKey applies one staging transition to the focused hunk and
// reports the outcome on the status line.
func (m *model) stagingKey(op string) tea.Cmd {
	file, ok := m.session.FocusedFile()
	if !ok {
		return nil
	}
	hunk, ok := m.session.FocusedHunk()
	if !ok {
		return nil
	}
	path := file.Path()

	var err error
	var done string
	switch op {
	case "stage":
		err = m.viewer.Stager.Stage(context.Background(), path, hunk)
		done = "hunk staged"
	case "unstage":
		err = m.viewer.Stager.Unstage(context.Background(), path, hunk)
		done = "hunk unstaged"
	case "discard":
		err = m.viewer.Stager.Discard(context.Background(), path, hunk)
		done = "hunk discarded"
	}
	switch {
	case errors.Is(err, differ.ErrConflict):
		m.session.SetStatus("hunk is stale, reloading; retry after")
		return m.requestReload()
	case errors.Is(err, differ.ErrPreconditionFailed):
		m.session.SetStatus(err.Error())
		return nil
	case err != nil:
		m.session.SetStatus(err.Error())
		return nil
	}
	m.session.SetStatus(fmt.Sprintf("%s in %s", done, path))
	return m.requestReload()
}
