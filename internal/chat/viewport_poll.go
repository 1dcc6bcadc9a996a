package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cubewin07/movie-explorer-sub000/internal/conversation"
)

// viewportSurface lets the scroll coordinator drive the message viewport
// in line units.
type viewportSurface struct {
	vp *viewport.Model
}

func (s viewportSurface) ScrollTop() int    { return s.vp.YOffset }
func (s viewportSurface) ScrollHeight() int { return s.vp.TotalLineCount() }
func (s viewportSurface) ClientHeight() int { return s.vp.Height }

// ScrollTo jumps; a terminal has no smooth scrolling.
func (s viewportSurface) ScrollTo(offset int, _ bool) {
	s.vp.SetYOffset(offset)
}

var _ conversation.Viewport = viewportSurface{}

type loopMsg struct {
	fn func()
}

type pollMsg struct{}

type triggerMsg struct {
	trigger Trigger
}

// waitForLoop delivers the next callback posted by the session so it runs
// inside Update, the only goroutine that touches session state.
func (m *Model) waitForLoop() tea.Cmd {
	ch := m.loop.C()
	return func() tea.Msg {
		return loopMsg{fn: <-ch}
	}
}

func (m *Model) pollCmd() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

func (m *Model) waitForTrigger() tea.Cmd {
	if m.triggers == nil {
		return nil
	}
	ch := m.triggers
	return func() tea.Msg {
		trigger, ok := <-ch
		if !ok {
			return nil
		}
		return triggerMsg{trigger: trigger}
	}
}
