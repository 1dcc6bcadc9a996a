package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/cubewin07/movie-explorer-sub000/internal/core"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

const (
	zoneRetry = "retry"
	zoneJump  = "jump"
)

var (
	keyQuit     = key.NewBinding(key.WithKeys("ctrl+c"))
	keyEsc      = key.NewBinding(key.WithKeys("esc"))
	keySubmit   = key.NewBinding(key.WithKeys("enter"))
	keyRetry    = key.NewBinding(key.WithKeys("ctrl+r"))
	keyBottom   = key.NewBinding(key.WithKeys("end", "ctrl+g"))
	keyScroll   = key.NewBinding(key.WithKeys("pgup", "pgdown", "ctrl+u", "ctrl+d"))
	keyRefresh  = key.NewBinding(key.WithKeys("ctrl+l"))
	keyNewline  = []string{"alt+enter", "ctrl+j"}
	keyHelpText = "enter send · alt+enter newline · ctrl+r retry · end latest"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.dirty = true
	case tea.KeyMsg:
		var quit bool
		cmd, quit = m.handleKeyMsg(msg)
		if quit {
			return m, tea.Quit
		}
	case tea.MouseMsg:
		cmd = m.handleMouseMsg(msg)
	case loopMsg:
		if msg.fn != nil {
			msg.fn()
		}
		cmd = m.waitForLoop()
	case pollMsg:
		m.session.Refresh()
		cmd = m.pollCmd()
	case triggerMsg:
		m.handleTrigger(msg.trigger)
		cmd = m.waitForTrigger()
	default:
		m.input, cmd = m.input.Update(msg)
	}
	if m.dirty {
		m.refreshViewport()
	}
	return m, cmd
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keyQuit):
		return nil, true
	case key.Matches(msg, keyEsc):
		if _, ok := m.session.Banner(); ok {
			m.session.DismissBanner()
			return nil, false
		}
		if m.input.Value() != "" {
			m.input.Reset()
			m.status = ""
			return nil, false
		}
		return nil, true
	case key.Matches(msg, keySubmit):
		m.submitInput()
		return nil, false
	case key.Matches(msg, keyRetry):
		m.retryFailed()
		return nil, false
	case key.Matches(msg, keyBottom):
		m.jumpToLatest()
		return nil, false
	case key.Matches(msg, keyRefresh):
		m.session.Refresh()
		return nil, false
	case key.Matches(msg, keyScroll):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.session.OnScroll()
		m.syncScrollState()
		return cmd, false
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.status != "" && m.input.Value() != "" {
		m.status = ""
	}
	return cmd, false
}

func (m *Model) handleMouseMsg(msg tea.MouseMsg) tea.Cmd {
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		switch {
		case m.zoneManager.Get(zoneRetry).InBounds(msg):
			m.retryFailed()
			return nil
		case m.zoneManager.Get(zoneJump).InBounds(msg):
			m.jumpToLatest()
			return nil
		}
	}
	if msg.Button != tea.MouseButtonWheelUp && msg.Button != tea.MouseButtonWheelDown {
		return nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.session.OnScroll()
	m.syncScrollState()
	return cmd
}

func (m *Model) handleTrigger(trigger Trigger) {
	if trigger.Presence != nil {
		m.session.SetPresence(*trigger.Presence)
	}
	if trigger.Refresh {
		m.session.Refresh()
	}
}

func (m *Model) submitInput() {
	id, err := m.session.Submit(m.input.Value())
	if err != nil {
		var verr *core.ValidationError
		switch {
		case errors.As(err, &verr) && verr.Reason == core.ReasonEmpty:
			m.status = "message is empty"
		case errors.As(err, &verr) && verr.Reason == core.ReasonTooLong:
			m.status = "message too long"
		default:
			m.status = err.Error()
		}
		return
	}
	if id == "" {
		// Throttled: keep the draft so the user can press enter again.
		return
	}
	m.log.Debug("submitted", zap.String("temp_id", id))
	m.input.Reset()
	m.status = ""
	m.jumpToLatest()
}

// retryTarget picks the failed entry ctrl+r acts on: the banner's entry,
// else the newest failed one, so a dismissed or replaced banner never
// strands a failed message.
func (m *Model) retryTarget() (types.Message, bool) {
	if banner, ok := m.session.Banner(); ok {
		for _, entry := range m.session.Pending() {
			if entry.ID == banner.TempID && entry.Status == types.StatusFailed {
				return entry, true
			}
		}
	}
	if last, ok := m.session.LastOptimistic(); ok && last.Status == types.StatusFailed {
		return last, true
	}
	pending := m.session.Pending()
	for i := len(pending) - 1; i >= 0; i-- {
		if pending[i].Status == types.StatusFailed {
			return pending[i], true
		}
	}
	return types.Message{}, false
}

func (m *Model) retryFailed() {
	target, ok := m.retryTarget()
	if !ok {
		return
	}
	id, err := m.session.Retry(target.ID)
	if err != nil {
		m.status = err.Error()
		return
	}
	if id != "" {
		m.status = ""
		m.jumpToLatest()
	}
}

func (m *Model) jumpToLatest() {
	m.session.Scroll().ScrollToBottom()
	m.clearNewMessageNotification()
	m.dirty = true
}

// syncScrollState drops the new-message bar once the reader is back at
// the bottom.
func (m *Model) syncScrollState() {
	if !m.session.Scroll().ShowScrollToBottom() {
		m.clearNewMessageNotification()
	}
}

// trackArrivals records authors of confirmed messages appended since the
// last render while the reader is scrolled away from the bottom.
func (m *Model) trackArrivals(confirmed []types.Message) {
	if len(confirmed) == 0 {
		return
	}
	last := confirmed[len(confirmed)-1].ID
	if m.newestID == "" {
		m.newestID = last
		return
	}
	if last == m.newestID {
		return
	}
	start := -1
	for i := len(confirmed) - 1; i >= 0; i-- {
		if confirmed[i].ID == m.newestID {
			start = i + 1
			break
		}
	}
	m.newestID = last
	if start < 0 || !m.session.Scroll().ShowScrollToBottom() {
		return
	}
	for _, msg := range confirmed[start:] {
		if msg.SenderID == m.selfID {
			continue
		}
		m.addNewMessageAuthor(m.displayName(msg.SenderID))
		if m.notify {
			if err := sendNotification(m.title, m.displayName(msg.SenderID), msg.Text); err != nil {
				m.log.Debug("notification failed", zap.Error(err))
			}
		}
	}
}

func (m *Model) addNewMessageAuthor(author string) {
	for _, existing := range m.newMessageAuthors {
		if existing == author {
			return
		}
	}
	m.newMessageAuthors = append(m.newMessageAuthors, author)
}

func (m *Model) clearNewMessageNotification() {
	m.newMessageAuthors = nil
}
