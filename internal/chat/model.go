package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"go.uber.org/zap"

	"github.com/cubewin07/movie-explorer-sub000/internal/config"
	"github.com/cubewin07/movie-explorer-sub000/internal/conversation"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

const defaultPollInterval = 3 * time.Second

// Trigger is a push notification from outside the UI: a change signal
// from the backend, a presence update, or both.
type Trigger struct {
	Refresh  bool
	Presence *types.Presence
}

// Options configure chat mode.
type Options struct {
	Transport    conversation.Transport
	Conversation string
	SelfID       string
	Title        string
	Members      []types.Participant
	Presence     []types.Presence
	Chat         config.Chat
	Logger       *zap.Logger
	// Triggers may be nil; polling still refreshes the conversation.
	Triggers <-chan Trigger
	Notify   bool
}

// Model is the Bubble Tea model for chat mode.
type Model struct {
	session *conversation.Session
	loop    *conversation.ChanLoop
	log     *zap.Logger

	viewport    viewport.Model
	input       textarea.Model
	zoneManager *zone.Manager

	selfID   string
	title    string
	names    map[string]string
	colorMap map[string]lipgloss.Color
	now      func() time.Time

	width  int
	height int
	status string
	dirty  bool

	pollInterval      time.Duration
	triggers          <-chan Trigger
	notify            bool
	newestID          string
	newMessageAuthors []string
}

// Run starts chat mode and blocks until the user quits.
func Run(opts Options) error {
	model, err := NewModel(opts)
	if err != nil {
		return err
	}
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = program.Run()
	return err
}

// NewModel creates a chat model and opens the configured conversation.
func NewModel(opts Options) (*Model, error) {
	if opts.Transport == nil {
		return nil, errors.New("chat: transport is required")
	}
	if opts.Conversation == "" {
		return nil, conversation.ErrNoConversation
	}
	if opts.SelfID == "" {
		return nil, errors.New("chat: user id is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	names := make(map[string]string, len(opts.Members))
	for _, member := range opts.Members {
		names[member.ID] = member.Name
		if member.Name == "" {
			names[member.ID] = member.ID
		}
	}
	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("#%s", opts.Conversation)
	}
	poll := opts.Chat.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	loop := conversation.NewChanLoop(0)
	m := &Model{
		loop:         loop,
		log:          log.Named("chat"),
		viewport:     viewport.New(0, 0),
		input:        newInputModel(),
		zoneManager:  zone.New(),
		selfID:       opts.SelfID,
		title:        title,
		names:        names,
		colorMap:     buildColorMap(opts.Members, opts.SelfID),
		now:          time.Now,
		pollInterval: poll,
		triggers:     opts.Triggers,
		notify:       opts.Notify,
	}
	m.viewport.MouseWheelDelta = 3

	m.session = conversation.NewSession(opts.Transport, conversation.Options{
		SelfID:      opts.SelfID,
		Loop:        loop,
		Viewport:    viewportSurface{vp: &m.viewport},
		Logger:      log,
		Location:    time.Local,
		SendTimeout: opts.Chat.SendTimeout,
		Cooldown:    opts.Chat.Cooldown,
		MaxLength:   opts.Chat.MaxLength,
		ClusterGap:  opts.Chat.ClusterGap,
		MatchWindow: opts.Chat.MatchWindow,
		Scroll:      lineScrollOptions(opts.Chat.SettleDelay),
		OnChange:    func() { m.dirty = true },
	})
	for _, p := range opts.Presence {
		m.session.SetPresence(p)
	}
	m.session.Open(opts.Conversation)
	return m, nil
}

// lineScrollOptions scales the pixel thresholds to terminal lines.
func lineScrollOptions(settle time.Duration) conversation.ScrollOptions {
	return conversation.ScrollOptions{
		ManualThreshold: 6,
		ResumeThreshold: 1,
		TopThreshold:    3,
		SettleDelay:     settle,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForLoop(), m.pollCmd(), m.waitForTrigger())
}

// Close cancels outstanding fetches, sends and timers.
func (m *Model) Close() {
	m.session.Close()
}

func (m *Model) displayName(userID string) string {
	if name, ok := m.names[userID]; ok {
		return name
	}
	return userID
}
