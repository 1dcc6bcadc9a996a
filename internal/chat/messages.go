package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cubewin07/movie-explorer-sub000/internal/conversation"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

const bodyIndent = 2

func (m *Model) renderMessages() string {
	if err := m.session.LoadError(); err != nil && !m.session.Store().Loaded() {
		return errorStyle.Render("could not load messages: " + err.Error())
	}
	if m.session.Loading() {
		return metaStyle.Render("loading messages…")
	}

	groups := m.session.Groups()
	if len(groups) == 0 {
		return metaStyle.Render("no messages yet · say hello")
	}

	var chunks []string
	switch {
	case m.session.Scroll().Mode() == conversation.ModeLoadingOlder:
		chunks = append(chunks, metaStyle.Render("loading older messages…"))
	case m.session.LoadError() != nil:
		chunks = append(chunks, errorStyle.Render("could not load older messages: "+m.session.LoadError().Error()))
	case m.session.Store().HasMore():
		chunks = append(chunks, metaStyle.Render("↑ scroll up for older messages"))
	}

	for _, group := range groups {
		switch group.Kind {
		case types.GroupDateSeparator:
			chunks = append(chunks, m.renderDateSeparator(group.Date))
		case types.GroupMessage:
			chunks = append(chunks, m.renderMessage(group))
		}
	}
	return strings.Join(chunks, "\n")
}

func (m *Model) renderDateSeparator(day time.Time) string {
	label := formatDay(day, m.now())
	width := m.viewport.Width
	if width <= 0 {
		return separatorStyle.Render("── " + label + " ──")
	}
	return separatorStyle.Width(width).Align(lipgloss.Center).Render("── " + label + " ──")
}

func formatDay(day, now time.Time) string {
	now = now.In(day.Location())
	switch {
	case sameDay(day, now):
		return "Today"
	case sameDay(day, now.AddDate(0, 0, -1)):
		return "Yesterday"
	case day.Year() == now.Year():
		return day.Format("Mon, Jan 2")
	default:
		return day.Format("Mon, Jan 2 2006")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (m *Model) renderMessage(group types.Group) string {
	msg := group.Message
	var lines []string
	if group.FirstInCluster {
		lines = append(lines, m.renderByline(msg, group.ShowAvatar))
	}

	body := highlightCodeBlocks(msg.Text)
	width := m.viewport.Width - bodyIndent
	style := bodyStyle.PaddingLeft(bodyIndent)
	if width > 0 {
		style = style.Width(width + bodyIndent)
	}
	if msg.Pending() {
		style = style.Foreground(pendingText)
	}
	lines = append(lines, style.Render(body))

	if status := m.renderPendingStatus(msg); status != "" {
		lines = append(lines, status)
	}
	if group.LastInCluster {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderByline(msg types.Message, showAvatar bool) string {
	color := colorForSender(msg.SenderID, m.colorMap)
	name := m.displayName(msg.SenderID)
	if msg.SenderID == m.selfID {
		name = "you"
		color = selfColor
	}
	nameStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	byline := nameStyle.Render(name)
	if showAvatar {
		byline = avatarStyle(color).Render(initial(name)) + " " + byline
	}
	return byline + " " + metaStyle.Render(msg.CreatedAt.In(time.Local).Format("15:04"))
}

func (m *Model) renderPendingStatus(msg types.Message) string {
	switch msg.Status {
	case types.StatusSending:
		return lipgloss.NewStyle().PaddingLeft(bodyIndent).Foreground(sendingColor).Render("sending…")
	case types.StatusFailed:
		return lipgloss.NewStyle().PaddingLeft(bodyIndent).Foreground(failedColor).Render("not delivered")
	}
	return ""
}

func initial(name string) string {
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return "?"
}
