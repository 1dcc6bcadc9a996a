package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/cubewin07/movie-explorer-sub000/internal/conversation"
	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

func (m *Model) View() string {
	statusLine := lipgloss.NewStyle().Foreground(statusColor).Render(m.statusLine())
	lines := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderNotice(),
		m.input.View(),
		statusLine,
	}
	return m.zoneManager.Scan(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderHeader shows the conversation title and read-only presence of the
// other members.
func (m *Model) renderHeader() string {
	title := lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true).Render(m.title)
	parts := []string{title}

	ids := make([]string, 0, len(m.names))
	for id := range m.names {
		if id != m.selfID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		parts = append(parts, m.renderPresence(id))
	}
	return truncateLine(strings.Join(parts, "  "), m.width)
}

func (m *Model) renderPresence(userID string) string {
	name := m.displayName(userID)
	p, ok := m.session.Presence(userID)
	if ok && p.State == types.PresenceOnline {
		return lipgloss.NewStyle().Foreground(onlineColor).Render("●") + " " + name
	}
	label := name
	if ok && !p.LastSeen.IsZero() {
		label = fmt.Sprintf("%s (%s)", name, humanize.Time(p.LastSeen))
	}
	return lipgloss.NewStyle().Foreground(offlineColor).Render("○ " + label)
}

// renderNotice is the single line between the messages and the input:
// the send error banner, then a quieter retry line for failed entries
// whose banner is gone, then the jump-to-latest bar.
func (m *Model) renderNotice() string {
	if banner := m.renderBanner(); banner != "" {
		return banner
	}
	if failed := m.renderFailedNotice(); failed != "" {
		return failed
	}
	if bar := m.renderJumpBar(); bar != "" {
		return bar
	}
	return ""
}

func (m *Model) renderBanner() string {
	banner, ok := m.session.Banner()
	if !ok {
		return ""
	}
	retry := m.zoneManager.Mark(zoneRetry, lipgloss.NewStyle().Underline(true).Render("retry"))
	content := fmt.Sprintf("send failed %s: %v · %s (ctrl+r) · esc dismiss",
		humanize.Time(banner.At), banner.Err, retry)
	style := lipgloss.NewStyle().Background(bannerBg).Foreground(lipgloss.Color("231")).Padding(0, 1)
	if m.width > 0 {
		style = style.Width(m.width).MaxHeight(noticeHeight)
	}
	return style.Render(content)
}

func (m *Model) renderFailedNotice() string {
	entry, ok := m.retryTarget()
	if !ok {
		return ""
	}
	retry := m.zoneManager.Mark(zoneRetry, lipgloss.NewStyle().Underline(true).Render("retry"))
	content := fmt.Sprintf("%q not delivered · %s (ctrl+r)", truncateNotification(entry.Text, 24), retry)
	style := lipgloss.NewStyle().Foreground(failedColor).Padding(0, 1)
	if m.width > 0 {
		style = style.Width(m.width).MaxHeight(noticeHeight)
	}
	return style.Render(content)
}

func (m *Model) renderJumpBar() string {
	if !m.session.Scroll().ShowScrollToBottom() {
		return ""
	}
	content := "↓ jump to latest"
	if len(m.newMessageAuthors) > 0 {
		content = "↓ new messages from " + strings.Join(m.newMessageAuthors, ", ")
	}
	style := lipgloss.NewStyle().Background(jumpBg).Foreground(lipgloss.Color("231")).Padding(0, 1)
	if m.width > 0 {
		style = style.Width(m.width).MaxHeight(noticeHeight)
	}
	return m.zoneManager.Mark(zoneJump, style.Render(content+" · end"))
}

func (m *Model) statusLine() string {
	right := ""
	if m.input.Value() == "" {
		right = keyHelpText
	}
	left := m.status
	if mode := m.session.Scroll().Mode(); left == "" && mode != conversation.ModeAutoFollow {
		left = mode.String()
	}
	return alignStatusLine(left, right, m.width)
}

func alignStatusLine(left, right string, width int) string {
	if width <= 0 || right == "" {
		return left
	}
	leftWidth := ansi.StringWidth(left)
	rightWidth := ansi.StringWidth(right)
	if leftWidth+rightWidth+1 > width {
		return left
	}
	return left + strings.Repeat(" ", width-leftWidth-rightWidth) + right
}

func truncateLine(line string, width int) string {
	if width <= 0 {
		return line
	}
	return ansi.Truncate(line, width, "…")
}
