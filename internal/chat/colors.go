package chat

import (
	"hash/fnv"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

var senderPalette = []lipgloss.Color{
	lipgloss.Color("111"),
	lipgloss.Color("157"),
	lipgloss.Color("216"),
	lipgloss.Color("36"),
	lipgloss.Color("183"),
	lipgloss.Color("230"),
}

var (
	selfColor    = lipgloss.Color("75")
	textColor    = lipgloss.Color("252")
	blurText     = lipgloss.Color("245")
	pendingText  = lipgloss.Color("245")
	caretColor   = lipgloss.Color("36")
	inputBg      = lipgloss.Color("235")
	statusColor  = lipgloss.Color("241")
	sendingColor = lipgloss.Color("220")
	failedColor  = lipgloss.Color("196")
	onlineColor  = lipgloss.Color("42")
	offlineColor = lipgloss.Color("240")
	bannerBg     = lipgloss.Color("52")
	jumpBg       = lipgloss.Color("24")
)

var (
	bodyStyle      = lipgloss.NewStyle().Foreground(textColor)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle     = lipgloss.NewStyle().Foreground(failedColor)
)

// buildColorMap assigns palette slots to members in a stable order so two
// members of a small conversation never share a color.
func buildColorMap(members []types.Participant, selfID string) map[string]lipgloss.Color {
	ids := make([]string, 0, len(members))
	for _, member := range members {
		if member.ID != selfID {
			ids = append(ids, member.ID)
		}
	}
	sort.Strings(ids)

	colorMap := make(map[string]lipgloss.Color, len(ids))
	for idx, id := range ids {
		colorMap[id] = senderPalette[idx%len(senderPalette)]
	}
	return colorMap
}

func colorForSender(senderID string, colorMap map[string]lipgloss.Color) lipgloss.Color {
	if color, ok := colorMap[senderID]; ok {
		return color
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(senderID))
	return senderPalette[int(h.Sum32()%uint32(len(senderPalette)))]
}

func avatarStyle(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Background(color).Foreground(lipgloss.Color("16")).Bold(true).Padding(0, 1)
}
