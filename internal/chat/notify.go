package chat

import (
	"strings"

	"github.com/gen2brain/beeep"
)

const notificationBodyLimit = 100

// sendNotification raises an OS notification for a message that arrived
// while the reader was scrolled up.
func sendNotification(title, sender, body string) error {
	return beeep.Notify(title+" · "+sender, truncateNotification(body, notificationBodyLimit), "")
}

func truncateNotification(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}
