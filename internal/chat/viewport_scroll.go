package chat

const (
	headerHeight = 1
	noticeHeight = 1
	inputHeight  = 3
	statusHeight = 1
)

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.input.SetWidth(m.width)
	m.input.SetHeight(inputHeight)
	m.viewport.Width = m.width
	height := m.height - headerHeight - noticeHeight - inputHeight - statusHeight
	if height < 1 {
		height = 1
	}
	m.viewport.Height = height
}

// refreshViewport re-renders the merged view, then lets the scroll
// coordinator act on the laid-out content.
func (m *Model) refreshViewport() {
	m.dirty = false
	// The leading blank line keeps content from matching the viewport
	// height exactly, which makes the renderer drop the first line. It is
	// always present so prepends never change the line count by the pad.
	m.viewport.SetContent("\n" + m.renderMessages())

	scroll := m.session.Scroll()
	scroll.Committed(m.session.MessageCount())
	scroll.SetLastVisible(m.viewport.AtBottom())
	m.trackArrivals(m.session.Store().Messages())
	if !scroll.ShowScrollToBottom() {
		m.clearNewMessageNotification()
	}
}
