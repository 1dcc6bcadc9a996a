package chat

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/lipgloss"
)

func newInputModel() textarea.Model {
	input := textarea.New()
	input.Placeholder = "message"
	input.Prompt = "› "
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetKeys(keyNewline...)
	applyInputStyles(&input, textColor, blurText)
	input.Focus()
	return input
}

func applyInputStyles(input *textarea.Model, textColor, blurColor lipgloss.Color) {
	focused := lipgloss.NewStyle().Foreground(textColor).Background(inputBg)
	blurred := lipgloss.NewStyle().Foreground(blurColor).Background(inputBg)
	prompt := lipgloss.NewStyle().Foreground(caretColor).Background(inputBg)
	line := lipgloss.NewStyle().Background(inputBg)

	input.FocusedStyle.Base = focused
	input.FocusedStyle.Text = focused
	input.FocusedStyle.Prompt = prompt
	input.FocusedStyle.CursorLine = line
	input.BlurredStyle.Base = blurred
	input.BlurredStyle.Text = blurred
	input.BlurredStyle.Prompt = prompt
	input.BlurredStyle.CursorLine = line
}
