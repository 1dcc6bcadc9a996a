package chat

import "testing"

func TestParseFence(t *testing.T) {
	fence, lang, ok := parseFence("```go")
	if !ok || fence != "```" || lang != "go" {
		t.Fatalf("got fence=%q lang=%q ok=%v", fence, lang, ok)
	}

	fence, lang, ok = parseFence("  ~~~~ python extra")
	if !ok || fence != "~~~~" || lang != "python" {
		t.Fatalf("got fence=%q lang=%q ok=%v", fence, lang, ok)
	}

	if _, _, ok := parseFence("``not a fence"); ok {
		t.Fatalf("two backticks are not a fence")
	}
}

func TestIsClosingFence(t *testing.T) {
	if !isClosingFence("````", "```") {
		t.Fatalf("longer run should close")
	}
	if isClosingFence("``", "```") {
		t.Fatalf("shorter run should not close")
	}
	if isClosingFence("```go", "```") {
		t.Fatalf("info string should not close")
	}
}

func TestHighlightCodeBlocksNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	input := "start\n```go\nfmt.Println(\"hi\")\n```\nend"
	if got := highlightCodeBlocks(input); got != input {
		t.Fatalf("expected input unchanged, got %q", got)
	}
}

func TestHighlightCodeBlocksUnclosedFence(t *testing.T) {
	input := "start\n```go\ncode\nend"
	if got := highlightCodeBlocks(input); got != input {
		t.Fatalf("expected unclosed fence unchanged, got %q", got)
	}
}

func TestHighlightCodeBlocksKeepsSurroundingText(t *testing.T) {
	input := "before\n```go\nx := 1\n```\nafter"
	got := highlightCodeBlocks(input)
	if got[:7] != "before\n" || got[len(got)-6:] != "\nafter" {
		t.Fatalf("surrounding text changed: %q", got)
	}
}
