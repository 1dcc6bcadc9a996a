package chat

import (
	"bytes"
	"os"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
)

const chromaStyleName = "dracula"

// highlightCodeBlocks colors the contents of closed ``` or ~~~ fences.
// Fence lines themselves and unclosed fences are left untouched.
func highlightCodeBlocks(body string) string {
	if !strings.Contains(body, "```") && !strings.Contains(body, "~~~") {
		return body
	}
	if os.Getenv("NO_COLOR") != "" {
		return body
	}

	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		fence, lang, ok := parseFence(lines[i])
		if !ok {
			out = append(out, lines[i])
			continue
		}
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if isClosingFence(lines[j], fence) {
				end = j
				break
			}
		}
		if end < 0 {
			out = append(out, lines[i])
			continue
		}
		out = append(out, lines[i])
		if end > i+1 {
			out = append(out, highlightCode(strings.Join(lines[i+1:end], "\n"), lang))
		}
		out = append(out, lines[end])
		i = end
	}
	return strings.Join(out, "\n")
}

// parseFence reports the fence marker and info-string language of an
// opening fence line.
func parseFence(line string) (fence, lang string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" || (trimmed[0] != '`' && trimmed[0] != '~') {
		return "", "", false
	}
	n := len(trimmed) - len(strings.TrimLeft(trimmed, trimmed[:1]))
	if n < 3 {
		return "", "", false
	}
	if fields := strings.Fields(trimmed[n:]); len(fields) > 0 {
		lang = fields[0]
	}
	return trimmed[:n], lang, true
}

func isClosingFence(line, fence string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= len(fence) && strings.Trim(trimmed, fence[:1]) == ""
}

func highlightCode(code, lang string) string {
	var lexer chroma.Lexer
	if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return code
	}
	style := styles.Get(chromaStyleName)
	if style == nil {
		style = styles.Fallback
	}
	var buf bytes.Buffer
	if err := formatters.TTY256.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
