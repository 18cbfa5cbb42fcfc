package display

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders an answer as terminal markdown. On any renderer
// failure the raw text comes back unchanged, so output is never lost to a
// styling problem.
func RenderMarkdown(text string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
