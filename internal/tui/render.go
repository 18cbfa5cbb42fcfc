package tui

import (
	"fmt"
	"strings"
)

// ─── Welcome Screen ─────────────────────────────────────────────────────────

func renderWelcome(version, server, modelName string, width int) string {
	titleLine := logoTitleStyle.Render("ThinkChat") + " " + versionStyle.Render("v"+version)

	var infoLine string
	if server == "" {
		infoLine = welcomeHintStyle.Render("Type /login to get started")
	} else {
		serverDisplay := server
		if len(serverDisplay) > 40 {
			serverDisplay = serverDisplay[:37] + "..."
		}
		modelDisplay := dimStyle.Render("not set")
		if modelName != "" {
			modelDisplay = modelName
			if len(modelDisplay) > 36 {
				modelDisplay = modelDisplay[:33] + "..."
			}
		}
		infoLine = welcomeInfoLabel.Render(fmt.Sprintf("%s · %s", serverDisplay, modelDisplay))
	}

	bubble := renderBubbleASCIIArt()
	return fmt.Sprintf("\n%s\n\n%s\n%s\n", bubble, titleLine, infoLine)
}

// A thought bubble: the bubble outline in gray, the trailing dots and the
// question mark in the accent color.
const bubbleASCIIArt = `
          ***********************
       *****                 *****
     ****                       ****
    ***          ++  ++           ***
    ***          ++  ++           ***
    ***            +++            ***
     ****          ++           ****
       *****                 *****
          ****************  ***
                          ***
                       ++
                     ++
                   ++
`

func renderBubbleASCIIArt() string {
	lines := strings.Split(bubbleASCIIArt, "\n")
	lines = trimEmptyEdgeLines(lines)

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := countLeadingSpaces(line)
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}

	for i, line := range lines {
		line = strings.TrimRight(line, " ")
		if minIndent > 0 && len(line) >= minIndent {
			line = line[minIndent:]
		}
		lines[i] = colorizeLogoLine(line)
	}

	return strings.Join(lines, "\n")
}

func trimEmptyEdgeLines(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

func countLeadingSpaces(s string) int {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

func colorizeLogoLine(line string) string {
	const (
		stylePlain = iota
		styleBody
		styleAccent
	)

	styleFor := func(r rune) int {
		switch r {
		case '*':
			return styleBody
		case '+':
			return styleAccent
		default:
			return stylePlain
		}
	}

	render := func(style int, s string) string {
		switch style {
		case styleBody:
			return logoBodyStyle.Render(s)
		case styleAccent:
			return logoAccentStyle.Render(s)
		default:
			return s
		}
	}

	var out strings.Builder
	var run strings.Builder
	currentStyle := stylePlain
	first := true

	flush := func() {
		if run.Len() == 0 {
			return
		}
		out.WriteString(render(currentStyle, run.String()))
		run.Reset()
	}

	for _, r := range line {
		nextStyle := styleFor(r)
		if first {
			currentStyle = nextStyle
			first = false
		} else if nextStyle != currentStyle {
			flush()
			currentStyle = nextStyle
		}
		run.WriteRune(r)
	}

	flush()
	return out.String()
}
