package render

import (
	"fmt"
	"strings"
)

// Caption styling tuned for a 1080px portrait frame: 56px bold text wraps
// at 24 characters, drawn as five dark offset layers beneath a colored top
// layer so text reads on any footage.
const (
	captionFontSize    = 56
	captionLineSpacing = 14
	captionDepthLayers = 5
	captionBlockAnchor = "h*0.72"
)

var captionColors = []string{
	"0xFFE500", // bright yellow
	"0x00E5FF", // electric cyan
	"0xFF6B00", // hot orange
	"0xFF2D8B", // neon pink
}

// wrapCaption splits text into lines no longer than maxChars, breaking
// only at word boundaries.
func wrapCaption(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 24
	}
	words := strings.Fields(text)
	var lines []string
	var current string
	for _, word := range words {
		if current != "" && len(current)+1+len(word) > maxChars {
			lines = append(lines, current)
			current = word
			continue
		}
		if current == "" {
			current = word
		} else {
			current = current + " " + word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// escapeDrawtext escapes the characters ffmpeg drawtext treats specially.
// Straight apostrophes become curly ones so the filtergraph quoting stays
// balanced.
func escapeDrawtext(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, "'", "’")
	text = strings.ReplaceAll(text, ":", `\:`)
	text = strings.ReplaceAll(text, "%", "%%")
	return text
}

// captionFilters renders each wrapped line as its own drawtext stack:
// depth layers first, then the colored top layer. Colors cycle per line.
func captionFilters(text string, maxChars int, fontPath string) []string {
	lines := wrapCaption(text, maxChars)
	if len(lines) == 0 {
		return nil
	}

	lineHeight := captionFontSize + captionLineSpacing
	blockHeight := len(lines) * lineHeight

	var filters []string
	for i, line := range lines {
		safe := escapeDrawtext(line)
		color := captionColors[i%len(captionColors)]
		y := lineYExpr(i, lineHeight, blockHeight)

		for d := captionDepthLayers; d > 0; d-- {
			filters = append(filters, drawtext(fontPath, safe,
				"fontcolor=0x1a0a00@0.85:borderw=3:bordercolor=black",
				fmt.Sprintf("(w-text_w)/2+%d", d*2),
				fmt.Sprintf("(%s)+%d", y, d*2)))
		}
		filters = append(filters, drawtext(fontPath, safe,
			fmt.Sprintf("fontcolor=%s:borderw=4:bordercolor=black:shadowcolor=black@0.6:shadowx=2:shadowy=2", color),
			"(w-text_w)/2",
			y))
	}
	return filters
}

// lineYExpr returns the top Y expression for line i, with the whole block
// centered on the anchor at 72% of frame height.
func lineYExpr(i, lineHeight, blockHeight int) string {
	offset := i*lineHeight - blockHeight/2
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("(%s)%s%d", captionBlockAnchor, sign, offset)
}

func drawtext(fontPath, text, style, x, y string) string {
	var b strings.Builder
	b.WriteString("drawtext=fontsize=")
	fmt.Fprintf(&b, "%d", captionFontSize)
	if fontPath = strings.TrimSpace(fontPath); fontPath != "" {
		b.WriteString(":fontfile=")
		b.WriteString(strings.ReplaceAll(fontPath, `\`, "/"))
	}
	b.WriteString(":text='")
	b.WriteString(text)
	b.WriteString("':")
	b.WriteString(style)
	b.WriteString(":x=")
	b.WriteString(x)
	b.WriteString(":y=")
	b.WriteString(y)
	return b.String()
}
