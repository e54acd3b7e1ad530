package display

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Layout constants shared by the renderers.
const (
	IndentOne        = "  "
	IndentTwo        = "    "
	ProgressBarWidth = 20
)

// TimestampFormat is used for history entries and comments.
const TimestampFormat = "2006-01-02 15:04"

// DateFormat is used where the time of day is noise.
const DateFormat = "2006-01-02"

// Truncate shortens s to at most maxRunes runes, marking the cut with "...".
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return "..."
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:maxRunes-3]), isSpace) + "..."
}

// Preview collapses whitespace runs, including newlines, into single spaces
// and truncates the result.
func Preview(s string, maxRunes int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), maxRunes)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}

// ProgressBar draws an ASCII bar of ProgressBarWidth cells.
func ProgressBar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * ProgressBarWidth / total
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", ProgressBarWidth-filled) + "]"
}

// Plural returns "1 task" or "2 tasks".
func Plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Table lays out rows in left-aligned columns separated by two spaces.
// Trailing padding is trimmed from each line.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		var line strings.Builder
		for i, cell := range cells {
			if i > 0 {
				line.WriteString("  ")
			}
			line.WriteString(cell)
			if i < len(widths) {
				line.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
			}
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteString("\n")
	}

	if len(headers) > 0 {
		writeRow(headers)
		seps := make([]string, len(widths))
		for i, w := range widths {
			seps[i] = strings.Repeat("-", w)
		}
		writeRow(seps)
	}
	for _, row := range rows {
		writeRow(row)
	}

	return sb.String()
}
