// Package util provides text helpers for terminal output.
package util

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// TabWidth is the number of columns a tab expands to in tree output.
const TabWidth = 4

// Truncate shortens s to maxWidth visual columns, adding "..." if it was cut.
// Escape sequences and wide characters are measured correctly. A maxWidth of
// zero or less disables truncation.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 || lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(Ellipsis) {
		return Ellipsis
	}
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// TruncateLines applies Truncate to every line of s after expanding tabs.
func TruncateLines(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return s
	}
	lines := strings.Split(ExpandTabs(s), "\n")
	for i, line := range lines {
		lines[i] = Truncate(line, maxWidth)
	}
	return strings.Join(lines, "\n")
}

// ExpandTabs replaces leading tabs with TabWidth spaces each.
func ExpandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, "\t")
		depth := len(line) - len(trimmed)
		lines[i] = strings.Repeat(" ", depth*TabWidth) + trimmed
	}
	return strings.Join(lines, "\n")
}

// Wrap word-wraps s at width columns. A width of zero or less returns s.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Wordwrap(s, width, "")
}

// Plural returns "1 request" or "3 requests".
func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
