package util

import "strings"

// NormalizeText prepares message text for storage and display.
// - CRLF and lone CR become LF
// - Trailing whitespace on each line is dropped
// - Leading and trailing blank lines are dropped
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// FirstLine returns the first non-blank line of s, for one-line previews.
func FirstLine(s string) string {
	for _, l := range strings.Split(NormalizeText(s), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
