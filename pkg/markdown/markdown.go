// Package markdown renders note content.
package markdown

import (
	"regexp"
	"strings"

	"gitlab.com/golang-commonmark/markdown"
)

// Raw HTML in notes is escaped, never passed through.
var renderer = markdown.New(
	markdown.HTML(false),
	markdown.XHTMLOutput(true),
	markdown.Linkify(true),
	markdown.Typographer(false),
	markdown.Breaks(true),
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Render converts CommonMark source to HTML.
func Render(src string) string {
	return renderer.RenderToString([]byte(CleanText(src)))
}

// CleanText normalises line endings to LF, collapses runs of blank lines and
// trims surrounding whitespace.
func CleanText(src string) string {
	s := strings.ReplaceAll(src, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// FirstLine returns the first non blank line of src without heading markers.
func FirstLine(src string) string {
	for _, line := range strings.Split(CleanText(src), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line != "" {
			return line
		}
	}
	return ""
}
