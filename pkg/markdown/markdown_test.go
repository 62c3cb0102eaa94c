package markdown_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noteq/noteq/pkg/markdown"
)

func TestRender(t *testing.T) {
	t.Run("Headings and emphasis", func(t *testing.T) {
		html := markdown.Render("# Title\n\nsome **bold** text")
		assert.Contains(t, html, "<h1>Title</h1>")
		assert.Contains(t, html, "<strong>bold</strong>")
	})

	t.Run("Lists", func(t *testing.T) {
		html := markdown.Render("- one\n- two")
		assert.Contains(t, html, "<ul>")
		assert.Contains(t, html, "<li>one</li>")
	})

	t.Run("Escapes raw HTML", func(t *testing.T) {
		html := markdown.Render("<script>alert(1)</script>")
		assert.NotContains(t, html, "<script>")
		assert.Contains(t, html, "&lt;script&gt;")
	})

	t.Run("Empty input", func(t *testing.T) {
		assert.Empty(t, markdown.Render("  \n\n "))
	})
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"CRLF", "a\r\nb", "a\nb"},
		{"CR", "a\rb", "a\nb"},
		{"Collapses blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"Keeps single blank line", "a\n\nb", "a\n\nb"},
		{"Trims", "  \n a \n ", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, markdown.CleanText(tt.in))
		})
	}
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Photosynthesis", markdown.FirstLine("\n\n## Photosynthesis\nbody"))
	assert.Equal(t, "plain", markdown.FirstLine("plain\nsecond"))
	assert.Equal(t, "", markdown.FirstLine("   "))
}
