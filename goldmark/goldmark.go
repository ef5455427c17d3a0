// Package goldmark renders assistant markdown to ANSI-styled terminal
// output, using goldmark for parsing and lipgloss for styling.
package goldmark

import "github.com/parleychat/parley"

// Renderer converts markdown source to styled terminal text. It is stateless
// apart from its styles and is safe to reuse across messages. Partial
// markdown from an in-flight generation renders on a best-effort basis;
// unterminated constructs fall back to plain text.
type Renderer struct {
	styles styles
}

// New creates a Renderer using colors from theme.
func New(theme parley.Theme) *Renderer {
	return &Renderer{styles: newStyles(theme)}
}

// Render parses source and returns ANSI-styled output. Paragraphs and list
// items word-wrap to width; code blocks keep their lines intact. A width of
// zero or less falls back to 80 columns.
func (r *Renderer) Render(source string, width int) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return r.renderDocument([]byte(source), width)
}
