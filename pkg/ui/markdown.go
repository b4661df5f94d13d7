package ui

import (
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// MarkdownRenderer renders the detail pane, rebuilding the glamour renderer
// when the wrap width changes.
type MarkdownRenderer struct {
	width int
	style string
	tr    *glamour.TermRenderer
}

// NewMarkdownRenderer picks a glamour style for the terminal and wraps at
// width.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	style := "dark"
	switch {
	case TermProfile <= colorprofile.Ascii:
		style = "notty"
	case !lipgloss.HasDarkBackground():
		style = "light"
	}
	r := &MarkdownRenderer{style: style}
	r.SetWidth(width)
	return r
}

// SetWidth changes the wrap width.
func (r *MarkdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && r.tr != nil {
		return
	}
	r.width = width
	r.tr, _ = glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
}

// Render renders md, returning it unchanged if glamour fails.
func (r *MarkdownRenderer) Render(md string) string {
	if r.tr == nil {
		return md
	}
	out, err := r.tr.Render(md)
	if err != nil {
		return md
	}
	return out
}
