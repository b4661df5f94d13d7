package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#50FA7B"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Type badge text color (white on the node fill)
	ColorTypeBadgeText = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - For split view layouts
// ══════════════════════════════════════════════════════════════════════════════

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	panelTitleStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	keyHintStyle    = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	hintTextStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
)

// RenderTypeBadge returns a node type rendered on its fill color.
func RenderTypeBadge(typ string, fill lipgloss.TerminalColor) string {
	if typ == "" {
		typ = "?"
	}
	return lipgloss.NewStyle().
		Foreground(ColorTypeBadgeText).
		Background(fill).
		Padding(0, 1).
		Render(typ)
}

// RenderDivider returns a horizontal rule of the given width.
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Foreground(ColorBgHighlight).Render(strings.Repeat("─", width))
}

// RenderKeyHints renders "key action" pairs for the footer.
func RenderKeyHints(pairs ...[2]string) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, keyHintStyle.Render(p[0])+" "+hintTextStyle.Render(p[1]))
	}
	return strings.Join(parts, hintTextStyle.Render("  "))
}

// renderPanel wraps body in a titled panel border sized to width x height.
func renderPanel(title, body string, width, height int, focused bool) string {
	style := PanelStyle
	if focused {
		style = FocusedPanelStyle
	}
	innerW := width - 2
	innerH := height - 2
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}
	content := panelTitleStyle.Render(truncate(title, innerW))
	if innerH > 1 {
		content += "\n" + clipLines(body, innerW, innerH-1)
	}
	return style.Width(innerW).Height(innerH).Render(content)
}
