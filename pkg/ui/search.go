package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const maxVisibleSuggestions = 8

// SearchBox is the plant name input with its autocomplete list.
type SearchBox struct {
	input       textinput.Model
	suggestions []string
	cursor      int // -1 when no suggestion is highlighted
	theme       Theme
}

// NewSearchBox creates an unfocused search box.
func NewSearchBox(theme Theme) SearchBox {
	ti := textinput.New()
	ti.Placeholder = "输入植物名称，例如：人参"
	ti.Prompt = "🔍 "
	ti.CharLimit = 100
	ti.Width = 40
	return SearchBox{input: ti, cursor: -1, theme: theme}
}

func (s *SearchBox) Focus() tea.Cmd { return s.input.Focus() }
func (s *SearchBox) Blur()          { s.input.Blur() }
func (s *SearchBox) Focused() bool  { return s.input.Focused() }

// SetWidth sets the visible width of the input.
func (s *SearchBox) SetWidth(w int) {
	w -= 4
	if w < 10 {
		w = 10
	}
	s.input.Width = w
}

// Value returns the typed text.
func (s *SearchBox) Value() string { return s.input.Value() }

// SetValue replaces the typed text.
func (s *SearchBox) SetValue(v string) {
	s.input.SetValue(v)
	s.input.CursorEnd()
}

// Reset empties the input and the list.
func (s *SearchBox) Reset() {
	s.input.Reset()
	s.SetSuggestions(nil)
}

// SetSuggestions replaces the autocomplete list and drops the highlight.
func (s *SearchBox) SetSuggestions(names []string) {
	s.suggestions = names
	s.cursor = -1
}

// Suggestions returns the autocomplete list.
func (s *SearchBox) Suggestions() []string { return s.suggestions }

// Next highlights the next suggestion.
func (s *SearchBox) Next() {
	if s.cursor < len(s.suggestions)-1 && s.cursor < maxVisibleSuggestions-1 {
		s.cursor++
	}
}

// Prev highlights the previous suggestion, returning to the input above the
// first one.
func (s *SearchBox) Prev() {
	if s.cursor >= 0 {
		s.cursor--
	}
}

// Choice returns the highlighted suggestion, or the typed text when none is
// highlighted.
func (s *SearchBox) Choice() string {
	if s.cursor >= 0 && s.cursor < len(s.suggestions) {
		return s.suggestions[s.cursor]
	}
	return strings.TrimSpace(s.input.Value())
}

// Update forwards a message to the input and reports whether the text
// changed.
func (s *SearchBox) Update(msg tea.Msg) (tea.Cmd, bool) {
	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return cmd, s.input.Value() != before
}

// View renders the input and, below it, the visible suggestions.
func (s *SearchBox) View(width int) string {
	lines := []string{s.input.View()}
	t := s.theme
	for i, name := range s.suggestions {
		if i >= maxVisibleSuggestions {
			lines = append(lines, t.MutedText.Render("  …"))
			break
		}
		row := "  " + truncate(name, width-2)
		if i == s.cursor {
			row = t.Renderer.NewStyle().Foreground(t.Primary).Background(t.Highlight).Bold(true).Render(padRight(row, width))
		} else {
			row = t.SecondaryText.Render(row)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}
