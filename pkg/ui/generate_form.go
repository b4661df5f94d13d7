package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// generateForm collects the extra request text and the number of variants
// for a generation.
type generateForm struct {
	form     *huh.Form
	plant    string
	addition string
	n        int
}

func newGenerateForm(plant string, width int) *generateForm {
	g := &generateForm{plant: plant, n: 1}
	if width > 80 {
		width = 80
	}
	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("补充要求").
				Description("为「"+plant+"」生成文案，可补充风格、受众等要求").
				CharLimit(2000).
				Value(&g.addition),
			huh.NewSelect[int]().
				Title("生成数量").
				Options(
					huh.NewOption("1 条", 1),
					huh.NewOption("2 条", 2),
					huh.NewOption("3 条", 3),
					huh.NewOption("5 条", 5),
				).
				Value(&g.n),
		),
	).WithTheme(huh.ThemeDracula()).WithWidth(width).WithShowHelp(true)
	return g
}

func (g *generateForm) Init() tea.Cmd { return g.form.Init() }

func (g *generateForm) Update(msg tea.Msg) tea.Cmd {
	m, cmd := g.form.Update(msg)
	if f, ok := m.(*huh.Form); ok {
		g.form = f
	}
	return cmd
}

func (g *generateForm) Done() bool    { return g.form.State == huh.StateCompleted }
func (g *generateForm) Aborted() bool { return g.form.State == huh.StateAborted }

// Values returns the trimmed addition and the variant count.
func (g *generateForm) Values() (string, int) {
	return strings.TrimSpace(g.addition), g.n
}

func (g *generateForm) View() string { return g.form.View() }
