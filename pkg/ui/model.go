package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/herbgraph/pkg/explorer"
	"github.com/vanderheijden86/herbgraph/pkg/export"
	"github.com/vanderheijden86/herbgraph/pkg/metrics"
	"github.com/vanderheijden86/herbgraph/pkg/version"
)

// focus represents which pane receives keys
type focus int

const (
	focusGraph focus = iota
	focusSearch
	focusTree
	focusDetail
	focusGenerate
)

func (f focus) String() string {
	switch f {
	case focusSearch:
		return "search"
	case focusTree:
		return "tree"
	case focusDetail:
		return "detail"
	case focusGenerate:
		return "generate"
	default:
		return "graph"
	}
}

const suggestDelay = 150 * time.Millisecond

// eventMsg carries the outcome of an explorer request back into Update.
type eventMsg struct {
	ev explorer.Event
}

// suggestTickMsg fires after typing pauses; only the latest seq is used.
type suggestTickMsg struct {
	seq    int
	prefix string
}

// exportDoneMsg reports a finished graph export.
type exportDoneMsg struct {
	path string
	err  error
}

// Options configures the TUI.
type Options struct {
	ExportDir    string
	ExportFormat string  // svg, png or json; svg when empty
	FontPath     string  // TrueType font for PNG labels
	SplitRatio   float64 // width share of the graph pane
	StartPane    string  // graph, tree or info
	Clipboard    func(string) error
}

// Model is the top-level Bubble Tea model.
type Model struct {
	exp  *explorer.Explorer
	opts Options

	theme    Theme
	search   SearchBox
	graph    GraphModel
	tree     TreeModel
	viewport viewport.Model
	renderer *MarkdownRenderer
	spinner  spinner.Model
	genForm  *generateForm

	focused   focus
	prevFocus focus
	showHelp  bool
	pending   int
	suggestID int

	width  int
	height int
	ready  bool

	statusMsg     string
	statusIsError bool
}

// NewModel builds the TUI around an explorer session.
func NewModel(exp *explorer.Explorer, opts Options) Model {
	if opts.SplitRatio < 0.2 || opts.SplitRatio > 0.8 {
		opts.SplitRatio = 0.55
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = "svg"
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	m := Model{
		exp:      exp,
		opts:     opts,
		theme:    theme,
		search:   NewSearchBox(theme),
		graph:    NewGraphModel(theme),
		tree:     NewTreeModel(theme),
		viewport: viewport.New(40, 10),
		renderer: NewMarkdownRenderer(40),
		spinner:  sp,
	}
	switch opts.StartPane {
	case "tree":
		m.focused = focusTree
	case "info":
		m.focused = focusDetail
	default:
		m.focused = focusSearch
		m.search.Focus()
	}
	m.refreshDetail()
	return m
}

// run wraps an explorer command for the Bubble Tea runtime.
func (m *Model) run(c explorer.Command) tea.Cmd {
	if c == nil {
		return nil
	}
	m.pending++
	return func() tea.Msg { return eventMsg{ev: c()} }
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if c := m.exp.LoadTaxonomy(); c != nil {
		cmds = append(cmds, func() tea.Msg { return eventMsg{ev: c()} })
	}
	if m.focused == focusSearch {
		cmds = append(cmds, m.search.Focus())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// huh.Form needs every message type, not just keys.
	if m.genForm != nil {
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.closeGenerateForm()
				return m, nil
			}
		}
		switch msg.(type) {
		case eventMsg, spinner.TickMsg, suggestTickMsg, exportDoneMsg:
		default:
			cmd := m.genForm.Update(msg)
			switch {
			case m.genForm.Done():
				addition, n := m.genForm.Values()
				m.closeGenerateForm()
				return m, m.startGenerate(addition, n)
			case m.genForm.Aborted():
				m.closeGenerateForm()
				return m, nil
			}
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case eventMsg:
		if m.pending > 0 {
			m.pending--
		}
		cmds = append(cmds, m.apply(msg.ev))

	case suggestTickMsg:
		if msg.seq == m.suggestID {
			cmds = append(cmds, m.run(m.exp.Suggest(msg.prefix)))
		}

	case exportDoneMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("导出失败：%v", msg.err), true)
		} else {
			m.setStatus("已导出到 "+msg.path, false)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

// apply folds an event into the session and syncs the panes.
func (m *Model) apply(ev explorer.Event) tea.Cmd {
	res := m.exp.Apply(ev)
	if res.Stale {
		return nil
	}
	m.handleResult(res)

	switch ev := ev.(type) {
	case explorer.GraphLoaded:
		if ev.Err == nil && m.exp.HasGraph() {
			m.tree.Reveal(ev.Term)
			m.selectTerm(ev.Term)
			if res.Notice == "" {
				m.setStatus(fmt.Sprintf("「%s」：%d 个节点", ev.Term, m.graph.TotalCount()), false)
			}
		}
	case explorer.NodeExpanded:
		if ev.Err != nil && res.Notice == "" {
			m.setStatus(fmt.Sprintf("展开失败：%v", ev.Err), true)
		}
	case explorer.SuggestionsLoaded:
		m.search.SetSuggestions(m.exp.Suggestions())
	case explorer.TaxonomyLoaded:
		if ev.Err == nil {
			m.tree.SetTree(m.exp.Taxonomy())
			if term := m.exp.Term(); term != "" {
				m.tree.Reveal(term)
			}
		}
	case explorer.TextGenerated:
		if ev.Err != nil && res.Notice == "" {
			m.setStatus(fmt.Sprintf("生成失败：%v", ev.Err), true)
		}
	}

	m.refreshDetail()
	return m.run(res.Next)
}

// handleResult applies the parts of a Result every operation shares.
func (m *Model) handleResult(res explorer.Result) {
	if res.Notice != "" {
		m.setStatus(res.Notice, res.Err != nil)
	}
	if res.Render {
		m.graph.SetGraph(m.exp.Snapshot())
	}
}

// selectTerm moves the graph cursor onto the node named after the search.
func (m *Model) selectTerm(term string) {
	for _, n := range m.exp.Snapshot().Nodes() {
		if n.Label() == term {
			m.graph.SelectByID(n.ID)
			return
		}
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.statusMsg = s
	m.statusIsError = isErr
}

func (m *Model) setFocus(f focus) tea.Cmd {
	if f == m.focused {
		return nil
	}
	m.prevFocus = m.focused
	m.focused = f
	if f == focusSearch {
		return m.search.Focus()
	}
	m.search.Blur()
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.focused == focusSearch {
		return m.handleSearchKeys(msg)
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "/":
		return m, m.setFocus(focusSearch)
	case "tab":
		next := map[focus]focus{focusGraph: focusTree, focusTree: focusDetail, focusDetail: focusGraph}
		return m, m.setFocus(next[m.focused])
	case "esc":
		return m, m.setFocus(focusGraph)
	case "b":
		m.handleResult(m.exp.Back())
		m.refreshDetail()
		return m, nil
	case "x":
		m.handleResult(m.exp.Clear())
		m.tree.CollapseAll()
		m.search.Reset()
		m.setStatus("已清空", false)
		m.refreshDetail()
		return m, nil
	case "g":
		return m, m.openGenerateForm()
	case "y":
		m.copyGenerated()
		return m, nil
	case "e":
		return m, m.exportGraph()
	case "v":
		m.graph.ToggleCanvas()
		return m, nil
	}

	switch m.focused {
	case focusGraph:
		return m.handleGraphKeys(msg)
	case focusTree:
		return m.handleTreeKeys(msg)
	case focusDetail:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m, m.selectPlant(m.search.Choice())
	case "esc":
		m.exp.DismissSuggestions()
		m.search.SetSuggestions(nil)
		return m, m.setFocus(focusGraph)
	case "down", "ctrl+n":
		m.search.Next()
		return m, nil
	case "up", "ctrl+p":
		m.search.Prev()
		return m, nil
	case "tab":
		m.exp.DismissSuggestions()
		m.search.SetSuggestions(nil)
		return m, m.setFocus(focusGraph)
	}

	cmd, changed := m.search.Update(msg)
	if !changed {
		return m, cmd
	}
	m.suggestID++
	prefix := strings.TrimSpace(m.search.Value())
	if prefix == "" {
		m.exp.Suggest("")
		m.search.SetSuggestions(nil)
		return m, cmd
	}
	seq := m.suggestID
	tick := tea.Tick(suggestDelay, func(time.Time) tea.Msg {
		return suggestTickMsg{seq: seq, prefix: prefix}
	})
	return m, tea.Batch(cmd, tick)
}

func (m Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.graph.MoveDown()
	case "k", "up":
		m.graph.MoveUp()
	case "pgdown", "ctrl+d":
		m.graph.PageDown()
	case "pgup", "ctrl+u":
		m.graph.PageUp()
	case "enter", "l":
		id := m.graph.SelectedID()
		c, err := m.exp.Expand(id)
		if err != nil {
			m.setStatus(fmt.Sprintf("无法展开：%v", err), true)
			return m, nil
		}
		if n, ok := m.graph.SelectedNode(); ok {
			m.setStatus("正在展开 "+n.Label()+"…", false)
		}
		return m, m.run(c)
	case "i":
		n, ok := m.graph.SelectedNode()
		if !ok {
			return m, nil
		}
		c, err := m.exp.LookupInfo(n.Label())
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.refreshDetail()
		return m, m.run(c)
	}
	m.refreshDetail()
	return m, nil
}

func (m Model) handleTreeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.tree.MoveDown()
	case "k", "up":
		m.tree.MoveUp()
	case "l", "right":
		m.tree.ExpandOrMoveToChild()
	case "h", "left":
		m.tree.CollapseOrJumpToParent()
	case "enter", " ":
		if name, ok := m.tree.SelectedPlant(); ok {
			return m, m.selectPlant(name)
		}
		m.tree.ToggleExpand()
	}
	return m, nil
}

// selectPlant searches for name and loads its info card.
func (m *Model) selectPlant(name string) tea.Cmd {
	c, err := m.exp.SelectPlant(name)
	if err != nil {
		if errors.Is(err, explorer.ErrEmptyTerm) {
			m.setStatus(explorer.NoticeEmptyTerm, true)
		} else {
			m.setStatus(err.Error(), true)
		}
		return nil
	}
	m.search.SetValue(strings.TrimSpace(name))
	m.search.SetSuggestions(nil)
	m.suggestID++
	m.setStatus("正在搜索「"+strings.TrimSpace(name)+"」…", false)
	cmds := make([]tea.Cmd, 0, len(c)+1)
	for _, cmd := range c {
		cmds = append(cmds, m.run(cmd))
	}
	cmds = append(cmds, m.setFocus(focusGraph))
	m.refreshDetail()
	return tea.Batch(cmds...)
}

func (m *Model) openGenerateForm() tea.Cmd {
	name := m.exp.Info().Name
	if name == "" {
		m.setStatus(explorer.NoticeNoPlant, true)
		return nil
	}
	m.genForm = newGenerateForm(name, m.width-4)
	m.prevFocus = m.focused
	m.focused = focusGenerate
	return m.genForm.Init()
}

func (m *Model) closeGenerateForm() {
	m.genForm = nil
	m.focused = m.prevFocus
}

func (m *Model) startGenerate(addition string, n int) tea.Cmd {
	c, err := m.exp.Generate(addition, n)
	if err != nil {
		m.setStatus(explorer.NoticeNoPlant, true)
		return nil
	}
	m.setStatus(explorer.GeneratingText, false)
	m.refreshDetail()
	return m.run(c)
}

func (m *Model) copyGenerated() {
	text := m.exp.Generated()
	if text == "" || text == explorer.GeneratingText || text == explorer.GenerateFailed {
		m.setStatus("没有可复制的文案", true)
		return
	}
	if err := m.opts.Clipboard(text); err != nil {
		m.setStatus(fmt.Sprintf("复制失败：%v", err), true)
		return
	}
	m.setStatus("文案已复制到剪贴板", false)
}

// exportGraph writes the displayed graph in the background.
func (m *Model) exportGraph() tea.Cmd {
	snap := m.exp.Snapshot()
	if snap.NodeCount() == 0 {
		m.setStatus("没有可导出的图", true)
		return nil
	}
	term := m.exp.Term()
	path := filepath.Join(m.opts.ExportDir, exportFileName(term, m.opts.ExportFormat, time.Now()))
	opts := export.GraphSnapshotOptions{
		Path:     path,
		Format:   m.opts.ExportFormat,
		Title:    "herbgraph",
		Term:     term,
		Snapshot: snap,
		FontPath: m.opts.FontPath,
	}
	m.setStatus("正在导出…", false)
	return func() tea.Msg {
		return exportDoneMsg{path: path, err: export.SaveGraphSnapshot(opts)}
	}
}

func exportFileName(term, format string, now time.Time) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, term)
	if clean == "" {
		clean = "graph"
	}
	return fmt.Sprintf("herbgraph-%s-%s.%s", clean, now.Format("20060102-150405"), format)
}

// layoutSizes returns the widths of the two columns and the body height.
func (m Model) layoutSizes() (left, right, body int) {
	body = m.height - 2 - m.searchHeight()
	if body < 4 {
		body = 4
	}
	left = int(float64(m.width) * m.opts.SplitRatio)
	right = m.width - left
	return left, right, body
}

func (m Model) searchHeight() int {
	n := len(m.search.Suggestions())
	if n > maxVisibleSuggestions {
		n = maxVisibleSuggestions + 1
	}
	return 1 + n
}

// treeHeight is the share of the right column given to the taxonomy tree.
func treeHeight(body int) int {
	h := body * 2 / 5
	if h < 4 {
		h = 4
	}
	return h
}

func (m *Model) resize() {
	_, right, body := m.layoutSizes()
	m.search.SetWidth(m.width)
	detailH := body - treeHeight(body) - 3
	if detailH < 1 {
		detailH = 1
	}
	m.viewport.Width = right - 2
	m.viewport.Height = detailH
	m.renderer.SetWidth(right - 4)
	m.refreshDetail()
}

func (m *Model) refreshDetail() {
	n, ok := m.graph.SelectedNode()
	m.viewport.SetContent(m.renderer.Render(detailMarkdown(m.exp, n, ok)))
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	defer metrics.Timer(metrics.UIRender)()

	header := m.theme.Header.Render("🌿 herbgraph " + version.Version)
	if term := m.exp.Term(); term != "" {
		header += m.theme.SecondaryText.Render(fmt.Sprintf("  %s · 历史 %d", term, m.exp.HistoryLen()))
	}

	var body string
	switch {
	case m.genForm != nil:
		body = lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, m.genForm.View())
	case m.showHelp:
		help := RenderContextHelp(m.helpContext(), m.theme, m.width)
		body = lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, help)
	default:
		left, right, bodyH := m.layoutSizes()
		graphTitle := "知识图谱"
		if m.graph.CanvasMode() {
			graphTitle += " · 布局"
		}
		graphPane := renderPanel(graphTitle, m.graph.View(left-2, bodyH-3), left, bodyH, m.focused == focusGraph)

		treeH := treeHeight(bodyH)
		treePane := renderPanel("植物分类", m.tree.View(right-2, treeH-3), right, treeH, m.focused == focusTree)
		detailPane := renderPanel("详情", m.viewport.View(), right, bodyH-treeH, m.focused == focusDetail)

		body = lipgloss.JoinVertical(lipgloss.Left,
			m.search.View(m.width),
			lipgloss.JoinHorizontal(lipgloss.Top, graphPane, lipgloss.JoinVertical(lipgloss.Left, treePane, detailPane)),
		)
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderFooter()))
}

func (m Model) renderFooter() string {
	var left string
	if m.pending > 0 {
		left = m.spinner.View() + " "
	}
	if m.statusMsg != "" {
		style := m.theme.SuccessText
		if m.statusIsError {
			style = m.theme.ErrorText
		}
		left += style.Render(m.statusMsg)
	} else {
		left += RenderKeyHints(
			[2]string{"/", "搜索"},
			[2]string{"enter", "展开"},
			[2]string{"b", "返回"},
			[2]string{"x", "清空"},
			[2]string{"g", "生成"},
			[2]string{"y", "复制"},
			[2]string{"e", "导出"},
			[2]string{"v", "布局"},
			[2]string{"tab", "切换"},
			[2]string{"?", "帮助"},
			[2]string{"q", "退出"},
		)
	}
	return truncateStyled(left, m.width)
}

// truncateStyled cuts styled text to width cells.
func truncateStyled(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

// Accessors used by tests and the CLI.

// Focus returns the name of the focused pane.
func (m Model) Focus() string { return m.focused.String() }

// Status returns the status line text and whether it reports an error.
func (m Model) Status() (string, bool) { return m.statusMsg, m.statusIsError }

// Pending returns the number of requests in flight.
func (m Model) Pending() int { return m.pending }

// Graph returns the graph pane.
func (m Model) Graph() *GraphModel { return &m.graph }

// Tree returns the taxonomy pane.
func (m Model) Tree() *TreeModel { return &m.tree }

// Search returns the search box.
func (m Model) Search() *SearchBox { return &m.search }

// helpContext is the pane the help overlay describes.
func (m Model) helpContext() Context {
	m.showHelp = false
	return m.CurrentContext()
}

// GenerateFormOpen reports whether the generation form is shown.
func (m Model) GenerateFormOpen() bool { return m.genForm != nil }

// DetailContent returns the unrendered detail pane.
func (m Model) DetailContent() string {
	n, ok := m.graph.SelectedNode()
	return detailMarkdown(m.exp, n, ok)
}
