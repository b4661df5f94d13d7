package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
	"github.com/vanderheijden86/herbgraph/pkg/layout"
)

// GraphModel is the knowledge graph pane: a list of nodes beside either the
// selected node's neighbourhood or a force-directed canvas of the whole graph.
type GraphModel struct {
	snap         graphstate.Snapshot
	nodes        map[string]graphstate.Node
	sortedIDs    []string
	selectedIdx  int
	scrollOffset int
	canvas       bool
	theme        Theme

	// Precomputed relationships
	outgoing map[string][]graphstate.Link // links whose source is the key
	incoming map[string][]graphstate.Link // links whose target is the key

	positions layout.Result
}

// NewGraphModel creates an empty graph pane.
func NewGraphModel(theme Theme) GraphModel {
	return GraphModel{theme: theme}
}

// SetGraph replaces the displayed graph, keeping the selected node when it
// survives the change.
func (g *GraphModel) SetGraph(snap graphstate.Snapshot) {
	selectedID := g.SelectedID()

	g.snap = snap
	g.nodes = make(map[string]graphstate.Node, snap.NodeCount())
	g.sortedIDs = g.sortedIDs[:0]
	for _, n := range snap.Nodes() {
		g.nodes[n.ID] = n
		g.sortedIDs = append(g.sortedIDs, n.ID)
	}
	g.outgoing = make(map[string][]graphstate.Link)
	g.incoming = make(map[string][]graphstate.Link)
	for _, l := range snap.Links() {
		g.outgoing[l.Source] = append(g.outgoing[l.Source], l)
		g.incoming[l.Target] = append(g.incoming[l.Target], l)
	}
	g.positions = layout.Result{}
	if snap.NodeCount() > 0 {
		g.positions = layout.Compute(snap, layout.Options{Width: 1000, Height: 1000, Margin: 40})
	}

	g.selectedIdx = 0
	g.scrollOffset = 0
	if selectedID != "" {
		g.SelectByID(selectedID)
	}
}

// Navigation
func (g *GraphModel) MoveUp() {
	if g.selectedIdx > 0 {
		g.selectedIdx--
	}
}

func (g *GraphModel) MoveDown() {
	if g.selectedIdx < len(g.sortedIDs)-1 {
		g.selectedIdx++
	}
}

func (g *GraphModel) PageUp() {
	g.selectedIdx -= 10
	if g.selectedIdx < 0 {
		g.selectedIdx = 0
	}
}

func (g *GraphModel) PageDown() {
	if len(g.sortedIDs) == 0 {
		return
	}
	g.selectedIdx += 10
	if g.selectedIdx >= len(g.sortedIDs) {
		g.selectedIdx = len(g.sortedIDs) - 1
	}
}

// ToggleCanvas switches between the neighbourhood view and the canvas.
func (g *GraphModel) ToggleCanvas() { g.canvas = !g.canvas }

// CanvasMode reports whether the canvas is shown.
func (g *GraphModel) CanvasMode() bool { return g.canvas }

// SelectedID returns the selected node ID, or "" when the graph is empty.
func (g *GraphModel) SelectedID() string {
	if len(g.sortedIDs) == 0 || g.selectedIdx >= len(g.sortedIDs) {
		return ""
	}
	return g.sortedIDs[g.selectedIdx]
}

// SelectedNode returns the selected node.
func (g *GraphModel) SelectedNode() (graphstate.Node, bool) {
	n, ok := g.nodes[g.SelectedID()]
	return n, ok
}

// SelectByID selects a node by its ID.
func (g *GraphModel) SelectByID(id string) bool {
	for i, sortedID := range g.sortedIDs {
		if sortedID == id {
			g.selectedIdx = i
			return true
		}
	}
	return false
}

func (g *GraphModel) TotalCount() int {
	return len(g.sortedIDs)
}

// Snapshot returns the graph being displayed.
func (g *GraphModel) Snapshot() graphstate.Snapshot { return g.snap }

// View renders the pane.
func (g *GraphModel) View(width, height int) string {
	t := g.theme

	if len(g.sortedIDs) == 0 {
		return t.Renderer.NewStyle().
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(t.Secondary).
			Render("输入植物名称开始探索 (/)")
	}

	listWidth := 26
	if width < 70 {
		listWidth = width / 3
	}
	detailWidth := width - listWidth - 1
	if detailWidth < 10 {
		return g.renderNodeList(width, height, t)
	}

	listView := g.renderNodeList(listWidth, height, t)
	var right string
	if g.canvas {
		right = g.renderCanvas(detailWidth, height)
	} else {
		right = g.renderNeighborhood(g.SelectedID(), detailWidth, height, t)
	}

	sepHeight := height
	if sepHeight < 1 {
		sepHeight = 1
	}
	separator := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Render(strings.TrimSuffix(strings.Repeat("│\n", sepHeight), "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, listView, separator, right)
}

// renderNodeList renders the left column with all nodes
func (g *GraphModel) renderNodeList(width, height int, t Theme) string {
	var lines []string

	headerStyle := t.Renderer.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		Width(width)
	lines = append(lines, headerStyle.Render(truncate(fmt.Sprintf("节点 (%d)", len(g.sortedIDs)), width)))

	visible := height - 2
	if visible < 1 {
		visible = 1
	}
	start, end := scrollWindow(g.selectedIdx, g.scrollOffset, visible, len(g.sortedIDs))
	g.scrollOffset = start

	for i := start; i < end; i++ {
		n := g.nodes[g.sortedIDs[i]]
		label := truncate(n.Label(), width-2)
		if i == g.selectedIdx {
			lines = append(lines, t.Renderer.NewStyle().
				Bold(true).
				Foreground(t.Primary).
				Background(t.Highlight).
				Width(width).
				Render("▸ "+label))
			continue
		}
		dot := t.Renderer.NewStyle().Foreground(NodeColor(n)).Render("●")
		lines = append(lines, dot+" "+t.Base.Render(label))
	}

	if len(g.sortedIDs) > visible {
		lines = append(lines, t.Renderer.NewStyle().
			Foreground(t.Secondary).
			Italic(true).
			Render(truncate(fmt.Sprintf("(%d-%d / %d)", start+1, end, len(g.sortedIDs)), width)))
	}
	return strings.Join(lines, "\n")
}

// renderNeighborhood renders the selected node with its outgoing and
// incoming links.
func (g *GraphModel) renderNeighborhood(id string, width, height int, t Theme) string {
	n := g.nodes[id]
	var sections []string

	in := g.incoming[id]
	if len(in) > 0 {
		sections = append(sections, t.SecondaryText.Render(fmt.Sprintf("← 指向此节点 (%d)", len(in))))
		for _, l := range in {
			sections = append(sections, "  "+g.renderLinkLine(l.Source, l.Label, width-2, t))
		}
		sections = append(sections, t.MutedText.Render("  │"))
	}

	sections = append(sections, g.renderEgoNode(n, width, t))

	out := g.outgoing[id]
	if len(out) > 0 {
		sections = append(sections, t.MutedText.Render("  │"))
		sections = append(sections, t.SecondaryText.Render(fmt.Sprintf("→ 关系 (%d)", len(out))))
		for _, l := range out {
			sections = append(sections, "  "+g.renderLinkLine(l.Target, l.Label, width-2, t))
		}
	}
	if len(in) == 0 && len(out) == 0 {
		sections = append(sections, t.MutedText.Render("没有关联节点，按 enter 展开"))
	}
	return clipLines(strings.Join(sections, "\n"), width, height)
}

func (g *GraphModel) renderLinkLine(otherID, label string, width int, t Theme) string {
	other, ok := g.nodes[otherID]
	if !ok {
		other = graphstate.Node{ID: otherID}
	}
	dot := t.Renderer.NewStyle().Foreground(NodeColor(other)).Render("●")
	text := truncate(fmt.Sprintf("%s ─ %s", label, other.Label()), width-2)
	return dot + " " + text
}

// renderEgoNode renders the selected node prominently
func (g *GraphModel) renderEgoNode(n graphstate.Node, width int, t Theme) string {
	egoWidth := width - 4
	if egoWidth > 40 {
		egoWidth = 40
	}
	if egoWidth < 6 {
		egoWidth = 6
	}
	content := truncate(n.Label(), egoWidth-2)
	content += "\n" + RenderTypeBadge(n.Type, NodeColor(n))
	content += t.MutedText.Render(fmt.Sprintf(" ↓%d ↑%d", len(g.outgoing[n.ID]), len(g.incoming[n.ID])))

	return t.Renderer.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(t.Primary).
		Foreground(t.Primary).
		Bold(true).
		Width(egoWidth).
		Padding(0, 1).
		Render(content)
}

// cell is one terminal cell of the canvas. A wide rune occupies its cell and
// marks the next one as a continuation.
type cell struct {
	r    rune
	node string // owning node ID for labels and markers, "" for edges
	cont bool
}

// renderCanvas draws the force-directed layout scaled into width x height
// cells: links as dotted lines, nodes as colored markers with their labels.
func (g *GraphModel) renderCanvas(width, height int) string {
	if width < 4 || height < 2 {
		return ""
	}
	grid := make([][]cell, height)
	for y := range grid {
		grid[y] = make([]cell, width)
		for x := range grid[y] {
			grid[y][x] = cell{r: ' '}
		}
	}

	project := func(id string) (int, int, bool) {
		p, ok := g.positions.Position(id)
		if !ok || g.positions.Width == 0 || g.positions.Height == 0 {
			return 0, 0, false
		}
		x := int(math.Round(p.X / g.positions.Width * float64(width-1)))
		y := int(math.Round(p.Y / g.positions.Height * float64(height-1)))
		return clampInt(x, 0, width-1), clampInt(y, 0, height-1), true
	}

	for _, l := range g.snap.Links() {
		x0, y0, ok0 := project(l.Source)
		x1, y1, ok1 := project(l.Target)
		if !ok0 || !ok1 {
			continue
		}
		drawLine(grid, x0, y0, x1, y1)
	}

	// Markers first so no label hides a node; the selected label goes last.
	selected := g.SelectedID()
	for _, id := range g.sortedIDs {
		if x, y, ok := project(id); ok {
			putCell(grid[y], x, cell{r: '●', node: id})
		}
	}
	for _, id := range append(g.labelOrder(selected), selected) {
		x, y, ok := project(id)
		if !ok {
			continue
		}
		label := g.nodes[id].Label()
		if id != selected {
			label = truncate(label, 12)
		}
		writeLabel(grid[y], x+1, label, id)
	}

	t := g.theme
	selStyle := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Background(t.Highlight)
	edgeStyle := t.MutedText
	var b strings.Builder
	for y, row := range grid {
		if y > 0 {
			b.WriteByte('\n')
		}
		for _, c := range row {
			if c.cont {
				continue
			}
			s := string(c.r)
			switch {
			case c.node == "":
				if c.r != ' ' {
					s = edgeStyle.Render(s)
				}
			case c.node == selected:
				s = selStyle.Render(s)
			case c.r == '●':
				s = t.Renderer.NewStyle().Foreground(NodeColor(g.nodes[c.node])).Render(s)
			default:
				s = t.Base.Render(s)
			}
			b.WriteString(s)
		}
	}
	return b.String()
}

// drawLine plots a dotted segment with Bresenham's algorithm, leaving
// existing markers and labels untouched.
func drawLine(grid [][]cell, x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if c := &grid[y0][x0]; c.node == "" && !c.cont {
			c.r = '·'
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (g *GraphModel) labelOrder(skip string) []string {
	out := make([]string, 0, len(g.sortedIDs))
	for _, id := range g.sortedIDs {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}

// writeLabel writes s into row from column x, stopping at the row's end or
// at another node's marker.
func writeLabel(row []cell, x int, s, id string) {
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > len(row) {
			return
		}
		for i := x; i < x+w; i++ {
			if row[i].r == '●' && row[i].node != "" {
				return
			}
		}
		putCell(row, x, cell{r: r, node: id})
		for i := 1; i < w; i++ {
			putCell(row, x+i, cell{node: id, cont: true})
		}
		x += w
	}
}

// putCell stores c at x, blanking any wide rune it splits.
func putCell(row []cell, x int, c cell) {
	old := row[x]
	if old.cont && !c.cont && x > 0 {
		row[x-1] = cell{r: ' '}
	}
	if !old.cont && x+1 < len(row) && row[x+1].cont {
		row[x+1] = cell{r: ' '}
	}
	row[x] = c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
