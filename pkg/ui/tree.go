package ui

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/herbgraph/pkg/taxonomy"
)

// TreeModel is the family / genus / plant browser.
type TreeModel struct {
	tree     *taxonomy.Tree
	expanded map[*taxonomy.Node]bool
	flatList []*taxonomy.Node // visible nodes in display order
	cursor   int
	offset   int
	marked   *taxonomy.Node // plant revealed by the last search
	theme    Theme
}

// NewTreeModel creates an empty tree pane.
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{theme: theme, expanded: make(map[*taxonomy.Node]bool)}
}

// SetTree replaces the tree. Everything starts collapsed.
func (t *TreeModel) SetTree(tree *taxonomy.Tree) {
	t.tree = tree
	t.expanded = make(map[*taxonomy.Node]bool)
	t.marked = nil
	t.cursor = 0
	t.offset = 0
	t.rebuildFlatList()
}

// Loaded reports whether a tree has been set.
func (t *TreeModel) Loaded() bool { return t.tree != nil }

func (t *TreeModel) rebuildFlatList() {
	t.flatList = t.flatList[:0]
	if t.tree == nil {
		return
	}
	var walk func(nodes []*taxonomy.Node)
	walk = func(nodes []*taxonomy.Node) {
		for _, n := range nodes {
			t.flatList = append(t.flatList, n)
			if t.expanded[n] {
				walk(n.Children)
			}
		}
	}
	walk(t.tree.Roots)
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

// VisibleCount returns the number of rows currently shown.
func (t *TreeModel) VisibleCount() int { return len(t.flatList) }

// SelectedNode returns the node under the cursor.
func (t *TreeModel) SelectedNode() *taxonomy.Node {
	if t.cursor >= 0 && t.cursor < len(t.flatList) {
		return t.flatList[t.cursor]
	}
	return nil
}

// SelectedPlant returns the plant under the cursor.
func (t *TreeModel) SelectedPlant() (string, bool) {
	n := t.SelectedNode()
	if n == nil || n.Level != taxonomy.Plant {
		return "", false
	}
	return n.Name, true
}

// MoveDown moves the cursor down in the flat list.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
	}
}

// MoveUp moves the cursor up in the flat list.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
	}
}

// ToggleExpand expands or collapses the currently selected node.
func (t *TreeModel) ToggleExpand() {
	node := t.SelectedNode()
	if node != nil && len(node.Children) > 0 {
		t.expanded[node] = !t.expanded[node]
		t.rebuildFlatList()
	}
}

// ExpandOrMoveToChild expands a collapsed node, or steps onto the first
// child of an expanded one.
func (t *TreeModel) ExpandOrMoveToChild() {
	node := t.SelectedNode()
	if node == nil || len(node.Children) == 0 {
		return
	}
	if !t.expanded[node] {
		t.expanded[node] = true
		t.rebuildFlatList()
		return
	}
	t.MoveDown()
}

// CollapseOrJumpToParent collapses an expanded node, or moves to the parent
// of a collapsed one.
func (t *TreeModel) CollapseOrJumpToParent() {
	node := t.SelectedNode()
	if node == nil {
		return
	}
	if t.expanded[node] {
		t.expanded[node] = false
		t.rebuildFlatList()
		return
	}
	if node.Parent != nil {
		t.selectNode(node.Parent)
	}
}

// CollapseAll folds every node and clears the search mark.
func (t *TreeModel) CollapseAll() {
	t.expanded = make(map[*taxonomy.Node]bool)
	t.marked = nil
	t.cursor = 0
	t.offset = 0
	t.rebuildFlatList()
}

// Reveal expands the family and genus holding plant, moves the cursor onto
// it and marks it. It reports false when the plant is not in the tree.
func (t *TreeModel) Reveal(plant string) bool {
	if t.tree == nil {
		return false
	}
	path := t.tree.Path(plant)
	if len(path) == 0 {
		return false
	}
	for _, n := range path[:len(path)-1] {
		t.expanded[n] = true
	}
	t.rebuildFlatList()
	t.marked = path[len(path)-1]
	t.selectNode(t.marked)
	return true
}

// Marked returns the plant revealed by the last search.
func (t *TreeModel) Marked() string {
	if t.marked == nil {
		return ""
	}
	return t.marked.Name
}

func (t *TreeModel) selectNode(n *taxonomy.Node) {
	for i, fn := range t.flatList {
		if fn == n {
			t.cursor = i
			return
		}
	}
}

// View renders the tree into width x height.
func (t *TreeModel) View(width, height int) string {
	th := t.theme
	if t.tree == nil {
		return th.MutedText.Render("正在加载分类…")
	}
	if len(t.flatList) == 0 {
		return th.MutedText.Render("暂无分类数据")
	}

	header := th.SecondaryText.Render(truncate(fmt.Sprintf("%d 种植物", t.tree.PlantCount()), width))
	visible := height - 1
	start, end := scrollWindow(t.cursor, t.offset, visible, len(t.flatList))
	t.offset = start

	lines := []string{header}
	for i := start; i < end; i++ {
		lines = append(lines, t.renderNode(t.flatList[i], i == t.cursor, width))
	}
	return strings.Join(lines, "\n")
}

func (t *TreeModel) renderNode(n *taxonomy.Node, selected bool, width int) string {
	th := t.theme
	prefix := t.buildTreePrefix(n)
	label := t.getExpandIndicator(n) + " " + n.Name
	if n.Level != taxonomy.Plant {
		label += fmt.Sprintf(" (%d)", len(n.Children))
	}
	label = truncate(label, width-len([]rune(prefix)))

	style := th.Renderer.NewStyle().Foreground(th.LevelColor(int(n.Level)))
	switch {
	case selected:
		style = th.Renderer.NewStyle().Foreground(th.Primary).Background(th.Highlight).Bold(true)
	case n == t.marked:
		style = th.Marked
	}
	return th.MutedText.Render(prefix) + style.Render(label)
}

func (t *TreeModel) buildTreePrefix(n *taxonomy.Node) string {
	if n.Parent == nil {
		return ""
	}
	var ancestors []*taxonomy.Node
	for p := n.Parent; p != nil; p = p.Parent {
		ancestors = append([]*taxonomy.Node{p}, ancestors...)
	}

	var b strings.Builder
	// The root itself draws no column.
	for _, a := range ancestors[1:] {
		if t.hasSiblingsBelow(a) {
			b.WriteString("│  ")
		} else {
			b.WriteString("   ")
		}
	}
	if t.hasSiblingsBelow(n) {
		b.WriteString("├─ ")
	} else {
		b.WriteString("└─ ")
	}
	return b.String()
}

func (t *TreeModel) hasSiblingsBelow(n *taxonomy.Node) bool {
	siblings := t.tree.Roots
	if n.Parent != nil {
		siblings = n.Parent.Children
	}
	for i, s := range siblings {
		if s == n {
			return i < len(siblings)-1
		}
	}
	return false
}

func (t *TreeModel) getExpandIndicator(n *taxonomy.Node) string {
	if len(n.Children) == 0 {
		return "•"
	}
	if t.expanded[n] {
		return "▾"
	}
	return "▸"
}
