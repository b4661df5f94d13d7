package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Context represents the current UI context for context-sensitive help
type Context string

const (
	ContextHelp     Context = "help"
	ContextGenerate Context = "generate"
	ContextSearch   Context = "search"
	ContextGraph    Context = "graph"
	ContextCanvas   Context = "canvas"
	ContextTree     Context = "tree"
	ContextDetail   Context = "detail"
)

// CurrentContext returns the current UI context identifier.
// Priority order: overlays → focused pane
func (m Model) CurrentContext() Context {
	if m.showHelp {
		return ContextHelp
	}
	switch m.focused {
	case focusGenerate:
		return ContextGenerate
	case focusSearch:
		return ContextSearch
	case focusTree:
		return ContextTree
	case focusDetail:
		return ContextDetail
	}
	if m.graph.CanvasMode() {
		return ContextCanvas
	}
	return ContextGraph
}

// ContextHelpContent contains compact help content for each context.
var ContextHelpContent = map[Context]string{
	ContextSearch: contextHelpSearch,
	ContextGraph:  contextHelpGraph,
	ContextCanvas: contextHelpCanvas,
	ContextTree:   contextHelpTree,
	ContextDetail: contextHelpDetail,
}

// GetContextHelp returns the help content for a given context.
// Falls back to generic help if the context has no specific content.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// RenderContextHelp renders the help modal for ctx.
func RenderContextHelp(ctx Context, theme Theme, width int) string {
	content := GetContextHelp(ctx)
	r := theme.Renderer

	modalWidth := 56
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	var b strings.Builder
	b.WriteString(r.NewStyle().Bold(true).Foreground(theme.Primary).Render("快捷键"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-6)))
	b.WriteString("\n\n")
	b.WriteString(r.NewStyle().Foreground(theme.Subtext).Render(content))
	b.WriteString("\n\n")
	b.WriteString(r.NewStyle().Foreground(theme.Muted).Italic(true).Render("? 或 Esc 关闭"))

	return r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth).
		Render(b.String())
}

const contextHelpSearch = `## 搜索

  输入      实时补全植物名称
  ↑/↓       选择补全项
  Enter     搜索并加载植物信息
  Esc/Tab   关闭补全，回到图谱`

const contextHelpGraph = `## 知识图谱

  j/k       上下移动
  ^d/^u     翻页
  Enter/l   展开节点
  i         查看该节点的植物信息
  v         切换力导向布局
  b         返回上一步
  x         清空

  /  搜索   g  生成文案   y  复制文案
  e  导出图谱   Tab  切换面板   q  退出`

const contextHelpCanvas = `## 力导向布局

  节点位置由弹簧模型计算，每次展开后重新布局。
  选中的节点高亮显示，其余标签截断为 12 格。

  j/k       切换选中节点
  Enter     展开选中节点
  v         回到关系视图`

const contextHelpTree = `## 植物分类

  j/k       上下移动
  l/→       展开或进入子项
  h/←       折叠或回到上级
  Enter     选择植物，或展开/折叠科属

  搜索后会自动展开并标记对应植物。`

const contextHelpDetail = `## 详情

  j/k       滚动
  ^d/^u     翻页

  植物信息加载后会自动请求脚本建议。
  g 打开生成表单，y 复制生成的文案。`

const contextHelpGeneric = `## herbgraph

  /  搜索   Enter  展开   b  返回   x  清空
  g  生成   y  复制   e  导出   ?  帮助   q  退出`
