// Package export writes the displayed knowledge graph to static images.
package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/herbgraph/pkg/debug"
	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
	"github.com/vanderheijden86/herbgraph/pkg/layout"
	"github.com/vanderheijden86/herbgraph/pkg/metrics"
)

// GraphSnapshotOptions controls graph snapshot export behaviour.
type GraphSnapshotOptions struct {
	Path     string              // Output path; format inferred from extension when Format empty
	Format   string              // "svg", "png" or "json" (case-insensitive). If empty, inferred from Path.
	Title    string              // Optional title rendered in the summary block
	Term     string              // Search term that produced the graph
	Snapshot graphstate.Snapshot // Graph to render
	Layout   layout.Options      // Zero value uses layout.DefaultOptions
	FontPath string              // TrueType font for PNG labels; CJK text needs one
}

// SaveGraphSnapshot renders a static graph snapshot (SVG or PNG) with a small
// summary block and a legend of the node types present, or writes the raw
// graph as JSON.
func SaveGraphSnapshot(opts GraphSnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotExport)()

	if opts.Snapshot.NodeCount() == 0 {
		return fmt.Errorf("no nodes to export")
	}

	format, path, err := resolveFormat(opts.Format, opts.Path)
	if err != nil {
		return err
	}
	opts.Path = path
	defer debug.LogEnterExit("export " + format)()

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	if format == "json" {
		return saveGraphJSON(opts)
	}

	result := buildLayout(opts)

	switch format {
	case "svg":
		return renderSVG(opts, result)
	case "png":
		return renderPNG(opts, result)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

func resolveFormat(format, path string) (string, string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		case ".json":
			format = "json"
		default:
			format = "svg"
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" && format != "json" {
		return "", "", fmt.Errorf("unsupported format %q (want svg, png or json)", format)
	}
	if path == "" {
		return "", "", fmt.Errorf("output path is required")
	}
	return format, path, nil
}

// --- layout computation ----------------------------------------------------

const (
	nodeRadius   = 18.0
	headerHeight = 110.0
)

type layoutNode struct {
	ID     string
	Label  string
	Type   string
	Fill   color.RGBA
	X, Y   float64
	Degree int
}

type layoutEdge struct {
	From, To string
	Label    string
}

type legendEntry struct {
	Type string
	Fill color.RGBA
}

type layoutResult struct {
	Nodes   []layoutNode
	Edges   []layoutEdge
	Legend  []legendEntry
	Width   int
	Height  int
	Summary summaryInfo
}

type summaryInfo struct {
	Title     string
	Term      string
	NodeCount int
	EdgeCount int
	TopHub    string
}

func buildLayout(opts GraphSnapshotOptions) layoutResult {
	lo := opts.Layout
	if lo.Width <= 0 || lo.Height <= 0 {
		lo = layout.DefaultOptions()
	}
	pos := layout.Compute(opts.Snapshot, lo)

	degree := make(map[string]int)
	var edges []layoutEdge
	for _, l := range opts.Snapshot.Links() {
		if !opts.Snapshot.HasNode(l.Source) || !opts.Snapshot.HasNode(l.Target) {
			continue
		}
		degree[l.Source]++
		degree[l.Target]++
		edges = append(edges, layoutEdge{From: l.Source, To: l.Target, Label: l.Label})
	}

	var nodes []layoutNode
	var legend []legendEntry
	seenType := make(map[string]bool)
	for _, n := range opts.Snapshot.Nodes() {
		p := pos.Positions[n.ID]
		fill := layout.RGBA(layout.FillColor(n))
		nodes = append(nodes, layoutNode{
			ID:     n.ID,
			Label:  truncate(n.Label(), 16),
			Type:   n.Type,
			Fill:   fill,
			X:      p.X,
			Y:      p.Y + headerHeight,
			Degree: degree[n.ID],
		})
		typ := n.Type
		if typ == "" {
			typ = "未知"
		}
		if !seenType[typ] {
			seenType[typ] = true
			legend = append(legend, legendEntry{Type: typ, Fill: fill})
		}
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Plant Knowledge Graph"
	}

	return layoutResult{
		Nodes:  nodes,
		Edges:  edges,
		Legend: legend,
		Width:  int(math.Ceil(lo.Width)),
		Height: int(math.Ceil(lo.Height + headerHeight)),
		Summary: summaryInfo{
			Title:     title,
			Term:      opts.Term,
			NodeCount: len(nodes),
			EdgeCount: len(edges),
			TopHub:    topHub(nodes),
		},
	}
}

// topHub names the node with the most links, ties broken by ID.
func topHub(nodes []layoutNode) string {
	if len(nodes) == 0 {
		return "n/a"
	}
	sorted := make([]layoutNode, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Degree != sorted[j].Degree {
			return sorted[i].Degree > sorted[j].Degree
		}
		return sorted[i].ID < sorted[j].ID
	})
	return fmt.Sprintf("%s (%d)", sorted[0].Label, sorted[0].Degree)
}

// --- rendering -------------------------------------------------------------

var (
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x99, 0x99, 0x99, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func renderPNG(opts GraphSnapshotOptions, result layoutResult) error {
	dc := gg.NewContext(result.Width, result.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(result.Width)-32, headerHeight-24, 10)
	dc.Fill()

	if opts.FontPath != "" {
		if err := dc.LoadFontFace(opts.FontPath, 12); err != nil {
			return fmt.Errorf("load font: %w", err)
		}
	} else {
		dc.SetFontFace(basicfont.Face7x13)
	}

	drawSummaryBlock(dc, result)
	drawLegend(dc, result)

	nodePos := indexNodes(result.Nodes)
	dc.SetLineWidth(1.5)
	for _, e := range result.Edges {
		from, to := nodePos[e.From], nodePos[e.To]
		dc.SetColor(colorEdge)
		dc.DrawLine(from.X, from.Y, to.X, to.Y)
		dc.Stroke()
		x, y, dx, dy := arrowTip(from, to)
		drawArrow(dc, x, y, dx, dy)
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(e.Label, (from.X+to.X)/2, (from.Y+to.Y)/2, 0.5, 0.5)
	}

	for _, n := range result.Nodes {
		drawNode(dc, n)
	}

	return dc.SavePNG(opts.Path)
}

func renderSVG(opts GraphSnapshotOptions, result layoutResult) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderSVGToWriter(file, result)
}

func renderSVGToWriter(w io.Writer, result layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(result.Width, result.Height)
	canvas.Rect(0, 0, result.Width, result.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, result.Width-32, int(headerHeight-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, result)
	drawLegendSVG(canvas, result)

	nodePos := indexNodes(result.Nodes)
	for _, e := range result.Edges {
		from, to := nodePos[e.From], nodePos[e.To]
		canvas.Line(int(from.X), int(from.Y), int(to.X), int(to.Y),
			fmt.Sprintf("stroke:%s;stroke-width:1.5", css(colorEdge)))
		x, y, dx, dy := arrowTip(from, to)
		canvas.Polygon(
			[]int{int(x), int(x + dx*8 - dy*4), int(x + dx*8 + dy*4)},
			[]int{int(y), int(y + dy*8 + dx*4), int(y + dy*8 - dx*4)},
			fmt.Sprintf("fill:%s", css(colorEdge)),
		)
		canvas.Text(int((from.X+to.X)/2), int((from.Y+to.Y)/2), e.Label,
			fmt.Sprintf("fill:%s;font-size:11px;text-anchor:middle", css(colorSubtle)))
	}

	for _, n := range result.Nodes {
		x, y := int(n.X), int(n.Y)
		canvas.Circle(x, y, int(nodeRadius),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(n.Fill), css(colorStroke)))
		canvas.Text(x, y+int(nodeRadius)+14, n.Label,
			fmt.Sprintf("fill:%s;font-size:12px;text-anchor:middle", css(colorText)))
	}

	canvas.End()
	return nil
}

// arrowTip returns where an edge meets the target circle and the unit vector
// pointing back toward the source.
func arrowTip(from, to layoutNode) (x, y, dx, dy float64) {
	vx, vy := from.X-to.X, from.Y-to.Y
	d := math.Hypot(vx, vy)
	if d < 1e-9 {
		return to.X, to.Y, 0, 0
	}
	dx, dy = vx/d, vy/d
	return to.X + dx*nodeRadius, to.Y + dy*nodeRadius, dx, dy
}

func drawNode(dc *gg.Context, n layoutNode) {
	dc.SetColor(n.Fill)
	dc.DrawCircle(n.X, n.Y, nodeRadius)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1.2)
	dc.DrawCircle(n.X, n.Y, nodeRadius)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored(n.Label, n.X, n.Y+nodeRadius+12, 0.5, 0.5)
}

func drawArrow(dc *gg.Context, x, y, dx, dy float64) {
	dc.SetColor(colorEdge)
	dc.NewSubPath()
	dc.MoveTo(x, y)
	dc.LineTo(x+dx*8-dy*4, y+dy*8+dx*4)
	dc.LineTo(x+dx*8+dy*4, y+dy*8-dx*4)
	dc.ClosePath()
	dc.Fill()
}

func drawSummaryBlock(dc *gg.Context, result layoutResult) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(result.Summary.Title, 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("term: %s", result.Summary.Term), 32, 58, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("nodes: %d  links: %d", result.Summary.NodeCount, result.Summary.EdgeCount), 32, 74, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("top hub: %s", result.Summary.TopHub), 32, 90, 0, 0.5)
}

func legendBox(result layoutResult) (x, y, w, h float64) {
	w = 200
	h = 20 + 16*float64(len(result.Legend))
	return float64(result.Width) - w - 20, headerHeight + 8, w, h
}

func drawLegend(dc *gg.Context, result layoutResult) {
	x, y, w, h := legendBox(result)
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, w, h, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, w, h, 10)
	dc.Stroke()

	for i, e := range result.Legend {
		drawLegendRow(dc, x+12, y+20+16*float64(i), e.Fill, e.Type)
	}
}

func drawLegendRow(dc *gg.Context, x, y float64, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawCircle(x+7, y-1, 6)
	dc.Fill()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(label, x+20, y, 0, 0.5)
}

func drawSummaryBlockSVG(canvas *svg.SVG, result layoutResult) {
	canvas.Text(32, 44, result.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-weight:bold", css(colorText)))
	canvas.Text(32, 62, fmt.Sprintf("term: %s", result.Summary.Term), fmt.Sprintf("fill:%s;font-size:13px", css(colorSubtle)))
	canvas.Text(32, 78, fmt.Sprintf("nodes: %d  links: %d", result.Summary.NodeCount, result.Summary.EdgeCount), fmt.Sprintf("fill:%s;font-size:13px", css(colorSubtle)))
	canvas.Text(32, 94, fmt.Sprintf("top hub: %s", result.Summary.TopHub), fmt.Sprintf("fill:%s;font-size:13px", css(colorSubtle)))
}

func drawLegendSVG(canvas *svg.SVG, result layoutResult) {
	x, y, w, h := legendBox(result)
	canvas.Roundrect(int(x), int(y), int(w), int(h), 10, 10,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	for i, e := range result.Legend {
		rx, ry := int(x)+12, int(y)+20+16*i
		canvas.Circle(rx+7, ry-4, 6, fmt.Sprintf("fill:%s", css(e.Fill)))
		canvas.Text(rx+20, ry, e.Type, fmt.Sprintf("fill:%s;font-size:12px", css(colorSubtle)))
	}
}

// --- helpers ---------------------------------------------------------------

func indexNodes(nodes []layoutNode) map[string]layoutNode {
	m := make(map[string]layoutNode, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
