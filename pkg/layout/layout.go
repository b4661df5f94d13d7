// Package layout positions graph nodes for drawing, both on the terminal
// canvas and in exported images, using a force-directed spring embedder.
package layout

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/vanderheijden86/herbgraph/pkg/graphstate"
	"github.com/vanderheijden86/herbgraph/pkg/metrics"
)

// TreatmentFill is the fill used for nodes typed 治疗 regardless of the
// color the backend reports.
const TreatmentFill = "#2E8B57"

// Point is a position inside the layout box.
type Point struct {
	X, Y float64
}

// Options controls Compute.
type Options struct {
	Width, Height float64 // Box the positions are scaled into
	Margin        float64 // Kept free on every side
	Iterations    int     // Spring embedder updates; 0 uses a default
}

// DefaultOptions fits a typical exported image.
func DefaultOptions() Options {
	return Options{Width: 1200, Height: 800, Margin: 60, Iterations: 150}
}

// Result maps node IDs to positions. Order is the snapshot's node order.
type Result struct {
	Order     []string
	Positions map[string]Point
	Width     float64
	Height    float64
}

// Position returns the position of id.
func (r Result) Position(id string) (Point, bool) {
	p, ok := r.Positions[id]
	return p, ok
}

// Compute lays out snap inside the box described by opts. Links are treated
// as undirected springs; self-loops and links to unknown nodes are ignored.
func Compute(snap graphstate.Snapshot, opts Options) Result {
	defer metrics.Timer(metrics.LayoutCompute)()

	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultOptions().Iterations
	}

	nodes := snap.Nodes()
	res := Result{
		Order:     make([]string, 0, len(nodes)),
		Positions: make(map[string]Point, len(nodes)),
		Width:     opts.Width,
		Height:    opts.Height,
	}
	if len(nodes) == 0 {
		return res
	}

	g := simple.NewUndirectedGraph()
	ids := make(map[string]int64, len(nodes))
	for i, n := range nodes {
		id := int64(i)
		ids[n.ID] = id
		g.AddNode(simple.Node(id))
		res.Order = append(res.Order, n.ID)
	}
	for _, l := range snap.Links() {
		f, okF := ids[l.Source]
		t, okT := ids[l.Target]
		if !okF || !okT || f == t {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(f), T: simple.Node(t)})
	}

	if len(nodes) == 1 {
		res.Positions[nodes[0].ID] = Point{X: opts.Width / 2, Y: opts.Height / 2}
		return res
	}

	eades := layout.EadesR2{Repulsion: 1, Rate: 0.05, Updates: opts.Iterations, Theta: 0.2}
	o := layout.NewOptimizerR2(g, eades.Update)
	for o.Update() {
	}

	raw := make([]Point, len(nodes))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range nodes {
		v := o.Coord2(int64(i))
		raw[i] = Point{X: v.X, Y: v.Y}
		minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
		minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
	}

	innerW := math.Max(opts.Width-2*opts.Margin, 1)
	innerH := math.Max(opts.Height-2*opts.Margin, 1)
	spanX, spanY := maxX-minX, maxY-minY
	for i, n := range nodes {
		p := Point{X: opts.Width / 2, Y: opts.Height / 2}
		if spanX > 1e-9 {
			p.X = opts.Margin + (raw[i].X-minX)/spanX*innerW
		}
		if spanY > 1e-9 {
			p.Y = opts.Margin + (raw[i].Y-minY)/spanY*innerH
		}
		res.Positions[n.ID] = p
	}
	return res
}

// FillColor returns the hex fill for a node.
func FillColor(n graphstate.Node) string {
	if n.Type == "治疗" {
		return TreatmentFill
	}
	if n.Color == "" {
		return graphstate.DefaultColor
	}
	return n.Color
}

// RGBA parses a "#rgb" or "#rrggbb" color, falling back to the default
// node color when s is malformed.
func RGBA(s string) color.RGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		c, _ = colorful.Hex(graphstate.DefaultColor)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
