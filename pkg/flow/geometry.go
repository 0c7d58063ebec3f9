// Geometry shared by the interactive canvas and the static renderer.
// Both sides draw connections and arrowheads from these functions so the
// two never disagree about where a line starts or how an arrow is built.

package flow

import "math"

const (
	NodeWidth    = 120.0 // footprint of every non-decision node
	NodeHeight   = 80.0
	DecisionSize = 128.0 // side of the decision square before rotation

	AnchorDX = 60.0 // connection anchor relative to a node's top-left
	AnchorDY = 40.0

	ArrowSize   = 10.0
	ArrowSpread = math.Pi / 6

	ExportPadding = 50.0

	MinScale = 0.1
	MaxScale = 3.0
	ZoomIn   = 1.1
	ZoomOut  = 0.9
)

// Point represents a 2D coordinate.
type Point struct {
	X, Y float64
}

// Box is an axis-aligned rectangle given by its corners.
type Box struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Pad grows the box by p on every side.
func (b Box) Pad(p float64) Box {
	return Box{MinX: b.MinX - p, MinY: b.MinY - p, MaxX: b.MaxX + p, MaxY: b.MaxY + p}
}

// Size returns the drawn width and height of a node of type t.
func Size(t NodeType) (w, h float64) {
	if t == TypeDecision {
		return DecisionSize, DecisionSize
	}
	return NodeWidth, NodeHeight
}

// Anchor returns the point connections attach to. It is the centre of the
// 120x80 footprint for every type, decision included.
func Anchor(n Node) Point {
	return Point{X: n.X + AnchorDX, Y: n.Y + AnchorDY}
}

// ArrowHead returns the triangle drawn at the destination end of a segment:
// the tip at to, and two base points ArrowSize back along the direction,
// spread by ArrowSpread either side.
func ArrowHead(from, to Point) [3]Point {
	angle := math.Atan2(to.Y-from.Y, to.X-from.X)
	return [3]Point{
		to,
		{X: to.X - ArrowSize*math.Cos(angle-ArrowSpread), Y: to.Y - ArrowSize*math.Sin(angle-ArrowSpread)},
		{X: to.X - ArrowSize*math.Cos(angle+ArrowSpread), Y: to.Y - ArrowSize*math.Sin(angle+ArrowSpread)},
	}
}

// Bounds returns the tight box around nodes using the fixed 120x80
// footprint for every type. ok is false for an empty slice.
func Bounds(nodes []Node) (b Box, ok bool) {
	if len(nodes) == 0 {
		return Box{}, false
	}
	b = Box{MinX: nodes[0].X, MinY: nodes[0].Y, MaxX: nodes[0].X + NodeWidth, MaxY: nodes[0].Y + NodeHeight}
	for _, n := range nodes[1:] {
		b.MinX = math.Min(b.MinX, n.X)
		b.MinY = math.Min(b.MinY, n.Y)
		b.MaxX = math.Max(b.MaxX, n.X+NodeWidth)
		b.MaxY = math.Max(b.MaxY, n.Y+NodeHeight)
	}
	return b, true
}

// Contains reports whether model point p lies on node n. Decision nodes are
// a square rotated 45 degrees about its centre, so the test is a diamond.
func Contains(n Node, p Point) bool {
	if n.Type == TypeDecision {
		half := DecisionSize / 2
		cx, cy := n.X+half, n.Y+half
		return math.Abs(p.X-cx)+math.Abs(p.Y-cy) <= half*math.Sqrt2
	}
	return p.X >= n.X && p.X <= n.X+NodeWidth && p.Y >= n.Y && p.Y <= n.Y+NodeHeight
}

// HitTest returns the id of the topmost node under p. Later nodes are drawn
// over earlier ones, so the search runs from the end.
func HitTest(nodes []Node, p Point) (string, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		if Contains(nodes[i], p) {
			return nodes[i].ID, true
		}
	}
	return "", false
}

// View is the pan+scale mapping from model to screen coordinates.
type View struct {
	Scale float64
	PanX  float64
	PanY  float64
}

// IdentityView is the unpanned, unscaled view.
func IdentityView() View {
	return View{Scale: 1}
}

// ToScreen maps a model point to the screen.
func (v View) ToScreen(p Point) Point {
	return Point{X: p.X*v.Scale + v.PanX, Y: p.Y*v.Scale + v.PanY}
}

// ToModel maps a screen point back to model coordinates.
func (v View) ToModel(p Point) Point {
	return Point{X: (p.X - v.PanX) / v.Scale, Y: (p.Y - v.PanY) / v.Scale}
}

// Zoom applies one wheel tick: a positive delta zooms out by ZoomOut, any
// other delta zooms in by ZoomIn. The result is clamped to
// [MinScale, MaxScale]. Zoom is anchored at the canvas origin, so the pan
// offset does not change.
func (v View) Zoom(deltaY float64) View {
	factor := ZoomIn
	if deltaY > 0 {
		factor = ZoomOut
	}
	v.Scale = math.Max(MinScale, math.Min(MaxScale, v.Scale*factor))
	return v
}
