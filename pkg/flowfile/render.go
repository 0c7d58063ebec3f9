package flowfile

import (
	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

const (
	PlaceholderWidth   = 800.0
	PlaceholderHeight  = 600.0
	PlaceholderCaption = "Пустая блок-схема"

	LabelSize      = 14.0
	LabelWeight    = 600
	EdgeLabelSize  = 12.0
	StrokeWidth    = 2.0
	CornerRadius   = 8.0
	LabelBaselineY = 5.0 // baseline offset below a shape's centre
)

// Render builds the export scene for a diagram. The output depends only on
// the inputs, so encoding the same diagram twice gives identical bytes.
//
// An empty diagram yields an 800x600 placeholder with a centred caption.
// Otherwise the scene is the tight 120x80-footprint bounding box of the
// nodes grown by flow.ExportPadding, with its top-left moved to the origin.
// Connections are painted first so nodes sit on top of them; connections
// with a missing endpoint are left out.
func Render(nodes []flow.Node, conns []flow.Connection) *Scene {
	box, ok := flow.Bounds(nodes)
	if !ok {
		return placeholderScene()
	}
	box = box.Pad(flow.ExportPadding)

	scene := &Scene{
		Width:      box.Width(),
		Height:     box.Height(),
		Background: CanvasColor,
	}
	dx, dy := -box.MinX, -box.MinY

	for _, c := range conns {
		from, to, ok := flow.Resolve(nodes, c)
		if !ok {
			continue
		}
		scene.Elements = append(scene.Elements, ConnectionElement(c, from, to, dx, dy))
	}
	for _, n := range nodes {
		scene.Elements = append(scene.Elements, NodeElement(n, dx, dy))
	}
	return scene
}

func placeholderScene() *Scene {
	return &Scene{
		Width:  PlaceholderWidth,
		Height: PlaceholderHeight,
		Elements: []Element{
			Text{
				X:       PlaceholderWidth / 2,
				Y:       PlaceholderHeight / 2,
				Content: PlaceholderCaption,
				Fill:    colorPlaceholder,
				Size:    16,
				Weight:  400,
			},
		},
	}
}

// ConnectionElement draws c as a straight segment between the anchors of
// its endpoints, shifted by (dx, dy), with an arrowhead at the destination.
func ConnectionElement(c flow.Connection, from, to flow.Node, dx, dy float64) Group {
	a := flow.Anchor(from)
	b := flow.Anchor(to)
	a.X, a.Y = a.X+dx, a.Y+dy
	b.X, b.Y = b.X+dx, b.Y+dy

	head := flow.ArrowHead(a, b)
	g := Group{
		Class: "connection",
		Attrs: []Attr{{"data-id", c.ID}, {"data-from", c.From}, {"data-to", c.To}},
		Children: []Element{
			Line{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y, Stroke: colorConnection, StrokeWidth: StrokeWidth},
			Polygon{Points: head[:], Paint: Paint{Fill: colorConnection}},
		},
	}
	if c.Label != "" {
		g.Children = append(g.Children, Text{
			X:       (a.X + b.X) / 2,
			Y:       (a.Y+b.Y)/2 - 6,
			Content: c.Label,
			Fill:    colorConnection,
			Size:    EdgeLabelSize,
			Weight:  400,
		})
	}
	return g
}

// NodeElement draws n shifted by (dx, dy): an ellipse for start and end,
// a diamond for decision, and a rounded rectangle for everything else.
func NodeElement(n flow.Node, dx, dy float64) Group {
	pal := PaletteFor(n.Type)
	paint := Paint{Fill: pal.Background, Stroke: pal.Border, StrokeWidth: StrokeWidth}
	x, y := n.X+dx, n.Y+dy

	var shape Element
	var label Text
	switch n.Type {
	case flow.TypeStart, flow.TypeEnd:
		cx, cy := x+flow.AnchorDX, y+flow.AnchorDY
		shape = Ellipse{CX: cx, CY: cy, RX: flow.NodeWidth / 2, RY: flow.NodeHeight / 2, Paint: paint}
		label = nodeLabel(n.Label, cx, cy, pal)
	case flow.TypeDecision:
		r := flow.DecisionSize / 2
		cx, cy := x+r, y+r
		shape = Polygon{
			Points: []flow.Point{{X: cx, Y: cy - r}, {X: cx + r, Y: cy}, {X: cx, Y: cy + r}, {X: cx - r, Y: cy}},
			Paint:  paint,
		}
		label = nodeLabel(n.Label, cx, cy, pal)
	default:
		shape = Rect{X: x, Y: y, W: flow.NodeWidth, H: flow.NodeHeight, RX: CornerRadius, Paint: paint}
		label = nodeLabel(n.Label, x+flow.AnchorDX, y+flow.AnchorDY, pal)
	}

	return Group{
		Class:    "node",
		Attrs:    []Attr{{"data-id", n.ID}, {"data-type", string(n.Type)}},
		Children: []Element{shape, label},
	}
}

func nodeLabel(s string, cx, cy float64, pal Palette) Text {
	return Text{
		X:       cx,
		Y:       cy + LabelBaselineY,
		Content: s,
		Fill:    pal.Text,
		Size:    LabelSize,
		Weight:  LabelWeight,
	}
}
