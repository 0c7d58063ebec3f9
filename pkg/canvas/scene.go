package canvas

import (
	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
	"github.com/ha1tch/flowchart-toolkit/pkg/flowfile"
)

// Ring is the gap between a selected node and its highlight ring.
const Ring = 4.0

// Scene returns the live canvas as a vector scene the size of the
// viewport. Everything sits in one group whose transform is the composed
// view, so pan and zoom move nodes and connections together.
func (c *Canvas) Scene() *flowfile.Scene {
	layer := flowfile.Group{
		Class: "layer",
		Transform: []flowfile.Op{
			flowfile.Translate(c.view.PanX, c.view.PanY),
			flowfile.Scale(c.view.Scale),
		},
	}
	for _, conn := range c.conns {
		from, to, ok := flow.Resolve(c.nodes, conn)
		if !ok {
			continue
		}
		layer.Children = append(layer.Children, flowfile.ConnectionElement(conn, from, to, 0, 0))
	}
	for _, n := range c.nodes {
		layer.Children = append(layer.Children, liveNode(n, n.ID == c.selected))
	}

	return &flowfile.Scene{
		Width:      c.width,
		Height:     c.height,
		Background: flowfile.CanvasColor,
		Elements:   []flowfile.Element{layer},
	}
}

// liveNode draws a node the way the editor shows it: start and end as
// pills, decision as a 128 square turned 45 degrees with its label turned
// back upright, everything else as a rounded rectangle.
func liveNode(n flow.Node, selected bool) flowfile.Group {
	pal := flowfile.PaletteFor(n.Type)
	paint := flowfile.Paint{Fill: pal.Background, Stroke: pal.Border, StrokeWidth: flowfile.StrokeWidth}
	w, h := flow.Size(n.Type)
	cx, cy := n.X+w/2, n.Y+h/2

	radius := flowfile.CornerRadius
	if n.Type == flow.TypeStart || n.Type == flow.TypeEnd {
		radius = h / 2
	}

	var children []flowfile.Element
	if selected {
		children = append(children, flowfile.Rect{
			X: n.X - Ring, Y: n.Y - Ring, W: w + 2*Ring, H: h + 2*Ring,
			RX:    radius + Ring,
			Paint: flowfile.Paint{Stroke: flowfile.SelectionColor, StrokeWidth: Ring},
		})
	}
	children = append(children, flowfile.Rect{X: n.X, Y: n.Y, W: w, H: h, RX: radius, Paint: paint})

	label := flowfile.Text{
		X:       cx,
		Y:       cy + flowfile.LabelBaselineY,
		Content: n.Label,
		Fill:    pal.Text,
		Size:    flowfile.LabelSize,
		Weight:  flowfile.LabelWeight,
	}

	g := flowfile.Group{
		Class: "node",
		Attrs: []flowfile.Attr{{Name: "data-id", Value: n.ID}, {Name: "data-type", Value: string(n.Type)}},
	}
	if n.Type == flow.TypeDecision {
		g.Transform = []flowfile.Op{flowfile.Rotate(45, cx, cy)}
		children = append(children, flowfile.Group{
			Transform: []flowfile.Op{flowfile.Rotate(-45, cx, cy)},
			Children:  []flowfile.Element{label},
		})
	} else {
		children = append(children, label)
	}
	g.Children = children
	return g
}
