package flowfile

import (
	"fmt"
	"strings"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// dotShapes maps node types to Graphviz shapes.
var dotShapes = map[flow.NodeType]string{
	flow.TypeStart:    "ellipse",
	flow.TypeEnd:      "ellipse",
	flow.TypeProcess:  "box",
	flow.TypeInput:    "parallelogram",
	flow.TypeDecision: "diamond",
}

// GenerateDOT converts a diagram to Graphviz DOT format. Connections whose
// endpoints are missing are left out, matching the SVG output.
func GenerateDOT(d flow.Diagram, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph Flowchart {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=11, style=filled];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(title)))
		sb.WriteString("\n")
	}

	for _, n := range d.Nodes {
		shape, ok := dotShapes[n.Type]
		if !ok {
			shape = "box"
		}
		p := PaletteFor(n.Type)
		sb.WriteString(fmt.Sprintf("    \"%s\" [shape=%s, label=\"%s\", fillcolor=\"%s\", color=\"%s\", fontcolor=\"%s\"];\n",
			escapeDOT(n.ID), shape, escapeDOT(n.Label), p.Background.Hex(), p.Border.Hex(), p.Text.Hex()))
	}
	if len(d.Nodes) > 0 {
		sb.WriteString("\n")
	}

	for _, c := range d.Connections {
		if _, _, ok := flow.Resolve(d.Nodes, c); !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" -> \"%s\"", escapeDOT(c.From), escapeDOT(c.To)))
		if c.Label != "" {
			sb.WriteString(fmt.Sprintf(" [label=\"%s\"]", escapeDOT(c.Label)))
		}
		sb.WriteString(";\n")
	}

	sb.WriteString("}\n")
	return sb.String()
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
