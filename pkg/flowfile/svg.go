package flowfile

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// RenderSVG renders a diagram straight to SVG bytes.
func RenderSVG(nodes []flow.Node, conns []flow.Connection) []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer do not fail.
	_ = EncodeSVG(&buf, Render(nodes, conns))
	return buf.Bytes()
}

// EncodeSVG writes s as a standalone SVG document. Free text and attribute
// values are escaped, so labels cannot break the markup.
func EncodeSVG(w io.Writer, s *Scene) error {
	var sb strings.Builder

	w0, h0 := num(s.Width), num(s.Height)
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		w0, h0, w0, h0))
	if !s.Background.IsNone() {
		sb.WriteString(fmt.Sprintf(`<rect width="%s" height="%s" fill="%s"/>`+"\n", w0, h0, s.Background.Hex()))
	}
	for _, el := range s.Elements {
		writeElement(&sb, el, "")
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeElement(sb *strings.Builder, el Element, indent string) {
	sb.WriteString(indent)
	switch e := el.(type) {
	case Rect:
		sb.WriteString(fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s"`, num(e.X), num(e.Y), num(e.W), num(e.H)))
		if e.RX > 0 {
			sb.WriteString(fmt.Sprintf(` rx="%s"`, num(e.RX)))
		}
		writePaint(sb, e.Paint)
		sb.WriteString("/>\n")
	case Ellipse:
		sb.WriteString(fmt.Sprintf(`<ellipse cx="%s" cy="%s" rx="%s" ry="%s"`, num(e.CX), num(e.CY), num(e.RX), num(e.RY)))
		writePaint(sb, e.Paint)
		sb.WriteString("/>\n")
	case Polygon:
		sb.WriteString(fmt.Sprintf(`<polygon points="%s"`, points(e.Points)))
		writePaint(sb, e.Paint)
		sb.WriteString("/>\n")
	case Line:
		sb.WriteString(fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"/>`+"\n",
			num(e.X1), num(e.Y1), num(e.X2), num(e.Y2), e.Stroke.Hex(), num(e.StrokeWidth)))
	case Text:
		sb.WriteString(fmt.Sprintf(`<text x="%s" y="%s" text-anchor="middle" fill="%s" font-size="%s"`,
			num(e.X), num(e.Y), e.Fill.Hex(), num(e.Size)))
		if e.Weight != 0 && e.Weight != 400 {
			sb.WriteString(fmt.Sprintf(` font-weight="%d"`, e.Weight))
		}
		sb.WriteString(">")
		sb.WriteString(escapeXML(e.Content))
		sb.WriteString("</text>\n")
	case Group:
		sb.WriteString("<g")
		if e.Class != "" {
			sb.WriteString(fmt.Sprintf(` class="%s"`, escapeXML(e.Class)))
		}
		for _, a := range e.Attrs {
			sb.WriteString(fmt.Sprintf(` %s="%s"`, a.Name, escapeXML(a.Value)))
		}
		if len(e.Transform) > 0 {
			sb.WriteString(fmt.Sprintf(` transform="%s"`, transform(e.Transform)))
		}
		sb.WriteString(">\n")
		for _, child := range e.Children {
			writeElement(sb, child, indent+"  ")
		}
		sb.WriteString(indent)
		sb.WriteString("</g>\n")
	}
}

func writePaint(sb *strings.Builder, p Paint) {
	sb.WriteString(fmt.Sprintf(` fill="%s"`, p.Fill.Hex()))
	if !p.Stroke.IsNone() {
		sb.WriteString(fmt.Sprintf(` stroke="%s" stroke-width="%s"`, p.Stroke.Hex(), num(p.StrokeWidth)))
	}
}

func transform(ops []Op) string {
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case OpTranslate:
			parts = append(parts, fmt.Sprintf("translate(%s %s)", num(op.A), num(op.B)))
		case OpScale:
			parts = append(parts, fmt.Sprintf("scale(%s)", num(op.A)))
		case OpRotate:
			parts = append(parts, fmt.Sprintf("rotate(%s %s %s)", num(op.A), num(op.B), num(op.C)))
		}
	}
	return strings.Join(parts, " ")
}

func points(ps []flow.Point) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = num(p.X) + "," + num(p.Y)
	}
	return strings.Join(parts, " ")
}

// num formats a coordinate with at most three decimals and no trailing
// zeros. Fixed rounding keeps the output byte-stable.
func num(v float64) string {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		r = 0 // normalise -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escapeXML escapes the five XML metacharacters and replaces characters
// that XML 1.0 does not allow at all.
func escapeXML(s string) string {
	if !utf8.ValidString(s) || strings.IndexFunc(s, func(r rune) bool { return !isXMLChar(r) }) >= 0 {
		s = strings.Map(func(r rune) rune {
			if isXMLChar(r) {
				return r
			}
			return utf8.RuneError
		}, s)
	}
	return xmlEscaper.Replace(s)
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
