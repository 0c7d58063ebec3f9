// Vector scene shared by the SVG encoder and the PNG rasterizer.
// A Scene is self-contained: every colour, size and transform needed to
// paint it is stored on the elements, nothing is looked up later.

package flowfile

import (
	"fmt"
	"image/color"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// Color is an 8-bit RGB colour. A zero Alpha means "none".
type Color struct {
	R, G, B, A uint8
}

// None is the absent paint.
var None = Color{}

// RGB returns an opaque colour.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// IsNone reports whether the colour paints nothing.
func (c Color) IsNone() bool {
	return c.A == 0
}

// Hex returns the #rrggbb form, or "none".
func (c Color) Hex() string {
	if c.IsNone() {
		return "none"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RGBA converts to the image/color representation.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Palette is the colour triple used for one node type.
type Palette struct {
	Background Color
	Border     Color
	Text       Color
}

// Shared canvas colours.
var (
	CanvasColor    = RGB(0xf9, 0xfa, 0xfb) // #f9fafb
	SelectionColor = RGB(0x60, 0xa5, 0xfa) // #60a5fa
)

// Colors used in rendering
var (
	colorConnection  = RGB(0x37, 0x41, 0x51) // #374151
	colorPlaceholder = RGB(0x66, 0x66, 0x66) // #666

	paletteStart    = Palette{RGB(0xdc, 0xfc, 0xe7), RGB(0x22, 0xc5, 0x5e), RGB(0x16, 0x65, 0x34)}
	paletteEnd      = Palette{RGB(0xfe, 0xe2, 0xe2), RGB(0xef, 0x44, 0x44), RGB(0x99, 0x1b, 0x1b)}
	paletteProcess  = Palette{RGB(0xdb, 0xea, 0xfe), RGB(0x3b, 0x82, 0xf6), RGB(0x1e, 0x40, 0xaf)}
	paletteInput    = Palette{RGB(0xfe, 0xf3, 0xc7), RGB(0xea, 0xb3, 0x08), RGB(0x85, 0x4d, 0x0e)}
	paletteDecision = Palette{RGB(0xfe, 0xd7, 0xaa), RGB(0xf9, 0x73, 0x16), RGB(0x9a, 0x34, 0x12)}
)

// PaletteFor returns the colours for a node type. Unknown types use the
// process palette.
func PaletteFor(t flow.NodeType) Palette {
	switch t {
	case flow.TypeStart:
		return paletteStart
	case flow.TypeEnd:
		return paletteEnd
	case flow.TypeProcess:
		return paletteProcess
	case flow.TypeInput:
		return paletteInput
	case flow.TypeDecision:
		return paletteDecision
	}
	return paletteProcess
}

// Paint describes how a closed shape is filled and outlined.
type Paint struct {
	Fill        Color
	Stroke      Color
	StrokeWidth float64
}

// OpKind is a transform operation.
type OpKind int

const (
	OpTranslate OpKind = iota
	OpScale
	OpRotate // degrees about (B, C)
)

// Op is one step of a transform list.
type Op struct {
	Kind    OpKind
	A, B, C float64
}

// Translate returns a translation op.
func Translate(x, y float64) Op { return Op{Kind: OpTranslate, A: x, B: y} }

// Scale returns a uniform scale op.
func Scale(s float64) Op { return Op{Kind: OpScale, A: s} }

// Rotate returns a rotation by deg degrees about (cx, cy).
func Rotate(deg, cx, cy float64) Op { return Op{Kind: OpRotate, A: deg, B: cx, C: cy} }

// Attr is a name/value attribute carried through to the SVG output.
type Attr struct {
	Name, Value string
}

// Element is anything that can be placed in a Scene.
type Element interface {
	element()
}

// Rect is an axis-aligned rectangle with optional rounded corners.
type Rect struct {
	X, Y, W, H float64
	RX         float64
	Paint
}

// Ellipse is an axis-aligned ellipse.
type Ellipse struct {
	CX, CY, RX, RY float64
	Paint
}

// Polygon is a closed polyline.
type Polygon struct {
	Points []flow.Point
	Paint
}

// Line is a stroked segment.
type Line struct {
	X1, Y1, X2, Y2 float64
	Stroke         Color
	StrokeWidth    float64
}

// Text is a single line of text anchored at its horizontal middle and
// baseline.
type Text struct {
	X, Y    float64
	Content string
	Fill    Color
	Size    float64
	Weight  int
}

// Group applies a transform to its children.
type Group struct {
	Class     string
	Attrs     []Attr
	Transform []Op
	Children  []Element
}

func (Rect) element()    {}
func (Ellipse) element() {}
func (Polygon) element() {}
func (Line) element()    {}
func (Text) element()    {}
func (Group) element()   {}

// Scene is a self-contained vector document.
type Scene struct {
	Width      float64
	Height     float64
	Background Color
	Elements   []Element
}
