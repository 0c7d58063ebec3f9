// Native PNG rendering for flowchart scenes.
// Paints the same Scene the SVG encoder writes, so both exports agree.

package flowfile

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// RasterScale is the supersampling factor used for PNG export.
const RasterScale = 2

// MaxRasterPixels caps width*height of a rasterized image.
const MaxRasterPixels = 1 << 28

var (
	// ErrRasterTooLarge is returned when a scene would rasterize to more
	// than MaxRasterPixels pixels.
	ErrRasterTooLarge = errors.New("raster image too large")
	// ErrRasterEmpty is returned for a scene without area.
	ErrRasterEmpty = errors.New("scene has no area")
)

var (
	fontsOnce    sync.Once
	fontRegular  *truetype.Font
	fontBold     *truetype.Font
	fontParseErr error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		fontRegular, fontParseErr = truetype.Parse(goregular.TTF)
		if fontParseErr != nil {
			return
		}
		fontBold, fontParseErr = truetype.Parse(gobold.TTF)
	})
	return fontParseErr
}

// rasterizer walks a Scene onto a gg context.
type rasterizer struct {
	dc    *gg.Context
	faces map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

// Rasterize paints s into a new image with both dimensions multiplied by
// scale. Content is scaled to match.
func Rasterize(s *Scene, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid raster scale %v", scale)
	}
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	w := math.Ceil(s.Width * scale)
	h := math.Ceil(s.Height * scale)
	if !(w >= 1 && h >= 1) {
		return nil, fmt.Errorf("%w (%vx%v)", ErrRasterEmpty, s.Width, s.Height)
	}
	if w*h > MaxRasterPixels {
		return nil, fmt.Errorf("%w: %.0fx%.0f pixels", ErrRasterTooLarge, w, h)
	}
	width, height := int(w), int(h)

	r := &rasterizer{
		dc:    gg.NewContext(width, height),
		faces: make(map[faceKey]font.Face),
	}
	r.dc.Scale(scale, scale)
	if !s.Background.IsNone() {
		r.dc.SetColor(s.Background.RGBA())
		r.dc.DrawRectangle(0, 0, s.Width, s.Height)
		r.dc.Fill()
	}
	for _, el := range s.Elements {
		r.draw(el)
	}
	return r.dc.Image(), nil
}

// EncodePNG rasterizes s at scale and writes it as PNG.
func EncodePNG(w io.Writer, s *Scene, scale float64) error {
	img, err := Rasterize(s, scale)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Thumbnail rasterizes s at RasterScale and downsamples it so the longer
// side is at most maxSide pixels.
func Thumbnail(w io.Writer, s *Scene, maxSide int) error {
	if maxSide < 1 {
		return fmt.Errorf("invalid thumbnail size %d", maxSide)
	}
	large, err := Rasterize(s, RasterScale)
	if err != nil {
		return err
	}
	b := large.Bounds()
	ratio := math.Min(float64(maxSide)/float64(b.Dx()), float64(maxSide)/float64(b.Dy()))
	if ratio > 1 {
		ratio = 1
	}
	tw := int(math.Max(1, math.Round(float64(b.Dx())*ratio)))
	th := int(math.Max(1, math.Round(float64(b.Dy())*ratio)))

	small := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(small, small.Bounds(), large, b, draw.Over, nil)
	return png.Encode(w, small)
}

// currentScale is the uniform scale of the context's matrix. gg strokes in
// device space, so stroke widths and font sizes are multiplied by it.
func (r *rasterizer) currentScale() float64 {
	x0, y0 := r.dc.TransformPoint(0, 0)
	x1, y1 := r.dc.TransformPoint(1, 0)
	return math.Hypot(x1-x0, y1-y0)
}

func (r *rasterizer) draw(el Element) {
	dc := r.dc
	switch e := el.(type) {
	case Rect:
		if e.RX > 0 {
			dc.DrawRoundedRectangle(e.X, e.Y, e.W, e.H, e.RX)
		} else {
			dc.DrawRectangle(e.X, e.Y, e.W, e.H)
		}
		r.paint(e.Paint)
	case Ellipse:
		dc.DrawEllipse(e.CX, e.CY, e.RX, e.RY)
		r.paint(e.Paint)
	case Polygon:
		if len(e.Points) == 0 {
			return
		}
		dc.MoveTo(e.Points[0].X, e.Points[0].Y)
		for _, p := range e.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		r.paint(e.Paint)
	case Line:
		dc.DrawLine(e.X1, e.Y1, e.X2, e.Y2)
		dc.SetColor(e.Stroke.RGBA())
		dc.SetLineWidth(e.StrokeWidth * r.currentScale())
		dc.Stroke()
	case Text:
		r.text(e)
	case Group:
		dc.Push()
		for _, op := range e.Transform {
			switch op.Kind {
			case OpTranslate:
				dc.Translate(op.A, op.B)
			case OpScale:
				dc.Scale(op.A, op.A)
			case OpRotate:
				dc.RotateAbout(gg.Radians(op.A), op.B, op.C)
			}
		}
		for _, child := range e.Children {
			r.draw(child)
		}
		dc.Pop()
	}
}

func (r *rasterizer) paint(p Paint) {
	dc := r.dc
	if p.Fill.IsNone() && p.Stroke.IsNone() {
		dc.ClearPath()
		return
	}
	if !p.Fill.IsNone() {
		dc.SetColor(p.Fill.RGBA())
		if p.Stroke.IsNone() {
			dc.Fill()
			return
		}
		dc.FillPreserve()
	}
	dc.SetColor(p.Stroke.RGBA())
	dc.SetLineWidth(p.StrokeWidth * r.currentScale())
	dc.Stroke()
}

// text draws a label in device space with a face sized for the current
// scale, so glyphs are rasterized sharp instead of being resampled. Labels
// always read upright, whatever rotation their group carries.
func (r *rasterizer) text(t Text) {
	if t.Content == "" {
		return
	}
	dc := r.dc
	scale := r.currentScale()
	x, y := dc.TransformPoint(t.X, t.Y)

	dc.Push()
	dc.Identity()
	dc.SetFontFace(r.face(t.Size*scale, t.Weight >= 600))
	dc.SetColor(t.Fill.RGBA())
	dc.DrawStringAnchored(t.Content, x, y, 0.5, 0)
	dc.Pop()
}

func (r *rasterizer) face(size float64, bold bool) font.Face {
	key := faceKey{size: math.Round(size*100) / 100, bold: bold}
	if f, ok := r.faces[key]; ok {
		return f
	}
	ttf := fontRegular
	if bold {
		ttf = fontBold
	}
	f := truetype.NewFace(ttf, &truetype.Options{
		Size:    key.size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	r.faces[key] = f
	return f
}
