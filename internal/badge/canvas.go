package badge

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"tagbadge/internal/text"
)

// Canvas is what a badge is drawn onto.
//
// Rects passed to FillRect are in the canvas' own y-down space. DrawLine
// receives the y-up baseline origin the fitter produced; FlipVertical maps
// that space onto the canvas until the matching RestoreState.
type Canvas interface {
	SetFillColor(c color.Color)
	FillRect(r text.Rect)
	SaveState()
	RestoreState()
	FlipVertical(height float64)
	DrawLine(line *text.Line, origin text.Point)
}

// CornerRadius rounds the corners of badges drawn on a GGCanvas.
const CornerRadius = 3.0

// GGCanvas draws onto a gg context clipped to a rounded rectangle.
type GGCanvas struct {
	dc    *gg.Context
	src   *text.Source
	faces *text.Faces
	fill  color.Color
	flips []float64
	flip  float64
}

// NewGGCanvas creates a transparent width x height canvas. Close releases
// the faces it borrowed from src.
func NewGGCanvas(width, height int, src *text.Source) *GGCanvas {
	dc := gg.NewContext(width, height)
	dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), CornerRadius)
	dc.Clip()

	return &GGCanvas{
		dc:    dc,
		src:   src,
		faces: src.Acquire(),
		fill:  color.Transparent,
		flip:  -1,
	}
}

// Bounds returns the full canvas rectangle.
func (c *GGCanvas) Bounds() Size {
	return Size{W: float64(c.dc.Width()), H: float64(c.dc.Height())}
}

func (c *GGCanvas) SetFillColor(col color.Color) {
	c.fill = col
}

func (c *GGCanvas) FillRect(r text.Rect) {
	c.dc.SetColor(c.fill)
	c.dc.DrawRectangle(r.X, r.Y, r.W, r.H)
	c.dc.Fill()
}

func (c *GGCanvas) SaveState() {
	c.dc.Push()
	c.flips = append(c.flips, c.flip)
}

func (c *GGCanvas) RestoreState() {
	if len(c.flips) == 0 {
		return
	}
	c.dc.Pop()
	c.flip = c.flips[len(c.flips)-1]
	c.flips = c.flips[:len(c.flips)-1]
}

// FlipVertical only moves baselines; glyphs themselves stay upright, as with
// an identity text matrix.
func (c *GGCanvas) FlipVertical(height float64) {
	c.flip = height
}

func (c *GGCanvas) DrawLine(line *text.Line, origin text.Point) {
	if line == nil || len(line.Glyphs) == 0 {
		return
	}

	y := origin.Y
	if c.flip >= 0 {
		y = c.flip - origin.Y
	}

	c.dc.SetFontFace(c.faces.Face(line.Font))
	c.dc.SetColor(line.Color)
	for _, g := range line.Glyphs {
		c.dc.DrawString(string(g.Rune), origin.X+g.X, y)
	}
}

// Image returns the drawn pixels.
func (c *GGCanvas) Image() image.Image {
	return c.dc.Image()
}

// Close hands the borrowed faces back. The image stays valid.
func (c *GGCanvas) Close() {
	if c.faces != nil {
		c.src.Release(c.faces)
		c.faces = nil
	}
}
