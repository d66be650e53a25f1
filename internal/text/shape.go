package text

import (
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Point is a position in layout units.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. Layout rects are y-up: Y is the bottom
// edge.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Metrics are the vertical metrics of a face. Descent is the positive
// distance below the baseline.
type Metrics struct {
	LineHeight float64
	Ascent     float64
	Descent    float64
}

// Glyph is one shaped rune and its pen offset from the line origin.
type Glyph struct {
	Rune rune
	X    float64
}

// Line is a shaped run of text. Lines are never modified after shaping and may
// be shared between goroutines.
type Line struct {
	Text    string
	Font    FontSpec
	Color   color.Color
	Glyphs  []Glyph
	Width   float64
	Metrics Metrics
}

// Run is styled text waiting to be shaped.
type Run struct {
	Text  string
	Font  FontSpec
	Color color.Color
}

// Layout is a shaped line together with where its baseline origin goes.
type Layout struct {
	Line   *Line
	Origin Point
}

// Shape lays out s with face, applying kerning between neighbouring runes.
func Shape(face font.Face, s string) ([]Glyph, float64) {
	glyphs := make([]Glyph, 0, len(s))
	var x fixed.Int26_6
	prev := rune(-1)
	for _, r := range s {
		if prev >= 0 {
			x += face.Kern(prev, r)
		}
		glyphs = append(glyphs, Glyph{Rune: r, X: fromFixed(x)})
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			adv, _ = face.GlyphAdvance('\ufffd')
		}
		x += adv
		prev = r
	}
	return glyphs, fromFixed(x)
}

// FaceMetrics converts the metrics of face.
func FaceMetrics(face font.Face) Metrics {
	m := face.Metrics()
	return Metrics{
		LineHeight: fromFixed(m.Height),
		Ascent:     fromFixed(m.Ascent),
		Descent:    fromFixed(m.Descent),
	}
}

// ShapeRun shapes run using a face from faces.
func ShapeRun(faces *Faces, run Run) *Line {
	face := faces.Face(run.Font)
	glyphs, width := Shape(face, run.Text)
	return &Line{
		Text:    run.Text,
		Font:    run.Font,
		Color:   run.Color,
		Glyphs:  glyphs,
		Width:   width,
		Metrics: FaceMetrics(face),
	}
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
