package text

// MinScale is the smallest factor text is shrunk by to fit its box.
const MinScale = 0.5

// Scale returns the factor that shrinks natural to available, never growing
// text and never going below MinScale.
func Scale(natural, available float64) float64 {
	scale := 1.0
	if natural > 0 {
		scale = min(1.0, available/natural)
	}
	return max(scale, MinScale)
}

// Fitter shapes runs so that they fit a rectangle.
type Fitter struct {
	Faces *Faces
}

// Fit shapes run at its own size, shrinks it when it is wider than rect and
// centers the result. Text that still overflows at MinScale is left to
// overflow.
func (f Fitter) Fit(run Run, rect Rect) Layout {
	line := ShapeRun(f.Faces, run)

	scale := Scale(line.Width, rect.W)
	if scale < 1.0 {
		scaled := run
		scaled.Font.Size = run.Font.Size * scale
		line = ShapeRun(f.Faces, scaled)
	}

	return Layout{Line: line, Origin: Center(line, rect)}
}

// Center returns the baseline origin that centers line in rect (y-up).
func Center(line *Line, rect Rect) Point {
	x := rect.X + max(0, (rect.W-line.Width)/2)
	// descender sits below the baseline, so the baseline is lifted by it
	y := rect.Y + (rect.H-line.Metrics.LineHeight)/2 + line.Metrics.Descent
	return Point{X: x, Y: y}
}
