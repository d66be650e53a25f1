package badge

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"tagbadge/internal/logging"
	"tagbadge/internal/text"
)

const (
	labelInset      = 2.0
	countLabelWidth = 14.0
	titleFontSize   = 12.0
	countFontSize   = 10.0

	// the count box sits near the top right, in y-up coordinates
	countBoxY      = 8.0
	countBoxHeight = 12.0
)

// Size is the extent of a drawing surface in layout units.
type Size struct {
	W, H float64
}

// Renderer draws badge states. It keeps no state between draws and may be
// used from several goroutines at once.
type Renderer struct {
	caches *SurfaceCaches
	source *text.Source
	log    *logrus.Entry
}

// NewRenderer creates a renderer shaping with source. Nil caches select the
// process-wide ones.
func NewRenderer(source *text.Source, caches *SurfaceCaches) *Renderer {
	if caches == nil {
		caches = SharedCache()
	}
	return &Renderer{
		caches: caches,
		source: source,
		log:    logging.Module("badge"),
	}
}

// Cache returns the caches the renderer fills.
func (r *Renderer) Cache() *SurfaceCaches {
	return r.caches
}

// Source returns the font source used for shaping.
func (r *Renderer) Source() *text.Source {
	return r.source
}

// TitleRect is the box the title is fitted into, leaving room for the count
// when it is shown.
func TitleRect(bounds Size, showsCount bool) text.Rect {
	if showsCount {
		return text.Rect{X: labelInset, Y: 0, W: bounds.W - countLabelWidth - labelInset, H: bounds.H}
	}
	return text.Rect{X: labelInset, Y: 0, W: bounds.W - 2*labelInset, H: bounds.H}
}

// CountRect is the box the count suffix is fitted into.
func CountRect(bounds Size) text.Rect {
	return text.Rect{X: bounds.W - countLabelWidth, Y: countBoxY, W: countLabelWidth, H: countBoxHeight}
}

// CountText is the literal suffix for count.
func CountText(count int) string {
	return "×" + strconv.Itoa(count)
}

// Draw renders state into c. The state's width is replaced by the current
// bounds width before it is used as a cache key. Unparseable colors leave the
// canvas untouched.
func (r *Renderer) Draw(c Canvas, state *State, bounds Size) {
	if state == nil {
		return
	}
	s := *state
	s.Width = bounds.W

	tagColor, ok := ParseColor(s.TagColor)
	if !ok {
		r.log.Debugf("Skipping %q: bad tag color %q", s.Title, s.TagColor)
		return
	}
	textColor, ok := ParseColor(s.TextColor)
	if !ok {
		r.log.Debugf("Skipping %q: bad text color %q", s.Title, s.TextColor)
		return
	}

	c.SetFillColor(tagColor)
	c.FillRect(text.Rect{X: 0, Y: 0, W: bounds.W, H: bounds.H})

	c.SaveState()
	defer c.RestoreState()
	c.FlipVertical(bounds.H)

	var faces *text.Faces
	fitter := func() text.Fitter {
		if faces == nil {
			faces = r.source.Acquire()
		}
		return text.Fitter{Faces: faces}
	}
	defer func() {
		if faces != nil {
			r.source.Release(faces)
		}
	}()

	cache := r.caches.For(bounds.H)
	titleKey := CacheKey{Slot: SlotTitle, State: s}
	if layout, ok := cache.Lookup(titleKey); ok {
		c.DrawLine(layout.Line, layout.Origin)
	} else if s.Title != "" {
		run := text.Run{
			Text:  s.Title,
			Font:  text.FontSpec{Weight: text.WeightMedium, Size: titleFontSize},
			Color: textColor,
		}
		layout := fitter().Fit(run, TitleRect(bounds, s.ShowsCount()))
		c.DrawLine(layout.Line, layout.Origin)
		cache.InsertAsync(titleKey, layout)
	}

	if !s.ShowsCount() {
		return
	}

	countKey := CacheKey{Slot: SlotCount, State: s}
	if layout, ok := cache.Lookup(countKey); ok {
		c.DrawLine(layout.Line, layout.Origin)
		return
	}
	run := text.Run{
		Text:  CountText(s.Count),
		Font:  text.FontSpec{Weight: text.WeightSemibold, Size: countFontSize},
		Color: textColor,
	}
	layout := fitter().Fit(run, CountRect(bounds))
	c.DrawLine(layout.Line, layout.Origin)
	cache.InsertAsync(countKey, layout)
}
