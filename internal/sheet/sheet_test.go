package sheet

import (
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagbadge/internal/badge"
	"tagbadge/internal/config"
	"tagbadge/internal/text"
)

func testConfig() *config.SheetConfig {
	return &config.SheetConfig{
		Name:       "week",
		Background: "#000000",
		Tags: []badge.Tag{
			{Title: "Work", Color: "#FF0000", TitleColor: "#FFFFFF"},
			{Title: "Gym", Color: "#00FF00", DarkColor: "#006600", TitleColor: "#000000"},
		},
		Items: []config.ItemConfig{
			{Tag: "Work", Count: 3, X: 0, Y: 0, Width: 80, Height: 20},
			{Tag: "Gym", X: 0, Y: 24, Width: 60, Height: 20},
		},
	}
}

func newSheet(t *testing.T) *Sheet {
	t.Helper()
	src, err := text.NewGoSource()
	require.NoError(t, err)
	cache := badge.NewSurfaceCaches(0)
	t.Cleanup(cache.Wait)
	return New(badge.NewRenderer(src, cache))
}

func TestApplyCountsChanges(t *testing.T) {
	s := newSheet(t)
	cfg := testConfig()

	changed, err := s.Apply(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	changed, err = s.Apply(testConfig())
	require.NoError(t, err)
	assert.Zero(t, changed, "same content is not pushed twice")

	next := testConfig()
	next.Items[1].Count = 4
	changed, err = s.Apply(next)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	st, ok := s.State(1)
	require.True(t, ok)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, 60.0, st.Width)
}

func TestApplyRejectsInvalidConfig(t *testing.T) {
	s := newSheet(t)
	cfg := testConfig()
	cfg.Items[0].Tag = "Nope"
	_, err := s.Apply(cfg)
	assert.Error(t, err)
	assert.Empty(t, s.Items())
}

func TestRenderOnlyRedrawsDirtyTiles(t *testing.T) {
	s := newSheet(t)
	_, err := s.Apply(testConfig())
	require.NoError(t, err)

	frame, err := s.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Redrawn)
	assert.Equal(t, 80, frame.Image.Bounds().Dx())
	assert.Equal(t, 44, frame.Image.Bounds().Dy())

	frame, err = s.Render(context.Background())
	require.NoError(t, err)
	assert.Zero(t, frame.Redrawn)

	changed, err := s.SetCount(0, 7)
	require.NoError(t, err)
	assert.True(t, changed)

	frame, err = s.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Redrawn)
}

func TestRenderComposesTiles(t *testing.T) {
	s := newSheet(t)
	_, err := s.Apply(testConfig())
	require.NoError(t, err)

	frame, err := s.Render(context.Background())
	require.NoError(t, err)

	r, g, b, _ := frame.Image.At(40, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r, "work badge fill")
	assert.Zero(t, g)
	assert.Zero(t, b)

	_, g, _, _ = frame.Image.At(30, 25).RGBA()
	assert.Equal(t, uint32(0xffff), g, "gym badge fill")

	bg := color.RGBAModel.Convert(frame.Image.At(75, 30)).(color.RGBA)
	assert.Equal(t, color.RGBA{A: 0xff}, bg, "background outside the tiles")
}

func TestDarkAppearanceUsesDarkColor(t *testing.T) {
	s := newSheet(t)
	cfg := testConfig()
	cfg.Dark = true
	_, err := s.Apply(cfg)
	require.NoError(t, err)

	st, ok := s.State(1)
	require.True(t, ok)
	assert.Equal(t, "#006600", st.TagColor)
	assert.True(t, st.Dark)
}

func TestSetTagAndErrors(t *testing.T) {
	s := newSheet(t)

	_, err := s.SetCount(0, 2)
	assert.Error(t, err, "no config yet")

	_, err = s.Apply(testConfig())
	require.NoError(t, err)

	changed, err := s.SetTag(1, "Work")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Work", s.Items()[1].Tag)

	_, err = s.SetTag(1, "Nope")
	assert.ErrorContains(t, err, `unknown tag "Nope"`)
	_, err = s.SetCount(0, -1)
	assert.Error(t, err)
	_, err = s.SetCount(5, 1)
	assert.ErrorContains(t, err, "out of range")
}

func TestUpdateIsAllOrNothing(t *testing.T) {
	s := newSheet(t)
	_, err := s.Apply(testConfig())
	require.NoError(t, err)

	tag, count := "Work", -1
	_, err = s.Update(1, &tag, &count)
	assert.ErrorContains(t, err, "negative count")
	assert.Equal(t, "Gym", s.Items()[1].Tag, "tag kept when the count is rejected")

	bad, good := "Nope", 5
	_, err = s.Update(1, &bad, &good)
	assert.Error(t, err)
	assert.Zero(t, s.Items()[1].Count, "count kept when the tag is rejected")

	count = 5
	changed, err := s.Update(1, &tag, &count)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, config.ItemConfig{Tag: "Work", Count: 5, Y: 24, Width: 60, Height: 20}, s.Items()[1])
}

func TestOnDirtyReportsIndex(t *testing.T) {
	s := newSheet(t)
	var dirty []int
	s.OnDirty = func(index int) { dirty = append(dirty, index) }

	_, err := s.Apply(testConfig())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, dirty)

	dirty = nil
	_, err = s.SetCount(1, 9)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, dirty)
}

func TestShrinkingConfigDropsTiles(t *testing.T) {
	s := newSheet(t)
	_, err := s.Apply(testConfig())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Items = cfg.Items[:1]
	changed, err := s.Apply(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Len(t, s.Items(), 1)

	frame, err := s.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, frame.Image.Bounds().Dy())
}

func TestApplyCountsLayoutChanges(t *testing.T) {
	s := newSheet(t)
	cfg := testConfig()
	cfg.Width, cfg.Height = 100, 100
	_, err := s.Apply(cfg)
	require.NoError(t, err)

	moved := testConfig()
	moved.Width, moved.Height = 100, 100
	moved.Items[1].X = 10
	changed, err := s.Apply(moved)
	require.NoError(t, err)
	assert.Equal(t, 1, changed, "a moved badge is a change")

	repainted := testConfig()
	repainted.Width, repainted.Height = 100, 100
	repainted.Items[1].X = 10
	repainted.Background = "#FFFFFF"
	changed, err = s.Apply(repainted)
	require.NoError(t, err)
	assert.Equal(t, 1, changed, "a new background is a change")

	frame, err := s.Render(context.Background())
	require.NoError(t, err)
	bg := color.RGBAModel.Convert(frame.Image.At(95, 95)).(color.RGBA)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, bg)
	_, g, _, _ := frame.Image.At(40, 25).RGBA()
	assert.Equal(t, uint32(0xffff), g, "gym badge at its new place")

	grown := testConfig()
	grown.Width, grown.Height = 120, 100
	grown.Items[1].X = 10
	grown.Background = "#FFFFFF"
	changed, err = s.Apply(grown)
	require.NoError(t, err)
	assert.Equal(t, 1, changed, "a new sheet size is a change")
}

func TestRenderWithoutConfig(t *testing.T) {
	_, err := newSheet(t).Render(context.Background())
	assert.Error(t, err)
}

func TestRenderCanceled(t *testing.T) {
	s := newSheet(t)
	_, err := s.Apply(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Render(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
