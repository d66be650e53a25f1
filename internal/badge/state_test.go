package badge

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateEqualityCoversAllFields(t *testing.T) {
	base := State{Title: "Work", Count: 2, TagColor: "#FF0000", TextColor: "#FFFFFF", Width: 80, Dark: false}

	variants := []State{
		{Title: "Home", Count: 2, TagColor: "#FF0000", TextColor: "#FFFFFF", Width: 80},
		{Title: "Work", Count: 3, TagColor: "#FF0000", TextColor: "#FFFFFF", Width: 80},
		{Title: "Work", Count: 2, TagColor: "#00FF00", TextColor: "#FFFFFF", Width: 80},
		{Title: "Work", Count: 2, TagColor: "#FF0000", TextColor: "#000000", Width: 80},
		{Title: "Work", Count: 2, TagColor: "#FF0000", TextColor: "#FFFFFF", Width: 81},
		{Title: "Work", Count: 2, TagColor: "#FF0000", TextColor: "#FFFFFF", Width: 80, Dark: true},
	}

	copied := base
	assert.True(t, base == copied)
	assert.Equal(t, base.Hash(), copied.Hash())

	for _, v := range variants {
		assert.False(t, base == v, "%+v", v)
		assert.NotEqual(t, base.Hash(), v.Hash(), "%+v", v)
	}
}

func TestStateHashSeparatesFields(t *testing.T) {
	a := State{Title: "ab", TagColor: "c"}
	b := State{Title: "a", TagColor: "bc"}
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestCacheKeyIncludesSlot(t *testing.T) {
	s := State{Title: "Work", Count: 2}
	assert.NotEqual(t, CacheKey{Slot: SlotTitle, State: s}, CacheKey{Slot: SlotCount, State: s})
	assert.Equal(t, "title", SlotTitle.String())
	assert.Equal(t, "count", SlotCount.String())
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
	}{
		{"#FF0000", color.NRGBA{R: 0xff, A: 0xff}},
		{"00ff7f", color.NRGBA{G: 0xff, B: 0x7f, A: 0xff}},
		{"#fff", color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		{" #336699 ", color.NRGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xff}},
		{"#33669980", color.NRGBA{R: 0x33, G: 0x66, B: 0x99, A: 0x80}},
	}
	for _, tc := range cases {
		got, ok := ParseColor(tc.in)
		assert.True(t, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "not-a-color", "#12345z", "#ff00", "#gggggg", "#336699zz", "red"} {
		_, ok := ParseColor(bad)
		assert.False(t, ok, bad)
	}
}
