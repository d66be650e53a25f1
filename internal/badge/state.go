package badge

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// State is everything that decides how one badge looks. States are compared
// with ==; a State is never modified once built, a new one replaces it.
type State struct {
	Title     string
	Count     int
	TagColor  string
	TextColor string
	Width     float64
	Dark      bool
}

// Hash is an FNV-1a hash over all six fields.
func (s State) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte

	writeString := func(v string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(v)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write([]byte(v))
	}

	writeString(s.Title)
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(s.Count)))
	_, _ = h.Write(buf[:])
	writeString(s.TagColor)
	writeString(s.TextColor)
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s.Width))
	_, _ = h.Write(buf[:])
	if s.Dark {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// ShowsCount reports whether the count suffix is drawn.
func (s State) ShowsCount() bool {
	return s.Count > 1
}

// Slot names one of the two independently cached texts of a badge.
type Slot uint8

const (
	SlotTitle Slot = iota
	SlotCount
)

func (s Slot) String() string {
	if s == SlotCount {
		return "count"
	}
	return "title"
}

// CacheKey identifies a cached layout.
type CacheKey struct {
	Slot  Slot
	State State
}
