package badge

import (
	"image/color"
	"sync"

	"tagbadge/internal/text"
)

// OpKind names a recorded canvas call.
type OpKind string

const (
	OpSetFill OpKind = "set-fill"
	OpFill    OpKind = "fill"
	OpSave    OpKind = "save"
	OpRestore OpKind = "restore"
	OpFlip    OpKind = "flip"
	OpLine    OpKind = "line"
)

// Op is one recorded canvas call. Only the fields relevant to Kind are set.
type Op struct {
	Kind   OpKind
	Color  color.Color
	Rect   text.Rect
	Height float64
	Line   *text.Line
	Origin text.Point
}

// Recorder is a Canvas that remembers what was drawn instead of drawing it.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *Recorder) SetFillColor(c color.Color) { r.add(Op{Kind: OpSetFill, Color: c}) }
func (r *Recorder) FillRect(rect text.Rect)    { r.add(Op{Kind: OpFill, Rect: rect}) }
func (r *Recorder) SaveState()                 { r.add(Op{Kind: OpSave}) }
func (r *Recorder) RestoreState()              { r.add(Op{Kind: OpRestore}) }
func (r *Recorder) FlipVertical(height float64) {
	r.add(Op{Kind: OpFlip, Height: height})
}

func (r *Recorder) DrawLine(line *text.Line, origin text.Point) {
	r.add(Op{Kind: OpLine, Line: line, Origin: origin})
}

// Ops returns a copy of everything recorded so far.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Lines returns the recorded DrawLine calls.
func (r *Recorder) Lines() []Op {
	return r.filter(OpLine)
}

// Count returns how many calls of kind were recorded.
func (r *Recorder) Count(kind OpKind) int {
	return len(r.filter(kind))
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}

func (r *Recorder) filter(kind OpKind) []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Op
	for _, op := range r.ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}
