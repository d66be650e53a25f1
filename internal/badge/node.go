package badge

// Tag is a tag record as far as drawing is concerned: a title and the colors
// it is shown with in light and dark appearance.
type Tag struct {
	Title          string `json:"title" toml:"title"`
	Color          string `json:"color" toml:"color"`
	DarkColor      string `json:"dark_color,omitempty" toml:"dark_color"`
	TitleColor     string `json:"title_color" toml:"title_color"`
	DarkTitleColor string `json:"dark_title_color,omitempty" toml:"dark_title_color"`
}

// ColorString returns the background color for the appearance.
func (t Tag) ColorString(dark bool) string {
	if dark && t.DarkColor != "" {
		return t.DarkColor
	}
	return t.Color
}

// TitleColorString returns the text color for the appearance.
func (t Tag) TitleColorString(dark bool) string {
	if dark && t.DarkTitleColor != "" {
		return t.DarkTitleColor
	}
	return t.TitleColor
}

// Node is one badge surface. It holds the state last pushed with Update and
// decides whether the host has to draw again; the host decides when.
//
// A Node is not safe for concurrent use: Update, SetBounds and Display are
// expected to come from the same goroutine.
type Node struct {
	renderer *Renderer
	bounds   Size
	state    *State
	dirty    bool

	// OnDirty is called each time the node is marked for redraw.
	OnDirty func()
}

// NewNode creates a node of the given size drawn by r.
func NewNode(r *Renderer, bounds Size) *Node {
	return &Node{renderer: r, bounds: bounds}
}

// Bounds returns the current size.
func (n *Node) Bounds() Size {
	return n.bounds
}

// SetBounds resizes the node. A different size needs a redraw.
func (n *Node) SetBounds(bounds Size) {
	if n.bounds == bounds {
		return
	}
	n.bounds = bounds
	if n.state != nil {
		n.setNeedsDisplay()
	}
}

// Update pushes new content. The width stored with the state is the width
// at this moment; Display measures again. It reports whether the state
// changed.
func (n *Node) Update(title string, count int, tagColor, textColor string, dark bool) bool {
	next := State{
		Title:     title,
		Count:     count,
		TagColor:  tagColor,
		TextColor: textColor,
		Width:     n.bounds.W,
		Dark:      dark,
	}
	if n.state != nil && *n.state == next {
		return false
	}
	n.state = &next
	n.setNeedsDisplay()
	return true
}

// UpdateTag pushes a tag's title and appearance colors.
func (n *Node) UpdateTag(tag Tag, count int, dark bool) bool {
	return n.Update(tag.Title, count, tag.ColorString(dark), tag.TitleColorString(dark), dark)
}

// State returns the current state, if any content was pushed.
func (n *Node) State() (State, bool) {
	if n.state == nil {
		return State{}, false
	}
	return *n.state, true
}

// NeedsDisplay reports whether the node changed since the last Display.
func (n *Node) NeedsDisplay() bool {
	return n.dirty
}

// SetNeedsDisplay forces the next DisplayIfNeeded to draw.
func (n *Node) SetNeedsDisplay() {
	n.setNeedsDisplay()
}

func (n *Node) setNeedsDisplay() {
	n.dirty = true
	if n.OnDirty != nil {
		n.OnDirty()
	}
}

// Display draws the node into c and marks it clean.
func (n *Node) Display(c Canvas) {
	n.dirty = false
	n.renderer.Draw(c, n.state, n.bounds)
}

// DisplayIfNeeded draws only when the node is dirty.
func (n *Node) DisplayIfNeeded(c Canvas) bool {
	if !n.dirty {
		return false
	}
	n.Display(c)
	return true
}
