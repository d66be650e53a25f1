package sheet

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tagbadge/internal/badge"
	"tagbadge/internal/config"
	"tagbadge/internal/logging"
)

// Frame is one composed sheet.
type Frame struct {
	Image   image.Image
	Redrawn int
}

type tile struct {
	item config.ItemConfig
	node *badge.Node
	img  image.Image
}

// Sheet lays out one badge per config item. Items keep their node across
// Apply calls, so only badges whose state changed are drawn again.
type Sheet struct {
	mu       sync.Mutex
	renderer *badge.Renderer
	cfg      *config.SheetConfig
	tiles    []*tile
	log      *logrus.Entry

	// OnDirty is told which item needs drawing. It runs with the sheet
	// locked and must not call back into it.
	OnDirty func(index int)
}

func New(renderer *badge.Renderer) *Sheet {
	return &Sheet{
		renderer: renderer,
		log:      logging.Module("sheet"),
	}
}

// Apply pushes every item of cfg through its node and returns how many
// badges changed. A badge that only moved counts as changed, and so does the
// sheet itself once when its size, background or item list shrank.
func (s *Sheet) Apply(cfg *config.SheetConfig) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg
	s.cfg = cfg
	changed := 0
	for i, item := range cfg.Items {
		added := i == len(s.tiles)
		if added {
			s.tiles = append(s.tiles, s.newTile(i))
		}
		t := s.tiles[i]
		moved := !added && (t.item.X != item.X || t.item.Y != item.Y)
		t.item = item
		size := badge.Size{W: float64(item.Width), H: float64(item.Height)}
		resized := t.node.Bounds() != size
		t.node.SetBounds(size)

		tag, _ := cfg.Tag(item.Tag)
		if t.node.UpdateTag(tag, item.GetCount(), cfg.Dark) || resized || moved {
			changed++
		}
	}

	relaid := prev != nil && (prev.GetWidth() != cfg.GetWidth() ||
		prev.GetHeight() != cfg.GetHeight() ||
		prev.GetBackground() != cfg.GetBackground())
	if len(s.tiles) > len(cfg.Items) {
		s.tiles = s.tiles[:len(cfg.Items)]
		relaid = true
	}
	if relaid {
		changed++
	}
	return changed, nil
}

func (s *Sheet) newTile(index int) *tile {
	node := badge.NewNode(s.renderer, badge.Size{})
	node.OnDirty = func() {
		if s.OnDirty != nil {
			s.OnDirty(index)
		}
	}
	return &tile{node: node}
}

// SetCount changes the count of one item.
func (s *Sheet) SetCount(index, count int) (bool, error) {
	return s.Update(index, nil, &count)
}

// SetTag points one item at another tag.
func (s *Sheet) SetTag(index int, title string) (bool, error) {
	return s.Update(index, &title, nil)
}

// Update changes the tag and the count of one item together. Nil leaves a
// field as it is. Nothing changes unless both values are valid.
func (s *Sheet) Update(index int, title *string, count *int) (bool, error) {
	return s.update(index, func(item *config.ItemConfig) error {
		if count != nil && *count < 0 {
			return fmt.Errorf("negative count %d", *count)
		}
		if title != nil {
			if _, ok := s.cfg.Tag(*title); !ok {
				return fmt.Errorf("unknown tag %q", *title)
			}
			item.Tag = *title
		}
		if count != nil {
			item.Count = *count
		}
		return nil
	})
}

func (s *Sheet) update(index int, change func(item *config.ItemConfig) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg == nil || index < 0 || index >= len(s.tiles) {
		return false, fmt.Errorf("item %d out of range", index)
	}
	t := s.tiles[index]
	item := t.item
	if err := change(&item); err != nil {
		return false, err
	}
	t.item = item

	tag, _ := s.cfg.Tag(item.Tag)
	return t.node.UpdateTag(tag, item.GetCount(), s.cfg.Dark), nil
}

// Items returns the current items.
func (s *Sheet) Items() []config.ItemConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]config.ItemConfig, len(s.tiles))
	for i, t := range s.tiles {
		items[i] = t.item
	}
	return items
}

// State returns the badge state of one item.
func (s *Sheet) State(index int) (badge.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tiles) {
		return badge.State{}, false
	}
	return s.tiles[index].node.State()
}

// Render draws the dirty tiles concurrently and composes the sheet.
func (s *Sheet) Render(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg == nil {
		return Frame{}, fmt.Errorf("sheet has no config")
	}
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.GetRenderWorkers())

	redrawn := 0
	for _, t := range s.tiles {
		if !t.node.NeedsDisplay() && t.img != nil {
			continue
		}
		redrawn++
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t.img = drawTile(s.renderer, t.node)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Frame{}, fmt.Errorf("render tiles: %w", err)
	}

	dc := gg.NewContext(s.cfg.GetWidth(), s.cfg.GetHeight())
	if bg, ok := badge.ParseColor(s.cfg.GetBackground()); ok {
		dc.SetColor(bg)
	} else {
		dc.SetRGBA(0.1, 0.1, 0.1, 1.0)
	}
	dc.Clear()
	for _, t := range s.tiles {
		dc.DrawImage(t.img, t.item.X, t.item.Y)
	}

	s.log.Debugf("Rendered %d/%d tiles in %v", redrawn, len(s.tiles), time.Since(start))
	return Frame{Image: dc.Image(), Redrawn: redrawn}, nil
}

func drawTile(r *badge.Renderer, node *badge.Node) image.Image {
	bounds := node.Bounds()
	canvas := badge.NewGGCanvas(int(bounds.W), int(bounds.H), r.Source())
	defer canvas.Close()

	node.Display(canvas)
	return canvas.Image()
}
