// Package watch re-renders a sheet whenever its config file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"tagbadge/internal/config"
	"tagbadge/internal/logging"
	"tagbadge/internal/output"
	"tagbadge/internal/sheet"
)

const DefaultDebounce = 250 * time.Millisecond

type Watcher struct {
	configs  *config.ConfigManager
	name     string
	sheet    *sheet.Sheet
	outputs  *output.OutputManager
	debounce time.Duration
	watcher  *fsnotify.Watcher
	log      *logrus.Entry

	// OnFrame is called after every frame handed to the outputs.
	OnFrame func(sheet.Frame)
}

func New(configs *config.ConfigManager, name string, sh *sheet.Sheet, outputs *output.OutputManager, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		configs:  configs,
		name:     name,
		sheet:    sh,
		outputs:  outputs,
		debounce: debounce,
		watcher:  fw,
		log:      logging.Module("watch"),
	}, nil
}

// Run renders once, then again after each change to the config file, until
// ctx is done. A config that fails to load is logged and the previous one
// stays on screen.
func (w *Watcher) Run(ctx context.Context) error {
	// Editors replace files on save, so the directory is watched rather than
	// the file.
	if err := w.watcher.Add(w.configs.Dir()); err != nil {
		return fmt.Errorf("watch %s: %w", w.configs.Dir(), err)
	}
	if _, err := w.Refresh(ctx); err != nil {
		return err
	}
	w.log.Infof("Watching %s for changes to %s", w.configs.Dir(), w.name)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if _, err := w.reload(ctx); err != nil {
				w.log.Warnf("Keeping previous sheet: %v", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) == w.name && (ext == ".json" || ext == ".toml")
}

func (w *Watcher) reload(ctx context.Context) (sheet.Frame, error) {
	cfg, err := w.configs.ReloadConfig(w.name)
	if err != nil {
		return sheet.Frame{}, err
	}
	return w.apply(ctx, cfg)
}

// Refresh renders the currently loaded config.
func (w *Watcher) Refresh(ctx context.Context) (sheet.Frame, error) {
	cfg, err := w.configs.LoadConfig(w.name)
	if err != nil {
		return sheet.Frame{}, err
	}
	return w.apply(ctx, cfg)
}

func (w *Watcher) apply(ctx context.Context, cfg *config.SheetConfig) (sheet.Frame, error) {
	changed, err := w.sheet.Apply(cfg)
	if err != nil {
		return sheet.Frame{}, err
	}
	frame, err := w.sheet.Render(ctx)
	if err != nil {
		return sheet.Frame{}, err
	}
	w.log.Infof("Applied %s: %d changed, %d redrawn", w.name, changed, frame.Redrawn)

	if changed == 0 && frame.Redrawn == 0 {
		return frame, nil
	}
	if err := w.outputs.Output(frame.Image); err != nil {
		return frame, fmt.Errorf("output frame: %w", err)
	}
	if w.OnFrame != nil {
		w.OnFrame(frame)
	}
	return frame, nil
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
