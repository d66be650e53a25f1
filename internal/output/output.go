package output

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"tagbadge/internal/logging"
)

// OutputHandler is a destination for rendered sheets.
type OutputHandler interface {
	Output(img image.Image) error
	Close() error
	GetType() string
}

// OutputManager fans a frame out to several handlers. Handlers may be added
// while frames are being written.
type OutputManager struct {
	mu       sync.RWMutex
	handlers []OutputHandler
}

func NewOutputManager() *OutputManager {
	return &OutputManager{}
}

func (om *OutputManager) AddHandler(handler OutputHandler) {
	om.mu.Lock()
	om.handlers = append(om.handlers, handler)
	om.mu.Unlock()
}

// Types lists the handler types in the order they were added.
func (om *OutputManager) Types() []string {
	om.mu.RLock()
	defer om.mu.RUnlock()
	types := make([]string, len(om.handlers))
	for i, h := range om.handlers {
		types[i] = h.GetType()
	}
	return types
}

// Output hands img to every handler. A frame counts as delivered when at
// least one handler took it; otherwise all failures are returned.
func (om *OutputManager) Output(img image.Image) error {
	om.mu.RLock()
	handlers := append([]OutputHandler(nil), om.handlers...)
	om.mu.RUnlock()

	log := logging.Module("output")
	var errs []error
	for _, handler := range handlers {
		start := time.Now()
		if err := handler.Output(img); err != nil {
			log.Warnf("%s failed: %v", handler.GetType(), err)
			errs = append(errs, err)
			continue
		}
		log.Debugf("%s took %v", handler.GetType(), time.Since(start))
	}

	if len(errs) > 0 && len(errs) == len(handlers) {
		return errors.Join(errs...)
	}
	return nil
}

func (om *OutputManager) Close() error {
	om.mu.Lock()
	defer om.mu.Unlock()

	var errs []error
	for _, handler := range om.handlers {
		if err := handler.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", handler.GetType(), err))
		}
	}
	om.handlers = nil
	return errors.Join(errs...)
}
