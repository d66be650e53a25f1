package output

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
)

type FileOutputHandler struct {
	filePath string
}

func NewFileOutputHandler(filePath string) *FileOutputHandler {
	return &FileOutputHandler{
		filePath: filePath,
	}
}

func (f *FileOutputHandler) GetType() string {
	return "file"
}

// Output writes a PNG next to the target and renames it into place, so
// readers never see a half-written file.
func (f *FileOutputHandler) Output(img image.Image) error {
	dir := filepath.Dir(f.filePath)
	tmp, err := os.CreateTemp(dir, ".tagbadge-*.png")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.filePath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.filePath, err)
	}
	return nil
}

func (f *FileOutputHandler) Close() error {
	return nil
}

// MemoryOutputHandler keeps the most recent image as encoded PNG bytes.
type MemoryOutputHandler struct {
	mu      sync.RWMutex
	data    []byte
	version uint64
}

func NewMemoryOutputHandler() *MemoryOutputHandler {
	return &MemoryOutputHandler{}
}

func (m *MemoryOutputHandler) GetType() string {
	return "memory"
}

func (m *MemoryOutputHandler) Output(img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}

	m.mu.Lock()
	m.data = buf.Bytes()
	m.version++
	m.mu.Unlock()
	return nil
}

// Latest returns the last PNG and a counter that grows with every frame.
func (m *MemoryOutputHandler) Latest() ([]byte, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data, m.version
}

func (m *MemoryOutputHandler) Close() error {
	return nil
}
