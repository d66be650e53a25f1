package text

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/opentype"

	"tagbadge/internal/logging"
)

// Weight selects one of the faces a Source carries.
type Weight int

const (
	WeightMedium Weight = iota
	WeightSemibold
)

func (w Weight) String() string {
	switch w {
	case WeightMedium:
		return "medium"
	case WeightSemibold:
		return "semibold"
	default:
		return fmt.Sprintf("weight(%d)", int(w))
	}
}

// FontSpec identifies a face at a concrete size in points (72 DPI, so points
// and pixels coincide).
type FontSpec struct {
	Weight Weight
	Size   float64
}

// Source holds parsed fonts. It is safe for concurrent use; the faces built
// from it are not, which is why faces are handed out in per-goroutine sets.
type Source struct {
	fonts map[Weight]*opentype.Font
	pool  sync.Pool
}

var (
	defaultSource     *Source
	defaultSourceErr  error
	defaultSourceOnce sync.Once
)

// DefaultSource returns the process-wide source built from the embedded Go
// fonts.
func DefaultSource() (*Source, error) {
	defaultSourceOnce.Do(func() {
		defaultSource, defaultSourceErr = NewGoSource()
	})
	return defaultSource, defaultSourceErr
}

// NewGoSource builds a source from the embedded Go fonts: Go Medium for
// titles and Go Bold for counts.
func NewGoSource() (*Source, error) {
	medium, err := opentype.Parse(gomedium.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go medium: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go bold: %w", err)
	}
	return newSource(map[Weight]*opentype.Font{
		WeightMedium:   medium,
		WeightSemibold: bold,
	}), nil
}

// LoadSource reads a .ttf, .otf or .ttc file and uses it for every weight.
func LoadSource(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}

	var f *opentype.Font
	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		collection, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parse font collection %s: %w", path, err)
		}
		f, err = collection.Font(0)
		if err != nil {
			return nil, fmt.Errorf("font collection %s: %w", path, err)
		}
	} else {
		f, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", path, err)
		}
	}

	logging.Module("font").Infof("Using font: %s", filepath.Base(path))
	return newSource(map[Weight]*opentype.Font{
		WeightMedium:   f,
		WeightSemibold: f,
	}), nil
}

// ResolveSource picks the font source for a config: an explicit file path, a
// family file name looked up in the usual font directories, or the embedded
// Go fonts.
func ResolveSource(fontFile string) (*Source, error) {
	if fontFile == "" {
		return DefaultSource()
	}
	if _, err := os.Stat(fontFile); err == nil {
		return LoadSource(fontFile)
	}
	if path := findFontByName(fontFile); path != "" {
		return LoadSource(path)
	}
	logging.Module("font").Warnf("Font %q not found, using embedded Go fonts", fontFile)
	return DefaultSource()
}

func newSource(fonts map[Weight]*opentype.Font) *Source {
	s := &Source{fonts: fonts}
	s.pool.New = func() any {
		return &Faces{src: s, faces: make(map[FontSpec]font.Face)}
	}
	return s
}

// Acquire borrows a face set. The caller owns it until Release.
func (s *Source) Acquire() *Faces {
	return s.pool.Get().(*Faces)
}

// Release returns a face set to the pool.
func (s *Source) Release(f *Faces) {
	if f == nil || f.src != s {
		return
	}
	f.trim()
	s.pool.Put(f)
}

func (s *Source) newFace(spec FontSpec) (font.Face, error) {
	f, ok := s.fonts[spec.Weight]
	if !ok {
		f, ok = s.fonts[WeightMedium]
	}
	if !ok {
		return nil, fmt.Errorf("no font for %s", spec.Weight)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    spec.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// maxFacesPerSet bounds how many sizes one set keeps around. Scaled text
// produces arbitrary sizes, so sets are cleared once they grow past this.
const maxFacesPerSet = 32

// Faces is a lazily populated set of faces. Not safe for concurrent use.
type Faces struct {
	src   *Source
	faces map[FontSpec]font.Face
}

// Face returns the face for spec, creating it on first use. Creation failures
// fall back to the fixed 7x13 bitmap face.
func (f *Faces) Face(spec FontSpec) font.Face {
	if face, ok := f.faces[spec]; ok {
		return face
	}
	face, err := f.src.newFace(spec)
	if err != nil {
		logging.Module("font").Warnf("Face %s@%.2f unavailable: %v", spec.Weight, spec.Size, err)
		face = basicfont.Face7x13
	}
	f.faces[spec] = face
	return face
}

func (f *Faces) trim() {
	if len(f.faces) <= maxFacesPerSet {
		return
	}
	for spec, face := range f.faces {
		face.Close()
		delete(f.faces, spec)
	}
}

var fontDirs = []string{
	"/usr/share/fonts",
	"/usr/local/share/fonts",
	"/System/Library/Fonts",
	"/Library/Fonts",
	"~/.fonts",
	"~/.local/share/fonts",
}

func findFontByName(name string) string {
	home, _ := os.UserHomeDir()
	for _, dir := range fontDirs {
		if strings.HasPrefix(dir, "~/") {
			if home == "" {
				continue
			}
			dir = filepath.Join(home, dir[2:])
		}

		var found string
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			base := d.Name()
			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".ttf" && ext != ".otf" && ext != ".ttc" {
				return nil
			}
			if strings.Contains(strings.ToLower(base), strings.ToLower(name)) {
				found = path
				return fs.SkipAll
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}
