package fonts

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Loader opens a font file at a given point size.
// Tests substitute their own implementation.
type Loader interface {
	Load(path string, size int) (font.Face, error)
}

// OpenTypeLoader loads TrueType/OpenType files and the embedded Go fonts
type OpenTypeLoader struct {
	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

// NewOpenTypeLoader creates a loader that parses each file once
func NewOpenTypeLoader() *OpenTypeLoader {
	return &OpenTypeLoader{parsed: make(map[string]*opentype.Font)}
}

// Load implements Loader
func (l *OpenTypeLoader) Load(path string, size int) (font.Face, error) {
	f, err := l.font(path)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face for %s: %w", path, err)
	}
	return face, nil
}

func (l *OpenTypeLoader) font(path string) (*opentype.Font, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.parsed[path]; ok {
		return f, nil
	}

	var data []byte
	if name, ok := strings.CutPrefix(path, BuiltinPrefix); ok {
		b, found := builtinData(name)
		if !found {
			return nil, fmt.Errorf("unknown builtin font: %s", name)
		}
		data = b
	} else {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		data = b
	}

	f, err := parseFirst(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	l.parsed[path] = f
	return f, nil
}

func parseFirst(data []byte) (*opentype.Font, error) {
	f, err := opentype.Parse(data)
	if err == nil {
		return f, nil
	}
	coll, cerr := opentype.ParseCollection(data)
	if cerr != nil {
		return nil, err
	}
	return coll.Font(0)
}

type cacheKey struct {
	path string
	size int
}

// Cache memoizes font faces by (path, size). Entries are never evicted.
type Cache struct {
	mu     sync.Mutex
	loader Loader
	faces  map[cacheKey]font.Face
	log    *zap.Logger
}

// NewCache creates an empty cache backed by loader
func NewCache(loader Loader, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		loader: loader,
		faces:  make(map[cacheKey]font.Face),
		log:    log,
	}
}

// Face returns the face for path at size. If the font cannot be loaded
// the failure is logged and the builtin default font is used instead.
func (c *Cache) Face(path string, size int) font.Face {
	if size < 1 {
		size = 1
	}
	key := cacheKey{path: path, size: size}

	c.mu.Lock()
	defer c.mu.Unlock()

	if face, ok := c.faces[key]; ok {
		return face
	}

	face, err := c.loader.Load(path, size)
	if err != nil {
		c.log.Error("failed to load font, using builtin fallback",
			zap.String("path", path), zap.Int("size", size), zap.Error(err))
		face, err = c.loader.Load(DefaultBuiltin, size)
		if err != nil {
			// the loader cannot even open the embedded font
			face, _ = NewOpenTypeLoader().Load(DefaultBuiltin, size)
		}
	}

	face = &lockedFace{face: face}
	c.faces[key] = face
	return face
}

// Len reports how many faces are cached
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.faces)
}

// lockedFace serializes access to a face so one cached entry can be shared
// by concurrent renders. Glyph masks are copied out before the lock is released.
type lockedFace struct {
	mu   sync.Mutex
	face font.Face
}

func (f *lockedFace) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.face.Close()
}

func (f *lockedFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dr, mask, maskp, advance, ok := f.face.Glyph(dot, r)
	if !ok || mask == nil {
		return dr, mask, maskp, advance, ok
	}
	// copy only the part of the mask this glyph uses
	src := image.Rectangle{Min: maskp, Max: maskp.Add(dr.Size())}
	out := image.NewAlpha(image.Rect(0, 0, src.Dx(), src.Dy()))
	draw.Draw(out, out.Bounds(), mask, src.Min, draw.Src)
	return dr, out, image.Point{}, advance, ok
}

func (f *lockedFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.face.GlyphBounds(r)
}

func (f *lockedFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.face.GlyphAdvance(r)
}

func (f *lockedFace) Kern(r0, r1 rune) fixed.Int26_6 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.face.Kern(r0, r1)
}

func (f *lockedFace) Metrics() font.Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.face.Metrics()
}
