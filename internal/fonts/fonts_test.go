package fonts

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	inner *OpenTypeLoader
}

func newCountingLoader() *countingLoader {
	return &countingLoader{
		calls: make(map[string]int),
		fail:  make(map[string]bool),
		inner: NewOpenTypeLoader(),
	}
}

func (l *countingLoader) Load(path string, size int) (font.Face, error) {
	l.mu.Lock()
	l.calls[path]++
	failing := l.fail[path]
	l.mu.Unlock()
	if failing {
		return nil, errors.New("broken font")
	}
	return l.inner.Load(path, size)
}

func TestCache_MemoizesByPathAndSize(t *testing.T) {
	loader := newCountingLoader()
	cache := NewCache(loader, nil)

	a := cache.Face(DefaultBuiltin, 20)
	b := cache.Face(DefaultBuiltin, 20)
	c := cache.Face(DefaultBuiltin, 30)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, loader.calls[DefaultBuiltin])
	assert.Equal(t, 2, cache.Len())
}

func TestCache_FallsBackOnLoadFailure(t *testing.T) {
	loader := newCountingLoader()
	loader.fail["/missing/font.ttf"] = true
	core, logs := observer.New(zapcore.ErrorLevel)
	cache := NewCache(loader, zap.New(core))

	face := cache.Face("/missing/font.ttf", 24)
	require.NotNil(t, face)
	assert.Greater(t, face.Metrics().Height.Ceil(), 0)
	assert.Equal(t, 1, logs.Len())

	// the fallback is cached under the requested key
	cache.Face("/missing/font.ttf", 24)
	assert.Equal(t, 1, loader.calls["/missing/font.ttf"])
}

func TestCache_ConcurrentUse(t *testing.T) {
	cache := NewCache(NewOpenTypeLoader(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			face := cache.Face(DefaultBuiltin, 18)
			d := font.Drawer{Face: face}
			d.MeasureString("concurrent")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cache.Len())
}

func TestResolver_Builtin(t *testing.T) {
	r, err := NewResolver(Options{Builtin: true, DefaultFamily: "Nope", DefaultStyle: "Book"}, nil)
	require.NoError(t, err)

	fam, style := r.Default()
	assert.Equal(t, "Go", fam)
	assert.Equal(t, "Regular", style)

	path, err := r.Path("Go", "Bold")
	require.NoError(t, err)
	assert.Equal(t, BuiltinPrefix+"gobold", path)

	_, err = r.Path("Go", "Condensed")
	assert.Error(t, err)

	assert.Contains(t, r.List(), "Go Mono,Regular")
	assert.Equal(t, DefaultBuiltin, r.PathOrDefault("", ""))
	assert.Equal(t, DefaultBuiltin, r.PathOrDefault("Unknown", "Style"))
}

func TestResolver_NoFonts(t *testing.T) {
	_, err := NewResolver(Options{Folders: []string{t.TempDir()}}, nil)
	assert.ErrorIs(t, err, ErrNoFonts)
}

func TestResolver_ScansFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "GoRegular.ttf"), goregular.TTF, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a font"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.ttf"), []byte("garbage"), 0644))

	r, err := NewResolver(Options{Folders: []string{dir}}, nil)
	require.NoError(t, err)

	path, err := r.Path("Go", "Regular")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sub", "GoRegular.ttf"), path)
	assert.Equal(t, []string{"Go"}, r.Families())

	face, err := NewOpenTypeLoader().Load(path, 12)
	require.NoError(t, err)
	assert.Greater(t, face.Metrics().Ascent.Ceil(), 0)
}
