// Package fonts handles font discovery and face caching
package fonts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// ErrNoFonts is returned when neither system nor builtin fonts are available
var ErrNoFonts = errors.New("no fonts found")

// BuiltinPrefix marks virtual paths of the embedded Go fonts
const BuiltinPrefix = "builtin:"

// DefaultBuiltin is the fallback face when a font file cannot be loaded
const DefaultBuiltin = BuiltinPrefix + "goregular"

type builtinFont struct {
	name   string
	family string
	style  string
	data   []byte
}

var builtins = []builtinFont{
	{"goregular", "Go", "Regular", goregular.TTF},
	{"gobold", "Go", "Bold", gobold.TTF},
	{"goitalic", "Go", "Italic", goitalic.TTF},
	{"gobolditalic", "Go", "Bold Italic", gobolditalic.TTF},
	{"gomedium", "Go", "Medium", gomedium.TTF},
	{"gomono", "Go Mono", "Regular", gomono.TTF},
	{"gomonobold", "Go Mono", "Bold", gomonobold.TTF},
}

func builtinData(name string) ([]byte, bool) {
	for _, b := range builtins {
		if b.name == name {
			return b.data, true
		}
	}
	return nil, false
}

// fallbackChoices are tried in order when the configured default is missing
var fallbackChoices = [][2]string{
	{"DejaVu Sans", "Book"},
	{"DejaVu Serif", "Book"},
	{"Noto Sans", "Regular"},
	{"Go", "Regular"},
}

// Options configures font discovery
type Options struct {
	Folders       []string // scanned in order; later duplicates are ignored
	Builtin       bool     // include the embedded Go fonts
	DefaultFamily string
	DefaultStyle  string
}

// SystemFolders lists the usual font directories of a Linux host
func SystemFolders() []string {
	dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".fonts"), filepath.Join(home, ".local", "share", "fonts"))
	}
	return dirs
}

// Resolver maps family and style names to font files
type Resolver struct {
	families      map[string]map[string]string
	defaultFamily string
	defaultStyle  string
}

// NewResolver scans the configured folders. It fails with ErrNoFonts when nothing was found.
func NewResolver(opts Options, log *zap.Logger) (*Resolver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{families: make(map[string]map[string]string)}

	for _, dir := range opts.Folders {
		if dir == "" {
			continue
		}
		n, err := r.scan(dir)
		if err != nil {
			log.Debug("skipping font folder", zap.String("dir", dir), zap.Error(err))
			continue
		}
		log.Debug("scanned font folder", zap.String("dir", dir), zap.Int("fonts", n))
	}

	if opts.Builtin {
		for _, b := range builtins {
			r.add(b.family, b.style, BuiltinPrefix+b.name)
		}
	}

	if len(r.families) == 0 {
		return nil, ErrNoFonts
	}

	r.defaultFamily, r.defaultStyle = r.pickDefault(opts.DefaultFamily, opts.DefaultStyle)
	log.Info("fonts loaded",
		zap.Int("families", len(r.families)),
		zap.String("default", r.defaultFamily+","+r.defaultStyle))
	return r, nil
}

func (r *Resolver) scan(dir string) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, err
	}
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ttf", ".otf", ".ttc":
		default:
			return nil
		}
		family, style, err := readNames(path)
		if err != nil {
			return nil
		}
		if r.add(family, style, path) {
			count++
		}
		return nil
	})
	return count, err
}

func (r *Resolver) add(family, style, path string) bool {
	styles, ok := r.families[family]
	if !ok {
		styles = make(map[string]string)
		r.families[family] = styles
	}
	if _, exists := styles[style]; exists {
		return false
	}
	styles[style] = path
	return true
}

func readNames(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		coll, cerr := sfnt.ParseCollection(data)
		if cerr != nil {
			return "", "", err
		}
		if f, err = coll.Font(0); err != nil {
			return "", "", err
		}
	}

	var buf sfnt.Buffer
	family := nameOf(f, &buf, sfnt.NameIDTypographicFamily, sfnt.NameIDFamily)
	style := nameOf(f, &buf, sfnt.NameIDTypographicSubfamily, sfnt.NameIDSubfamily)
	if family == "" {
		return "", "", fmt.Errorf("font %s has no family name", path)
	}
	if style == "" {
		style = "Regular"
	}
	return family, style, nil
}

func nameOf(f *sfnt.Font, buf *sfnt.Buffer, ids ...sfnt.NameID) string {
	for _, id := range ids {
		if s, err := f.Name(buf, id); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func (r *Resolver) pickDefault(family, style string) (string, string) {
	if _, err := r.Path(family, style); err == nil {
		return family, style
	}
	for _, c := range fallbackChoices {
		if _, err := r.Path(c[0], c[1]); err == nil {
			return c[0], c[1]
		}
	}
	fam := r.Families()[0]
	return fam, r.Styles(fam)[0]
}

// Path resolves a family and style to a file path
func (r *Resolver) Path(family, style string) (string, error) {
	styles, ok := r.families[family]
	if !ok {
		return "", fmt.Errorf("font family not found: %s", family)
	}
	path, ok := styles[style]
	if !ok {
		return "", fmt.Errorf("font style %q not found in family %s", style, family)
	}
	return path, nil
}

// PathOrDefault resolves family and style, falling back to the default font
func (r *Resolver) PathOrDefault(family, style string) string {
	if family == "" {
		family = r.defaultFamily
	}
	if style == "" {
		style = r.defaultStyle
	}
	if path, err := r.Path(family, style); err == nil {
		return path
	}
	if styles, ok := r.families[family]; ok {
		for _, s := range sortedKeys(styles) {
			return styles[s]
		}
	}
	path, _ := r.Path(r.defaultFamily, r.defaultStyle)
	return path
}

// Default returns the default family and style
func (r *Resolver) Default() (string, string) {
	return r.defaultFamily, r.defaultStyle
}

// Families returns all family names sorted
func (r *Resolver) Families() []string {
	return sortedKeys(r.families)
}

// Styles returns the styles available for family, sorted
func (r *Resolver) Styles(family string) []string {
	return sortedKeys(r.families[family])
}

// List returns every font as "Family,Style"
func (r *Resolver) List() []string {
	var out []string
	for _, fam := range r.Families() {
		for _, style := range r.Styles(fam) {
			out = append(out, fam+","+style)
		}
	}
	return out
}

// Catalog returns family -> style -> path for the config endpoint
func (r *Resolver) Catalog() map[string]map[string]string {
	out := make(map[string]map[string]string, len(r.families))
	for fam, styles := range r.families {
		cp := make(map[string]string, len(styles))
		for s, p := range styles {
			cp[s] = p
		}
		out[fam] = cp
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
