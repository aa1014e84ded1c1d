// Package repository stores label designs as JSON files with their images alongside
package repository

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/thereceipt/label-designer/pkg/labelformat"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for names with no stored file
	ErrNotFound = errors.New("not found")
	// ErrNoName is returned when a save or lookup carries no usable name
	ErrNoName = errors.New("no name provided")
)

// keys of the per-line font editor that never belong in a stored design
var transientKeys = []string{
	"font_size", "font_inverted", "font", "font_align", "font_checkbox",
	"font_color", "line_spacing", "fontSettingsPerLine", "image_data",
}

var mimeExt = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

var extMime = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// Entry is one row of List
type Entry struct {
	Name      string  `json:"name"`
	Mtime     int64   `json:"mtime"`
	Size      int64   `json:"size"`
	LabelSize *string `json:"label_size"`
}

// Store manages a directory of saved designs
type Store struct {
	dir string
	mu  sync.RWMutex
	log *zap.Logger
}

// New creates the directory if needed and returns a store on it
func New(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log.Named("repository")}, nil
}

// Dir returns the storage directory
func (s *Store) Dir() string { return s.dir }

func jsonName(name string) (string, error) {
	filename := SecureFilename(name)
	if filename == "" {
		return "", ErrNoName
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".json") {
		filename += ".json"
	}
	return filename, nil
}

func (s *Store) path(name string) (string, error) {
	filename := SecureFilename(name)
	if filename == "" {
		return "", ErrNoName
	}
	return filepath.Join(s.dir, filename), nil
}

// List returns all stored designs sorted by file name
func (s *Store) List() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list repository: %w", err)
	}
	sort.Slice(dirEntries, func(i, j int) bool { return dirEntries[i].Name() < dirEntries[j].Name() })

	entries := []Entry{}
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(strings.ToLower(de.Name()), ".json") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entry := Entry{Name: de.Name(), Mtime: info.ModTime().Unix(), Size: info.Size()}

		data, err := s.readJSON(de.Name())
		if err != nil {
			s.log.Warn("skipping unreadable design", zap.String("name", de.Name()), zap.Error(err))
		} else {
			entry.LabelSize = labelSizeOf(data)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func labelSizeOf(data map[string]any) *string {
	for _, key := range []string{"label_size", "labelSize"} {
		if id, ok := data[key].(string); ok && id != "" {
			name := labelformat.HumanName(id)
			return &name
		}
	}
	return nil
}

// Save stores a design. The name comes from data["name"] unless name is given.
// Inline image_data is written next to the JSON and replaced by an "image" reference.
func (s *Store) Save(name string, data map[string]any) (string, error) {
	if name == "" {
		name, _ = data["name"].(string)
	}
	filename, err := jsonName(name)
	if err != nil {
		return "", err
	}

	if err := normalizeText(data); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if encoded, ok := data["image_data"].(string); ok && encoded != "" {
		image, err := s.saveImage(filename, data, encoded)
		if err != nil {
			s.log.Warn("failed to store inline image", zap.String("name", filename), zap.Error(err))
		} else {
			data["image"] = image
		}
	}
	for _, key := range transientKeys {
		delete(data, key)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("failed to encode design: %w", err)
	}
	if err := writeFile(filepath.Join(s.dir, filename), buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to save design: %w", err)
	}
	s.log.Info("design saved", zap.String("name", filename))
	return filename, nil
}

// normalizeText stores text lines as a JSON array. Editors send them as a
// JSON string under "text" or "fontSettingsPerLine".
func normalizeText(data map[string]any) error {
	raw, ok := data["fontSettingsPerLine"].(string)
	if !ok {
		raw, ok = data["text"].(string)
	}
	if !ok {
		return nil
	}
	var lines []any
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			return fmt.Errorf("failed to parse text lines: %w", err)
		}
	}
	if lines == nil {
		lines = []any{}
	}
	data["text"] = lines
	return nil
}

func (s *Store) saveImage(filename string, data map[string]any, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	mime, _ := data["image_mime"].(string)
	ext, ok := mimeExt[mime]
	if !ok {
		ext = ".png"
	}
	requested, _ := data["image_name"].(string)
	if requested == "" {
		requested = strings.TrimSuffix(filename, filepath.Ext(filename)) + "_image" + ext
	}
	image := SecureFilename(requested)
	if image == "" {
		return "", ErrNoName
	}
	if err := writeFile(filepath.Join(s.dir, image), raw); err != nil {
		return "", err
	}
	return image, nil
}

// Load returns a stored design in editor form: text as a JSON string and
// the referenced image inlined as base64 with its mime type.
func (s *Store) Load(name string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.readJSON(name)
	if err != nil {
		return nil, err
	}

	text, ok := data["text"]
	if !ok || text == nil {
		text = []any{}
	}
	encoded, err := json.Marshal(text)
	if err != nil {
		return nil, fmt.Errorf("failed to encode text lines: %w", err)
	}
	data["text"] = string(encoded)

	if ref, ok := data["image"].(string); ok && ref != "" {
		if err := s.inlineImage(data, ref); err != nil {
			s.log.Warn("failed to include design image", zap.String("image", ref), zap.Error(err))
		}
	}
	return data, nil
}

func (s *Store) inlineImage(data map[string]any, ref string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	mime, ok := extMime[strings.ToLower(filepath.Ext(p))]
	if !ok {
		mime = "application/octet-stream"
	}
	data["image_name"] = ref
	data["image_mime"] = mime
	data["image_data"] = base64.StdEncoding.EncodeToString(raw)
	return nil
}

// Request decodes a stored design into a label request
func (s *Store) Request(name string) (*labelformat.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := s.readFile(name)
	if err != nil {
		return nil, err
	}
	return labelformat.Parse(raw)
}

// Delete removes a design and every image stored under its "<base>_image" prefix
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete design: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) + "_image"
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("failed to clean up design images", zap.Error(err))
		return nil
	}
	for _, de := range dirEntries {
		if !strings.HasPrefix(de.Name(), base) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, de.Name())); err != nil {
			s.log.Warn("failed to remove design image", zap.String("image", de.Name()), zap.Error(err))
		}
	}
	s.log.Info("design deleted", zap.String("name", filepath.Base(p)))
	return nil
}

// OpenImage opens an image stored next to the designs
func (s *Store) OpenImage(name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

func (s *Store) readFile(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read design: %w", err)
	}
	return raw, nil
}

func (s *Store) readJSON(name string) (map[string]any, error) {
	raw, err := s.readFile(name)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse design: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// writeFile replaces path through a temporary file in the same directory
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
