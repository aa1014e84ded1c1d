package repository

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "labels"), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestSecureFilename(t *testing.T) {
	tests := map[string]string{
		"My Label":        "My_Label",
		"../etc/passwd":   "etc_passwd",
		`..\\windows`:     "windows",
		"Größe.json":      "Groe.json",
		"café  menu":      "cafe_menu",
		"<script>":        "script",
		"...":             "",
		"label_2024.json": "label_2024.json",
	}
	for in, want := range tests {
		assert.Equal(t, want, SecureFilename(in), in)
	}
}

func TestStore_SaveLoad(t *testing.T) {
	s := newStore(t)
	png := []byte("\x89PNG fake")

	name, err := s.Save("", map[string]any{
		"name":                "Shelf tag",
		"label_size":          "62x29",
		"print_type":          "image",
		"text":                `[{"text":"A1","size":40}]`,
		"font_size":           40,
		"fontSettingsPerLine": `[{"text":"A1","size":40}]`,
		"image_data":          base64.StdEncoding.EncodeToString(png),
		"image_mime":          "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Shelf_tag.json", name)

	stored, err := os.ReadFile(filepath.Join(s.Dir(), "Shelf_tag_image.png"))
	require.NoError(t, err)
	assert.Equal(t, png, stored)

	raw, err := os.ReadFile(filepath.Join(s.Dir(), name))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "image_data")
	assert.NotContains(t, string(raw), "font_size")
	assert.Contains(t, string(raw), `"image": "Shelf_tag_image.png"`)

	data, err := s.Load(name)
	require.NoError(t, err)
	assert.Equal(t, `[{"size":40,"text":"A1"}]`, data["text"])
	assert.Equal(t, "Shelf_tag_image.png", data["image_name"])
	assert.Equal(t, "image/png", data["image_mime"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(png), data["image_data"])
}

func TestStore_SaveRequiresName(t *testing.T) {
	s := newStore(t)
	_, err := s.Save("", map[string]any{"label_size": "62"})
	assert.ErrorIs(t, err, ErrNoName)

	_, err = s.Save("../..", map[string]any{})
	assert.ErrorIs(t, err, ErrNoName)
}

func TestStore_List(t *testing.T) {
	s := newStore(t)
	_, err := s.Save("b", map[string]any{"label_size": "62"})
	require.NoError(t, err)
	_, err = s.Save("a", map[string]any{"labelSize": "29x90"})
	require.NoError(t, err)
	_, err = s.Save("c", map[string]any{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "a.json", entries[0].Name)
	require.NotNil(t, entries[0].LabelSize)
	assert.Equal(t, "29mm x 90mm die-cut", *entries[0].LabelSize)
	assert.Equal(t, "62mm endless", *entries[1].LabelSize)
	assert.Nil(t, entries[2].LabelSize)
	assert.Positive(t, entries[1].Size)
}

func TestStore_Request(t *testing.T) {
	s := newStore(t)
	_, err := s.Save("badge", map[string]any{
		"label_size": "62x29",
		"text":       `[{"text":"Hi {{counter}}","size":30,"font":"Go,Bold"}]`,
		"image":      "badge_image.png",
	})
	require.NoError(t, err)

	req, err := s.Request("badge.json")
	require.NoError(t, err)
	assert.Equal(t, "62x29", req.LabelSize)
	require.Len(t, req.Text, 1)
	assert.Equal(t, "Go,Bold", req.Text[0].Font)
	assert.Equal(t, "badge_image.png", req.Image)
	assert.Equal(t, 1, req.PrintCount)

	_, err = s.Request("missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	s := newStore(t)
	_, err := s.Save("logo", map[string]any{
		"image_data": base64.StdEncoding.EncodeToString([]byte("jpeg")),
		"image_mime": "image/jpeg",
	})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.Dir(), "logo_image.jpg"))
	require.NoError(t, err)

	rc, err := s.OpenImage("logo_image.jpg")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, []byte("jpeg"), b)

	require.NoError(t, s.Delete("logo.json"))
	_, err = os.Stat(filepath.Join(s.Dir(), "logo_image.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.Delete("logo.json"), ErrNotFound)
	_, err = s.OpenImage("logo_image.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LoadMissingImageIsIgnored(t *testing.T) {
	s := newStore(t)
	_, err := s.Save("plain", map[string]any{"image": "gone.png"})
	require.NoError(t, err)

	data, err := s.Load("plain.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", data["text"])
	assert.NotContains(t, data, "image_data")
}
