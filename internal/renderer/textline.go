package renderer

import (
	"image/color"
	"unicode/utf8"

	"golang.org/x/image/font"
)

// MaxLineLength is the longest raw text a single line may carry
const MaxLineLength = 10000

var (
	colorBlack = color.RGBA{0, 0, 0, 255}
	colorRed   = color.RGBA{255, 0, 0, 255}
	colorWhite = color.RGBA{255, 255, 255, 255}
)

// ColorFor maps "red" to red ink and everything else to black
func ColorFor(name string) color.RGBA {
	if name == "red" {
		return colorRed
	}
	return colorBlack
}

// FaceSource hands out font faces by file path and point size.
// *fonts.Cache is the production implementation.
type FaceSource interface {
	Face(path string, size int) font.Face
}

// TextLine is one line of label text
type TextLine struct {
	Text        string
	FontPath    string
	Size        int
	Align       string // left, center or right; empty means center
	Color       string // black or red
	LineSpacing int    // percent; 0 means not set
	Inverted    bool
	Checkbox    bool
	Shift       bool
}

// Validate checks the invariants of a single line
func (l TextLine) Validate() error {
	if l.Size < 1 {
		return invalidf("font size must be at least 1")
	}
	if utf8.RuneCountInString(l.Text) > MaxLineLength {
		return invalidf("text is too long")
	}
	if _, err := anchorFor(l.Align); err != nil {
		return err
	}
	return nil
}

func (l TextLine) spacing() int {
	if l.LineSpacing == 0 {
		return 0
	}
	return int(float64(l.Size) * (float64(l.LineSpacing-100) / 100))
}

func (l TextLine) color() color.RGBA {
	return ColorFor(l.Color)
}
