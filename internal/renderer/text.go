package renderer

import (
	"image/color"
	"math"
	"math/rand/v2"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/thereceipt/label-designer/internal/template"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// referenceGlyphs fixes the height of every line except the last
const referenceGlyphs = template.RandomAlphabet

// Box is an integer bounding box in pixels
type Box struct {
	X0, Y0, X1, Y1 int
}

func (b Box) Width() int  { return b.X1 - b.X0 }
func (b Box) Height() int { return b.Y1 - b.Y0 }

// LineLayout is the measured position of one line, relative to the text block origin
type LineLayout struct {
	Line TextLine
	Box  Box
	Y    int // cursor position the line was measured at
}

type anchor int

const (
	anchorLeft anchor = iota
	anchorMiddle
	anchorRight
)

func anchorFor(align string) (anchor, error) {
	switch align {
	case "left":
		return anchorLeft, nil
	case "", "center":
		return anchorMiddle, nil
	case "right":
		return anchorRight, nil
	default:
		return 0, invalidf("unsupported alignment: %s", align)
	}
}

func fx(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// textBox returns the ink box of s drawn with its top edge (ascender line) at y.
// The anchor selects whether x is the left, middle or right end of the advance.
func textBox(face font.Face, s string, x, y float64, a anchor) Box {
	if s == "" {
		return Box{int(x), int(y), int(x), int(y)}
	}
	bounds, advance := font.BoundString(face, s)
	switch a {
	case anchorMiddle:
		x -= fx(advance) / 2
	case anchorRight:
		x -= fx(advance)
	}
	base := y + fx(face.Metrics().Ascent)
	return Box{
		X0: int(math.Floor(x + fx(bounds.Min.X))),
		Y0: int(math.Floor(base + fx(bounds.Min.Y))),
		X1: int(math.Ceil(x + fx(bounds.Max.X))),
		Y1: int(math.Ceil(base + fx(bounds.Max.Y))),
	}
}

// drawAnchored draws s with its top edge at y
func drawAnchored(dc *gg.Context, face font.Face, s string, x, y float64, a anchor, c color.Color) {
	if s == "" {
		return
	}
	switch a {
	case anchorMiddle:
		x -= fx(font.MeasureString(face, s)) / 2
	case anchorRight:
		x -= fx(font.MeasureString(face, s))
	}
	dc.SetFontFace(face)
	dc.SetColor(c)
	dc.DrawString(s, x, y+fx(face.Metrics().Ascent))
}

// MeasureText is the dry-run pass: it positions every line without drawing
func MeasureText(faces FaceSource, lines []TextLine) ([]LineLayout, error) {
	out := make([]LineLayout, 0, len(lines))
	y := 0
	for i, line := range lines {
		if _, err := anchorFor(line.Align); err != nil {
			return nil, err
		}
		face := faces.Face(line.FontPath, line.Size)
		box := textBox(face, line.Text, 0, float64(y), anchorLeft)

		last := i == len(lines)-1
		if !last || line.Inverted {
			ref := textBox(face, referenceGlyphs, 0, float64(y), anchorLeft)
			box.Y0, box.Y1 = ref.Y0, ref.Y1
		}
		out = append(out, LineLayout{Line: line, Box: box, Y: y})

		y += box.Height()
		if !last {
			y += line.spacing()
		}
	}
	return out, nil
}

// TextExtent returns the box enclosing a measured block
func TextExtent(layout []LineLayout) Box {
	if len(layout) == 0 {
		return Box{}
	}
	_, maxX := blockX(layout)
	return Box{
		X0: layout[0].Box.X0,
		Y0: layout[0].Box.Y0,
		X1: maxX,
		Y1: layout[len(layout)-1].Box.Y1,
	}
}

func blockX(layout []LineLayout) (int, int) {
	minX, maxX := layout[0].Box.X0, layout[0].Box.X1
	for _, l := range layout[1:] {
		minX = min(minX, l.Box.X0)
		maxX = max(maxX, l.Box.X1)
	}
	return minX, maxX
}

// floorDiv divides rounding towards negative infinity
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// DrawText is the draw pass. Horizontal anchors are taken from the whole block
// so lines of different alignment stay visually coherent.
func DrawText(dc *gg.Context, faces FaceSource, layout []LineLayout, offX, offY int) {
	if len(layout) == 0 {
		return
	}
	minX, maxX := blockX(layout)

	for _, l := range layout {
		a, err := anchorFor(l.Line.Align)
		if err != nil {
			continue
		}
		line := l.Line
		face := faces.Face(line.FontPath, line.Size)
		col := line.color()
		y := float64(l.Y + offY)

		if line.Inverted {
			var x0, x1 int
			width := l.Box.Width()
			switch a {
			case anchorLeft:
				x0 = offX + minX
				x1 = offX + l.Box.X1
			case anchorMiddle:
				center := floorDiv(minX+maxX, 2)
				x0 = offX + center - floorDiv(width, 2)
				x1 = offX + center + floorDiv(width, 2)
			case anchorRight:
				x1 = offX + maxX
				x0 = x1 - width
			}
			shift := 0.1 * float64(line.Size)
			y0 := float64(l.Box.Y0+offY) - shift
			y1 := float64(l.Box.Y1+offY) - shift
			dc.SetColor(col)
			dc.DrawRectangle(float64(x0), y0, float64(x1-x0+1), y1-y0+1)
			dc.Fill()
			col = colorWhite
		}

		var x float64
		switch a {
		case anchorLeft:
			x = float64(minX + offX)
		case anchorMiddle:
			x = float64(floorDiv(maxX-minX, 2) + minX + offX)
		case anchorRight:
			x = float64(maxX + offX)
		}

		if line.Checkbox {
			dim := 8 * line.Size / 10
			cb := textBox(face, line.Text, x-1.2*float64(dim), y, a)
			strokeRoundedRect(dc, float64(cb.X0), y, float64(cb.X0+dim), y+float64(dim),
				5, max(1, dim/10), col, colorWhite)
		}

		drawAnchored(dc, face, line.Text, x, y, a, col)

		if line.Shift {
			n := utf8.RuneCountInString(line.Text)
			amount := func() float64 {
				return 0.03 * float64(5+rand.IntN(6)) * float64(line.Size)
			}
			for _, dx := range []float64{-amount(), amount()} {
				for _, dy := range []float64{-amount(), amount()} {
					drawAnchored(dc, face, template.RandomString(n), x+dx, y+dy, a, col)
				}
			}
		}
	}
}
