package renderer

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// Dash describes a dashed stroke
type Dash struct {
	Color  color.Color
	Width  float64
	Length float64
	Gap    float64
}

var (
	landscapeDivider = Dash{Color: color.RGBA{180, 180, 180, 255}, Width: 2, Length: 10, Gap: 6}
	portraitDivider  = Dash{Color: color.RGBA{170, 170, 170, 255}, Width: 2, Length: 10, Gap: 6}
)

// drawDashedLine strokes a dashed segment from (x0, y0) to (x1, y1)
func drawDashedLine(dc *gg.Context, x0, y0, x1, y1 float64, d Dash) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := dx/length, dy/length

	dc.Push()
	defer dc.Pop()
	dc.SetColor(d.Color)
	dc.SetLineWidth(d.Width)
	dc.SetLineCapButt()

	pos := 0.0
	drawing := true
	for pos < length {
		seg := d.Gap
		if drawing {
			seg = d.Length
		}
		end := math.Min(pos+seg, length)
		if drawing {
			dc.DrawLine(x0+nx*pos, y0+ny*pos, x0+nx*end, y0+ny*end)
			dc.Stroke()
		}
		pos = end
		drawing = !drawing
	}
}

// strokeRoundedRect outlines the inclusive pixel rectangle (x0,y0)-(x1,y1)
// with the stroke kept inside the rectangle. A nil fill leaves the interior untouched.
func strokeRoundedRect(dc *gg.Context, x0, y0, x1, y1, radius float64, width int, outline, fill color.Color) {
	w := float64(width)
	rw, rh := x1-x0+1, y1-y0+1

	dc.Push()
	defer dc.Pop()

	if fill != nil {
		roundedRect(dc, x0, y0, rw, rh, radius)
		dc.SetColor(fill)
		dc.Fill()
	}

	inset := w / 2
	roundedRect(dc, x0+inset, y0+inset, math.Max(rw-w, 0), math.Max(rh-w, 0), math.Max(radius-inset, 0))
	dc.SetColor(outline)
	dc.SetLineWidth(w)
	dc.Stroke()
}

func roundedRect(dc *gg.Context, x, y, w, h, r float64) {
	if r <= 0 {
		dc.DrawRectangle(x, y, w, h)
		return
	}
	dc.DrawRoundedRectangle(x, y, w, h, math.Min(r, math.Min(w, h)/2))
}

// DrawBorder draws a rounded border inset by (dx, dy) from every edge of the canvas
func DrawBorder(dc *gg.Context, thickness, roundness, dx, dy int, c color.Color) error {
	if thickness <= 0 {
		return nil
	}
	x0, y0 := dx, dy
	x1, y1 := dc.Width()-dx-1, dc.Height()-dy-1
	if x1 < x0 || y1 < y0 {
		return invalidf("invalid border rectangle")
	}
	strokeRoundedRect(dc, float64(x0), float64(y0), float64(x1), float64(y1),
		float64(roundness), thickness, c, nil)
	return nil
}
