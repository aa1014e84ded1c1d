package printer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/thereceipt/label-designer/pkg/labelformat"
)

// ErrBadDimensions is returned when a die-cut image does not match its media
var ErrBadDimensions = errors.New("bad image dimensions")

// Rotation is the rotation hint handed to raster preparation
type Rotation int

const (
	RotateNone Rotation = iota
	Rotate90
	RotateAuto
)

// DefaultThreshold is the black cut-off in percent used when dithering is off
const DefaultThreshold = 70

// Plane is a packed 1-bit bitmap, MSB first, a set bit is a printed dot
type Plane struct {
	Width  int
	Height int
	Stride int
	Bits   []byte
}

func newPlane(w, h int) *Plane {
	stride := (w + 7) / 8
	return &Plane{Width: w, Height: h, Stride: stride, Bits: make([]byte, stride*h)}
}

func (p *Plane) set(x, y int) {
	p.Bits[y*p.Stride+x/8] |= 0x80 >> uint(x%8)
}

// At reports whether the dot at (x, y) is printed
func (p *Plane) At(x, y int) bool {
	return p.Bits[y*p.Stride+x/8]&(0x80>>uint(x%8)) != 0
}

// Row returns the packed bytes of row y
func (p *Plane) Row(y int) []byte {
	return p.Bits[y*p.Stride : (y+1)*p.Stride]
}

// Raster is one prepared label
type Raster struct {
	Black   *Plane
	Red     *Plane // nil unless printing on two-color tape
	Cut     bool
	HighRes bool
}

// RasterOptions control PrepareRaster
type RasterOptions struct {
	Size      labelformat.LabelSize
	Rotate    Rotation
	Dither    bool
	Threshold int
	Cut       bool
	HighRes   bool
}

// PrepareRaster rotates, fits and binarizes a rendered label for the printer
func PrepareRaster(img image.Image, opts RasterOptions) (Raster, error) {
	expected := opts.Size.DotsPrintable
	if opts.HighRes {
		expected = [2]int{expected[0] * 2, expected[1] * 2}
	}

	switch opts.Rotate {
	case Rotate90:
		img = imaging.Rotate90(img)
	case RotateAuto:
		b := img.Bounds()
		if opts.Size.FormFactor != labelformat.Endless && b.Dx() == expected[1] && b.Dy() == expected[0] {
			img = imaging.Rotate90(img)
		}
	}

	b := img.Bounds()
	if opts.Size.FormFactor == labelformat.Endless {
		if b.Dx() != expected[0] {
			img = imaging.Resize(img, expected[0], 0, imaging.Lanczos)
		}
	} else if b.Dx() != expected[0] || b.Dy() != expected[1] {
		return Raster{}, fmt.Errorf("%w: %dx%d, expecting %dx%d", ErrBadDimensions, b.Dx(), b.Dy(), expected[0], expected[1])
	}

	if opts.HighRes {
		b = img.Bounds()
		img = imaging.Resize(img, b.Dx()/2, b.Dy(), imaging.Lanczos)
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	r := Raster{Cut: opts.Cut, HighRes: opts.HighRes}
	if opts.Size.Red {
		r.Black, r.Red = splitRed(img, threshold)
		return r, nil
	}
	if opts.Dither {
		r.Black = ditherPlane(img)
	} else {
		r.Black = thresholdPlane(img, threshold)
	}
	return r, nil
}

var bilevel = color.Palette{color.Black, color.White}

// ditherPlane binarizes with Floyd-Steinberg error diffusion
func ditherPlane(img image.Image) *Plane {
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)

	pal := image.NewPaletted(b, bilevel)
	draw.FloydSteinberg.Draw(pal, b, gray, b.Min)

	p := newPlane(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if pal.ColorIndexAt(b.Min.X+x, b.Min.Y+y) == 0 {
				p.set(x, y)
			}
		}
	}
	return p
}

func thresholdPlane(img image.Image, threshold int) *Plane {
	b := img.Bounds()
	cut := uint8(threshold * 255 / 100)
	p := newPlane(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < cut {
				p.set(x, y)
			}
		}
	}
	return p
}

// splitRed separates strongly red pixels from dark ones
func splitRed(img image.Image, threshold int) (*Plane, *Plane) {
	b := img.Bounds()
	cut := uint8(threshold * 255 / 100)
	black := newPlane(b.Dx(), b.Dy())
	red := newPlane(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			r, g, bl := int(c.R), int(c.G), int(c.B)
			switch {
			case r > 100 && r > 2*g && r > 2*bl:
				red.set(x, y)
			case color.GrayModel.Convert(c).(color.Gray).Y < cut:
				black.set(x, y)
			}
		}
	}
	return black, red
}

// Image renders the planes back into an RGBA image
func (r Raster) Image() *image.NRGBA {
	img := imaging.New(r.Black.Width, r.Black.Height, color.White)
	for y := 0; y < r.Black.Height; y++ {
		for x := 0; x < r.Black.Width; x++ {
			switch {
			case r.Red != nil && r.Red.At(x, y):
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			case r.Black.At(x, y):
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}
