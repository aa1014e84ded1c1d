package printer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// ESC/POS commands
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
)

// Protocols understood by NewEncoder
const (
	ProtocolESCPOS = "escpos"
	ProtocolPNG    = "png"
)

// escposBand is the number of rows sent per GS v 0 command
const escposBand = 256

// Encoder turns prepared rasters into the bytes sent to a device
type Encoder interface {
	Name() string
	Encode(rasters []Raster) ([]byte, error)
}

// NewEncoder returns the encoder for a protocol name
func NewEncoder(protocol string) (Encoder, error) {
	switch strings.ToLower(protocol) {
	case "", ProtocolESCPOS:
		return ESCPOSEncoder{}, nil
	case ProtocolPNG:
		return PNGEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported printer protocol: %s", protocol)
	}
}

// ESCPOSEncoder emits GS v 0 raster images with a cut after each label that asks for one
type ESCPOSEncoder struct{}

func (ESCPOSEncoder) Name() string { return ProtocolESCPOS }

// Encode writes every raster in order
func (e ESCPOSEncoder) Encode(rasters []Raster) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write([]byte{ESC, '@'})

	for _, r := range rasters {
		if r.Black == nil {
			return nil, fmt.Errorf("raster has no black plane")
		}
		if r.Red != nil {
			buf.Write([]byte{ESC, 'r', 1})
			writePlane(buf, r.Red)
			buf.Write([]byte{ESC, 'r', 0})
		}
		writePlane(buf, r.Black)

		if r.Cut {
			buf.Write([]byte{ESC, 'd', 3})
			buf.Write([]byte{GS, 'V', 0})
		} else {
			buf.WriteByte(0x0A)
		}
	}
	return buf.Bytes(), nil
}

func writePlane(buf *bytes.Buffer, p *Plane) {
	for y0 := 0; y0 < p.Height; y0 += escposBand {
		rows := min(escposBand, p.Height-y0)
		buf.Write([]byte{
			GS, 'v', '0', 0,
			byte(p.Stride & 0xFF), byte((p.Stride >> 8) & 0xFF),
			byte(rows & 0xFF), byte((rows >> 8) & 0xFF),
		})
		buf.Write(p.Bits[y0*p.Stride : (y0+rows)*p.Stride])
	}
}

// PNGEncoder stacks the rasters into one PNG, used for spool directories
type PNGEncoder struct{}

func (PNGEncoder) Name() string { return ProtocolPNG }

func (PNGEncoder) Encode(rasters []Raster) ([]byte, error) {
	if len(rasters) == 0 {
		return nil, fmt.Errorf("nothing to encode")
	}
	w, h := 0, 0
	for _, r := range rasters {
		w = max(w, r.Black.Width)
		h += r.Black.Height
	}
	sheet := imaging.New(w, h, color.White)
	y := 0
	for _, r := range rasters {
		sheet = imaging.Paste(sheet, r.Image(), image.Pt(0, y))
		y += r.Black.Height
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, sheet, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
