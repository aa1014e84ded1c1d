package renderer

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/codabar"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/code93"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/twooffive"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/skip2/go-qrcode"
	"github.com/thereceipt/label-designer/internal/fonts"
)

// DefaultSymbology is used when a barcode type is unknown
const DefaultSymbology = "code128"

type encoder func(string) (barcode.Barcode, error)

var symbologies = map[string]encoder{
	"code128": func(s string) (barcode.Barcode, error) { return code128.Encode(s) },
	"code39":  func(s string) (barcode.Barcode, error) { return code39.Encode(s, false, true) },
	"code93":  func(s string) (barcode.Barcode, error) { return code93.Encode(s, false, true) },
	"ean13":   ean13,
	"ean":     ean13,
	"jan":     ean13,
	"ean8": func(s string) (barcode.Barcode, error) {
		if n := len(s); n != 7 && n != 8 {
			return nil, fmt.Errorf("ean8 needs 7 or 8 digits, got %d", n)
		}
		return ean.Encode(s)
	},
	"itf":     func(s string) (barcode.Barcode, error) { return twooffive.Encode(s, true) },
	"codabar": func(s string) (barcode.Barcode, error) { return codabar.Encode(s) },
}

func ean13(s string) (barcode.Barcode, error) {
	if n := len(s); n != 12 && n != 13 {
		return nil, fmt.Errorf("ean13 needs 12 or 13 digits, got %d", n)
	}
	return ean.Encode(s)
}

// Symbologies lists the selectable code types, CODE128 and QR first
func Symbologies() []string {
	rest := make([]string, 0, len(symbologies))
	for name := range symbologies {
		if name == "code128" {
			continue
		}
		rest = append(rest, strings.ToUpper(name))
	}
	sort.Strings(rest)
	return append([]string{"CODE128", "QR"}, rest...)
}

// ResolveSymbology lowercases name and falls back to code128 when unknown
func ResolveSymbology(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := symbologies[name]; ok {
		return name
	}
	return DefaultSymbology
}

func qrLevel(s string) qrcode.RecoveryLevel {
	switch strings.ToUpper(s) {
	case "M":
		return qrcode.Medium
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Low
	}
}

// QROptions controls QR symbol rendering
type QROptions struct {
	Level     string // L, M, Q or H
	BoxSize   int    // pixels per module
	Border    int    // quiet zone in modules
	Color     color.Color
	ByteOrder bool // prefix a UTF-8 byte order mark
}

// QRImage renders content as a QR symbol
func QRImage(content string, opts QROptions) (image.Image, error) {
	if opts.BoxSize < 1 {
		opts.BoxSize = 1
	}
	if opts.ByteOrder {
		content = "\ufeff" + content
	}
	q, err := qrcode.New(content, qrLevel(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	q.DisableBorder = true
	q.BackgroundColor = color.White
	q.ForegroundColor = colorBlack
	if opts.Color != nil {
		q.ForegroundColor = opts.Color
	}

	img := image.Image(q.Image(-opts.BoxSize))
	if opts.Border > 0 {
		img = pad(img, opts.Border*opts.BoxSize)
	}
	return img, nil
}

// BarcodeOptions controls 1D barcode rendering
type BarcodeOptions struct {
	ModuleWidth int // pixels per bar module
	Height      int // bar height in pixels
	QuietZone   int // white space left and right, in pixels
	WriteText   bool
	Faces       FaceSource // used when WriteText is set
	TextSize    int
}

// DefaultBarcodeOptions approximates a 0.2 mm module and 15 mm bars at 300 dpi
func DefaultBarcodeOptions() BarcodeOptions {
	return BarcodeOptions{ModuleWidth: 2, Height: 177, QuietZone: 77, TextSize: 40}
}

// BarcodeImage encodes value with the named symbology, falling back to code128
func BarcodeImage(symbology, value string, opts BarcodeOptions) (image.Image, error) {
	if value == "" {
		return nil, invalidf("barcode value is empty")
	}
	enc := symbologies[ResolveSymbology(symbology)]
	bc, err := enc(value)
	if err != nil {
		return nil, invalidf("failed to encode %s barcode: %v", symbology, err)
	}

	if opts.ModuleWidth < 1 {
		opts.ModuleWidth = 1
	}
	if opts.Height < 1 {
		opts.Height = 1
	}
	modules := bc.Bounds().Dx()
	barsW := modules * opts.ModuleWidth
	width := barsW + 2*opts.QuietZone

	textH := 0
	var textBlock Box
	if opts.WriteText && opts.Faces != nil {
		face := opts.Faces.Face(fonts.DefaultBuiltin, max(opts.TextSize, 1))
		textBlock = textBox(face, value, 0, 0, anchorLeft)
		textH = textBlock.Y1 + opts.TextSize/4
	}

	dc := gg.NewContext(width, opts.Height+textH)
	dc.SetColor(colorWhite)
	dc.Clear()

	dc.SetColor(colorBlack)
	minY := bc.Bounds().Min.Y
	for m := 0; m < modules; m++ {
		r, _, _, _ := bc.At(bc.Bounds().Min.X+m, minY).RGBA()
		if r == 0 {
			dc.DrawRectangle(float64(opts.QuietZone+m*opts.ModuleWidth), 0, float64(opts.ModuleWidth), float64(opts.Height))
		}
	}
	dc.Fill()

	if textH > 0 {
		face := opts.Faces.Face(fonts.DefaultBuiltin, max(opts.TextSize, 1))
		drawAnchored(dc, face, value, float64(width)/2, float64(opts.Height+opts.TextSize/8), anchorMiddle, colorBlack)
	}
	return dc.Image(), nil
}

// pad surrounds img with a white frame of n pixels
func pad(img image.Image, n int) image.Image {
	b := img.Bounds()
	out := imaging.New(b.Dx()+2*n, b.Dy()+2*n, colorWhite)
	return imaging.Paste(out, img, image.Pt(n, n))
}
