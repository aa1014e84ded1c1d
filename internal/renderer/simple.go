// Package renderer handles image rendering for labels
package renderer

import (
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/thereceipt/label-designer/internal/template"
	"go.uber.org/zap"
)

// Label is anything that renders to a single bitmap
type Label interface {
	Generate(rotate bool) (image.Image, error)
	Type() Type
	Orientation() Orientation
	Content() Content
}

// Margins in pixels
type Margins struct {
	Left, Right, Top, Bottom int
}

// Border describes an optional rounded outline
type Border struct {
	Thickness int
	Roundness int
	DistanceX int
	DistanceY int
	Color     color.Color
}

// SimpleOptions describes a text, code or image label
type SimpleOptions struct {
	Width       int
	Height      int
	Content     Content
	Orientation Orientation
	Type        Type
	Margin      Margins
	ForeColor   color.Color
	Lines       []TextLine

	BarcodeType  string // "QR" or a 1D symbology
	QRSize       int
	QRCorrection string
	CodeText     string // overrides the text used for codes

	Image         image.Image
	ImageFit      bool
	ImageScaling  float64 // percent, used when ImageFit is off
	ImageRotation int     // degrees clockwise

	Border Border

	Counter   int
	Timestamp int64
}

// SimpleLabel combines an optional content image with optional text
type SimpleLabel struct {
	opts  SimpleOptions
	faces FaceSource
	log   *zap.Logger

	text []TextLine
}

// NewSimpleLabel validates opts and creates the label
func NewSimpleLabel(opts SimpleOptions, faces FaceSource, log *zap.Logger) (*SimpleLabel, error) {
	if opts.Width < 0 || opts.Height < 0 {
		return nil, invalidf("width and height must be non-negative")
	}
	if opts.Border.Thickness < 0 {
		return nil, invalidf("border thickness must be non-negative")
	}
	if opts.QRSize < 1 {
		return nil, invalidf("QR size must be positive")
	}
	if opts.ImageScaling <= 0 {
		return nil, invalidf("image scaling factor must be > 0")
	}
	if opts.ImageRotation < 0 || opts.ImageRotation > 360 {
		return nil, invalidf("image rotation must be between 0 and 360 inclusive")
	}
	for _, line := range opts.Lines {
		if err := line.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.ForeColor == nil {
		opts.ForeColor = colorBlack
	}
	if opts.Border.Color == nil {
		opts.Border.Color = colorBlack
	}
	if opts.BarcodeType == "" {
		opts.BarcodeType = "QR"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SimpleLabel{opts: opts, faces: faces, log: log}, nil
}

func (l *SimpleLabel) Type() Type               { return l.opts.Type }
func (l *SimpleLabel) Orientation() Orientation { return l.opts.Orientation }
func (l *SimpleLabel) Content() Content         { return l.opts.Content }

// Options returns the construction parameters
func (l *SimpleLabel) Options() SimpleOptions { return l.opts }

// Text returns the lines as expanded by the last Generate call
func (l *SimpleLabel) Text() []TextLine { return l.text }

func (l *SimpleLabel) expand() []TextLine {
	ctx := template.Context{Counter: l.opts.Counter, Timestamp: l.opts.Timestamp, Log: l.log}
	out := make([]TextLine, len(l.opts.Lines))
	for i, line := range l.opts.Lines {
		res := ctx.Expand(line.Text)
		line.Text = res.Text
		if res.Shift {
			line.Shift = true
		}
		out[i] = line
	}
	return out
}

func (l *SimpleLabel) wantText(img image.Image) bool {
	if img == nil {
		return true
	}
	if l.opts.Content == QRCodeOnly {
		return false
	}
	for _, line := range l.text {
		if strings.TrimSpace(line.Text) != "" {
			return true
		}
	}
	return false
}

func (l *SimpleLabel) contentImage() (image.Image, error) {
	switch l.opts.Content {
	case QRCodeOnly, TextQRCode:
		if l.opts.BarcodeType == "QR" {
			return l.qrImage()
		}
		return l.barcodeImage()
	case ImageBW, ImageGrayscale, ImageRedBlack, ImageColored:
		return l.opts.Image, nil
	case TextOnly, ShippingLabelContent:
		return nil, nil
	default:
		return nil, nil
	}
}

func (l *SimpleLabel) qrImage() (image.Image, error) {
	content := l.opts.CodeText
	if content == "" {
		parts := make([]string, len(l.text))
		for i, line := range l.text {
			parts[i] = line.Text
		}
		content = strings.Join(parts, "\n")
	}
	fill := colorBlack
	if sameColor(l.opts.ForeColor, colorRed) {
		fill = colorRed
	}
	return QRImage(content, QROptions{
		Level:     l.opts.QRCorrection,
		BoxSize:   l.opts.QRSize,
		Color:     fill,
		ByteOrder: true,
	})
}

func (l *SimpleLabel) barcodeImage() (image.Image, error) {
	value := l.opts.CodeText
	if value == "" && len(l.text) > 0 {
		value = l.text[0].Text
	}
	opts := DefaultBarcodeOptions()
	opts.WriteText = true
	opts.Faces = l.faces
	return BarcodeImage(l.opts.BarcodeType, value, opts)
}

func (l *SimpleLabel) transformImage(img image.Image, width, height int) image.Image {
	o := l.opts
	if o.ImageRotation != 0 && o.ImageRotation != 360 {
		img = imaging.Rotate(img, -float64(o.ImageRotation), colorWhite)
	}

	b := img.Bounds()
	w0, h0 := float64(b.Dx()), float64(b.Dy())
	var scale float64
	if o.ImageFit {
		maxW := float64(max(width-o.Margin.Left-o.Margin.Right, 1))
		maxH := float64(max(height-o.Margin.Top-o.Margin.Bottom, 1))
		switch o.Orientation {
		case Standard:
			if o.Type == Endless {
				scale = maxW / w0
			} else {
				scale = min(maxW/w0, maxH/h0)
			}
		case Rotated:
			if o.Type == Endless {
				scale = maxH / h0
			} else {
				scale = min(maxW/w0, maxH/h0)
			}
		}
	} else {
		scale = o.ImageScaling / 100
	}
	l.log.Debug("scaling content image", zap.Float64("scale", scale),
		zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))

	nw, nh := max(int(w0*scale), 1), max(int(h0*scale), 1)
	if nw == b.Dx() && nh == b.Dy() {
		return img
	}
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}

// Generate renders the label. rotate turns the result into its on-screen
// reading direction for previews; print rasters are generated unrotated.
func (l *SimpleLabel) Generate(rotate bool) (image.Image, error) {
	o := l.opts
	l.text = l.expand()

	img, err := l.contentImage()
	if err != nil {
		return nil, err
	}

	width, height := o.Width, o.Height
	m := o.Margin

	iw, ih := 0, 0
	if img != nil {
		img = l.transformImage(img, width, height)
		iw, ih = img.Bounds().Dx(), img.Bounds().Dy()
	}

	var layout []LineLayout
	var ts Box
	wantText := l.wantText(img)
	if wantText {
		layout, err = MeasureText(l.faces, l.text)
		if err != nil {
			return nil, err
		}
		ts = TextExtent(layout)
	}

	if o.Type == Endless {
		switch o.Orientation {
		case Standard:
			height = ih + ts.Y1 - ts.Y0 + m.Top + m.Bottom
		case Rotated:
			width = iw + ts.X1 + m.Left + m.Right
		}
	}

	var textX, textY float64
	var imageX, imageY int
	switch o.Orientation {
	case Standard:
		if o.Type.IsDieCut() {
			textY = float64(floorDiv(height-ih-ts.Y1, 2) + floorDiv(m.Top-m.Bottom, 2))
		} else {
			textY = float64(m.Top)
			if o.Content.needsImageTextDistance() {
				textY *= 1.25
			}
		}
		textY += float64(ih)
		textX = float64(max(floorDiv(width-ts.X1, 2), 0))
		imageX = floorDiv(width-iw, 2)
		imageY = m.Top
	case Rotated:
		textY = float64(floorDiv(height-ts.Y1, 2) + floorDiv(m.Top-m.Bottom, 2))
		if o.Type.IsDieCut() {
			textX = float64(max(floorDiv(width-iw-ts.X1, 2), 0))
		} else {
			textX = float64(m.Left)
			if o.Content.needsImageTextDistance() {
				textX *= 1.25
			}
		}
		textX += float64(iw)
		imageX = m.Left
		imageY = floorDiv(height-ih, 2)
	}

	width, height = max(width, 1), max(height, 1)
	l.log.Debug("label resolution", zap.Int("width", width), zap.Int("height", height))

	dc := gg.NewContext(width, height)
	dc.SetColor(colorWhite)
	dc.Clear()
	if img != nil {
		dc.DrawImage(img, imageX, imageY)
	}
	if wantText {
		DrawText(dc, l.faces, layout, int(textX), int(textY))
	}

	var out image.Image = dc.Image()
	if rotate && previewNeedsRotation(o.Orientation, o.Type) {
		out = imaging.Rotate270(out)
	}

	if o.Border.Thickness > 0 {
		bdc := gg.NewContextForImage(out)
		if err := DrawBorder(bdc, o.Border.Thickness, o.Border.Roundness,
			o.Border.DistanceX, o.Border.DistanceY, o.Border.Color); err != nil {
			return nil, err
		}
		out = bdc.Image()
	}
	return out, nil
}

// previewNeedsRotation is true whenever the raster layout differs from the reading direction
func previewNeedsRotation(o Orientation, t Type) bool {
	switch o {
	case Rotated:
		return !t.IsDieCut()
	case Standard:
		return t.IsDieCut()
	default:
		return false
	}
}

func sameColor(a, b color.Color) bool {
	if a == nil || b == nil {
		return false
	}
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}
