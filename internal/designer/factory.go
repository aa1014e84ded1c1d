// Package designer turns label requests into renderable labels and print queues
package designer

import (
	"io"
	"strings"

	"github.com/thereceipt/label-designer/internal/fonts"
	"github.com/thereceipt/label-designer/internal/renderer"
	"github.com/thereceipt/label-designer/pkg/labelformat"
	"go.uber.org/zap"
)

// Upload is an image file sent along with a request
type Upload struct {
	Filename string
	Data     []byte
}

// ImageStore opens images referenced by saved labels
type ImageStore interface {
	OpenImage(name string) (io.ReadCloser, error)
}

// Factory builds labels from requests
type Factory struct {
	fonts  *fonts.Resolver
	faces  renderer.FaceSource
	images ImageStore
	log    *zap.Logger
}

// NewFactory creates a factory, images may be nil
func NewFactory(resolver *fonts.Resolver, faces renderer.FaceSource, images ImageStore, log *zap.Logger) *Factory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Factory{fonts: resolver, faces: faces, images: images, log: log.Named("designer")}
}

// FontPath resolves a "Family,Style" spec, falling back to the default font
func (f *Factory) FontPath(spec string) string {
	family, style, _ := strings.Cut(spec, ",")
	return f.fonts.PathOrDefault(strings.TrimSpace(family), strings.TrimSpace(style))
}

func contentFor(req *labelformat.Request) renderer.Content {
	switch req.PrintType {
	case labelformat.PrintText:
		return renderer.TextOnly
	case labelformat.PrintQRCode:
		return renderer.QRCodeOnly
	case labelformat.PrintQRCodeText:
		return renderer.TextQRCode
	default:
		return renderer.ContentForImageMode(req.ImageMode)
	}
}

func typeFor(ff labelformat.FormFactor) renderer.Type {
	switch ff {
	case labelformat.DieCut:
		return renderer.DieCut
	case labelformat.RoundDieCut:
		return renderer.RoundDieCut
	default:
		return renderer.Endless
	}
}

// BuildLabel creates the label for one copy of a request. counter feeds {{counter}}.
func (f *Factory) BuildLabel(req *labelformat.Request, upload *Upload, counter int) (renderer.Label, error) {
	if err := labelformat.Validate(req); err != nil {
		return nil, err
	}
	size, err := labelformat.LookupSize(req.LabelSize)
	if err != nil {
		return nil, err
	}

	content := contentFor(req)
	barcodeType := req.BarcodeType
	if req.PrintType == labelformat.PrintQRCode {
		barcodeType = "QR"
	}

	orientation := renderer.ParseOrientation(req.Orientation)
	labelType := typeFor(size.FormFactor)

	width, height, err := labelformat.Dimensions(req.LabelSize, req.HighRes)
	if err != nil {
		return nil, err
	}
	if height > width {
		width, height = height, width
	}
	if orientation == renderer.Rotated {
		width, height = height, width
	}

	lines := make([]renderer.TextLine, len(req.Text))
	for i, spec := range req.Text {
		lines[i] = renderer.TextLine{
			Text:        spec.Text,
			FontPath:    f.FontPath(spec.Font),
			Size:        spec.Size,
			Align:       spec.Align,
			Color:       spec.Color,
			LineSpacing: spec.LineSpacing,
			Inverted:    spec.Inverted,
			Checkbox:    spec.Checkbox,
			Shift:       spec.Shift,
		}
	}

	margins := renderer.Margins{
		Left:   req.MarginLeft,
		Right:  req.MarginRight,
		Top:    req.MarginTop,
		Bottom: req.MarginBottom,
	}
	border := renderer.Border{
		Thickness: req.BorderThickness,
		Roundness: req.BorderRoundness,
		DistanceX: req.BorderDistanceX,
		DistanceY: req.BorderDistanceY,
		Color:     renderer.ColorFor(req.BorderColor),
	}

	if req.PrintType == labelformat.PrintShipping {
		if labelType == renderer.Endless && width > height {
			orientation = renderer.Rotated
			width, height = height, width
		}
		return f.shipping(req, lines, renderer.ShippingOptions{
			Width:       width,
			Height:      height,
			Type:        labelType,
			Orientation: orientation,
			BarcodeType: req.BarcodeType,
			Margin:      margins,
			Border:      border,
		})
	}

	img, err := f.image(req, upload)
	if err != nil {
		return nil, err
	}

	label, err := renderer.NewSimpleLabel(renderer.SimpleOptions{
		Width:         width,
		Height:        height,
		Content:       content,
		Orientation:   orientation,
		Type:          labelType,
		Margin:        margins,
		ForeColor:     renderer.ColorFor(req.PrintColor),
		Lines:         lines,
		BarcodeType:   barcodeType,
		QRSize:        req.QRCodeSize,
		QRCorrection:  req.QRCodeCorrection,
		CodeText:      req.CodeText,
		Image:         img,
		ImageFit:      req.ImageFit,
		ImageScaling:  req.ImageScalingFactor,
		ImageRotation: req.ImageRotation,
		Border:        border,
		Counter:       counter,
		Timestamp:     req.Timestamp,
	}, f.faces, f.log)
	if err != nil {
		return nil, err
	}
	return label, nil
}

// shipping takes fonts and sizes from text line 0 (sender) and 1 (recipient)
func (f *Factory) shipping(req *labelformat.Request, lines []renderer.TextLine, opts renderer.ShippingOptions) (renderer.Label, error) {
	defaultPath := f.FontPath("")
	senderPath, senderSize, senderSpacing := defaultPath, 0, 100
	if len(lines) > 0 {
		senderPath, senderSize = lines[0].FontPath, lines[0].Size
		if lines[0].LineSpacing != 0 {
			senderSpacing = lines[0].LineSpacing
		}
	}
	recipPath, recipSize, recipSpacing := senderPath, senderSize, senderSpacing
	if len(lines) > 1 {
		recipPath, recipSize = lines[1].FontPath, lines[1].Size
		if lines[1].LineSpacing != 0 {
			recipSpacing = lines[1].LineSpacing
		}
	}

	s := req.Shipping
	opts.Sender = renderer.Address{
		Name:    strings.TrimSpace(s.SenderName),
		Street:  strings.TrimSpace(s.SenderStreet),
		ZipCity: strings.TrimSpace(s.SenderZipCity),
		Country: strings.TrimSpace(s.SenderCountry),
	}
	opts.Recipient = renderer.Address{
		Company: strings.TrimSpace(s.RecipCompany),
		Name:    strings.TrimSpace(s.RecipName),
		Street:  strings.TrimSpace(s.RecipStreet),
		ZipCity: strings.TrimSpace(s.RecipZipCity),
		Country: strings.TrimSpace(s.RecipCountry),
	}
	opts.Tracking = strings.TrimSpace(s.Tracking)
	opts.FontPath = recipPath
	opts.SenderFontPath = senderPath
	opts.SenderFontSize = senderSize
	opts.RecipientFontSize = recipSize
	opts.SenderLineSpacing = senderSpacing
	opts.RecipientLineSpacing = recipSpacing
	opts.SectionSpacing = s.SectionSpacing
	opts.BarcodeScale = s.BarcodeScale
	opts.ShowCodeText = s.ShowCodeText
	opts.FromLabel = s.FromLabel
	opts.ToLabel = s.ToLabel
	opts.RecipientBorder = s.RecipBorder

	label, err := renderer.NewShippingLabel(opts, f.faces, f.log)
	if err != nil {
		return nil, err
	}
	return label, nil
}
