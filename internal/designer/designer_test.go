package designer

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereceipt/label-designer/internal/fonts"
	"github.com/thereceipt/label-designer/internal/printer"
	"github.com/thereceipt/label-designer/internal/renderer"
	"github.com/thereceipt/label-designer/pkg/labelformat"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memImages map[string][]byte

func (m memImages) OpenImage(name string) (io.ReadCloser, error) {
	data, ok := m[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func newFactory(t *testing.T, images ImageStore, log *zap.Logger) *Factory {
	t.Helper()
	resolver, err := fonts.NewResolver(fonts.Options{Builtin: true}, nil)
	require.NoError(t, err)
	return NewFactory(resolver, fonts.NewCache(fonts.NewOpenTypeLoader(), nil), images, log)
}

func textRequest(lines ...labelformat.TextLineSpec) *labelformat.Request {
	req := labelformat.DefaultRequest()
	req.Text = lines
	return &req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.Black), imaging.PNG))
	return buf.Bytes()
}

func TestBuildLabel_TextDefaults(t *testing.T) {
	f := newFactory(t, nil, nil)
	label, err := f.BuildLabel(textRequest(labelformat.TextLineSpec{Text: "Hello", Size: 40, Font: "Go,Bold"}), nil, 0)
	require.NoError(t, err)

	simple, ok := label.(*renderer.SimpleLabel)
	require.True(t, ok)
	opts := simple.Options()
	assert.Equal(t, renderer.TextOnly, opts.Content)
	assert.Equal(t, renderer.Endless, opts.Type)
	assert.Equal(t, renderer.Standard, opts.Orientation)
	assert.Equal(t, 696, opts.Width)
	assert.Equal(t, 0, opts.Height)
	assert.Equal(t, fonts.BuiltinPrefix+"gobold", opts.Lines[0].FontPath)
	assert.Equal(t, renderer.Margins{Left: 20, Right: 20, Top: 12, Bottom: 12}, opts.Margin)
}

func TestBuildLabel_Dimensions(t *testing.T) {
	f := newFactory(t, nil, nil)

	tests := []struct {
		size        string
		orientation string
		highRes     bool
		w, h        int
	}{
		{"62", "rotated", false, 0, 696},
		{"62x29", "standard", false, 696, 271},
		{"62x29", "rotated", false, 271, 696},
		// die-cut media taller than wide are laid out landscape first
		{"29x90", "standard", false, 991, 306},
		{"62", "standard", true, 1392, 0},
	}
	for _, tt := range tests {
		t.Run(tt.size+"/"+tt.orientation, func(t *testing.T) {
			req := textRequest()
			req.LabelSize, req.Orientation, req.HighRes = tt.size, tt.orientation, tt.highRes
			label, err := f.BuildLabel(req, nil, 0)
			require.NoError(t, err)
			opts := label.(*renderer.SimpleLabel).Options()
			assert.Equal(t, tt.w, opts.Width)
			assert.Equal(t, tt.h, opts.Height)
		})
	}
}

func TestBuildLabel_PrintTypes(t *testing.T) {
	f := newFactory(t, nil, nil)

	req := textRequest()
	req.PrintType = labelformat.PrintQRCode
	req.BarcodeType = "code128"
	label, err := f.BuildLabel(req, nil, 0)
	require.NoError(t, err)
	opts := label.(*renderer.SimpleLabel).Options()
	assert.Equal(t, renderer.QRCodeOnly, opts.Content)
	assert.Equal(t, "QR", opts.BarcodeType)

	req = textRequest()
	req.PrintType = labelformat.PrintQRCodeText
	req.BarcodeType = "code128"
	label, err = f.BuildLabel(req, nil, 0)
	require.NoError(t, err)
	opts = label.(*renderer.SimpleLabel).Options()
	assert.Equal(t, renderer.TextQRCode, opts.Content)
	assert.Equal(t, "code128", opts.BarcodeType)

	for mode, want := range map[string]renderer.Content{
		labelformat.ImageGrayscale: renderer.ImageGrayscale,
		labelformat.ImageBW:        renderer.ImageBW,
		labelformat.ImageRedBlack:  renderer.ImageRedBlack,
		labelformat.ImageColored:   renderer.ImageColored,
	} {
		req = textRequest()
		req.PrintType = labelformat.PrintImage
		req.ImageMode = mode
		label, err = f.BuildLabel(req, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, want, label.Content(), mode)
	}
}

func TestBuildLabel_Validation(t *testing.T) {
	f := newFactory(t, nil, nil)

	req := textRequest(labelformat.TextLineSpec{Text: "x"})
	_, err := f.BuildLabel(req, nil, 0)
	assert.EqualError(t, err, "text[0]: font size is required")

	req = textRequest(labelformat.TextLineSpec{Text: strings.Repeat("a", labelformat.MaxTextLength+1), Size: 10})
	_, err = f.BuildLabel(req, nil, 0)
	assert.ErrorIs(t, err, labelformat.ErrTextTooLong)

	req = textRequest()
	req.LabelSize = "63"
	_, err = f.BuildLabel(req, nil, 0)
	assert.ErrorIs(t, err, labelformat.ErrUnknownLabelSize)
}

func TestBuildLabel_UploadIsConverted(t *testing.T) {
	f := newFactory(t, nil, nil)
	req := textRequest()
	req.PrintType = labelformat.PrintImage
	req.ImageMode = labelformat.ImageBW

	label, err := f.BuildLabel(req, &Upload{Filename: "logo.png", Data: pngBytes(t, 40, 20)}, 0)
	require.NoError(t, err)
	img := label.(*renderer.SimpleLabel).Options().Image
	require.NotNil(t, img)
	assert.Equal(t, 40, img.Bounds().Dx())

	_, err = f.BuildLabel(req, &Upload{Filename: "doc.pdf", Data: []byte("%PDF")}, 0)
	assert.ErrorIs(t, err, renderer.ErrInvalidLabel)
}

func TestBuildLabel_RepositoryImage(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFactory(t, memImages{"box_image.png": pngBytes(t, 12, 8)}, zap.New(core))

	req := textRequest()
	req.PrintType = labelformat.PrintImage
	req.Image = "box_image.png"
	label, err := f.BuildLabel(req, nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, label.(*renderer.SimpleLabel).Options().Image)

	req.Image = "missing.png"
	label, err = f.BuildLabel(req, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, label.(*renderer.SimpleLabel).Options().Image)
	assert.Equal(t, 1, logs.FilterMessage("failed to load repository image").Len())
}

func TestBuildLabel_Shipping(t *testing.T) {
	f := newFactory(t, nil, nil)
	req := textRequest(
		labelformat.TextLineSpec{Size: 30, Font: "Go,Italic", LineSpacing: 150},
		labelformat.TextLineSpec{Size: 60, Font: "Go Mono,Bold"},
	)
	req.PrintType = labelformat.PrintShipping
	req.SenderName = "  Jane Doe "
	req.RecipCompany = "ACME"
	req.Tracking = "1Z999"

	label, err := f.BuildLabel(req, nil, 0)
	require.NoError(t, err)
	ship, ok := label.(*renderer.ShippingLabel)
	require.True(t, ok)

	opts := ship.Options()
	// endless media are always laid out as a rotated column
	assert.Equal(t, renderer.Rotated, opts.Orientation)
	assert.Equal(t, 0, opts.Width)
	assert.Equal(t, 696, opts.Height)
	assert.Equal(t, "Jane Doe", opts.Sender.Name)
	assert.Equal(t, "ACME", opts.Recipient.Company)
	assert.Equal(t, fonts.BuiltinPrefix+"goitalic", opts.SenderFontPath)
	assert.Equal(t, fonts.BuiltinPrefix+"gomonobold", opts.FontPath)
	assert.Equal(t, 30, opts.SenderFontSize)
	assert.Equal(t, 60, opts.RecipientFontSize)
	assert.Equal(t, 150, opts.SenderLineSpacing)
	assert.Equal(t, 150, opts.RecipientLineSpacing)
	assert.Equal(t, "qr", opts.BarcodeType)
}

func TestPrinterSettings_Target(t *testing.T) {
	s := PrinterSettings{Device: "?", Model: "QL-500", Simulation: true}

	req := textRequest()
	device, model := s.Target(req)
	assert.Equal(t, "simulation", device)
	assert.Equal(t, "QL-500", model)

	req.Printer, req.Model = "tcp://10.1.1.1:9100", "QL-820NWB"
	device, model = s.Target(req)
	assert.Equal(t, "tcp://10.1.1.1:9100", device)
	assert.Equal(t, "QL-820NWB", model)

	s.Simulation = false
	req.Printer = ""
	device, _ = s.Target(req)
	assert.Equal(t, "?", device)
}

func TestPrint_CountAndCutOnce(t *testing.T) {
	f := newFactory(t, nil, nil)
	journal := printer.NewJournal(10)
	settings := PrinterSettings{Device: "simulation", Model: "QL-700", Journal: journal}

	req := textRequest(labelformat.TextLineSpec{Text: "#{{counter}}", Size: 30})
	req.PrintCount = 3
	req.CutOnce = true

	status, err := f.Print(context.Background(), req, nil, settings)
	require.NoError(t, err)
	assert.Empty(t, status)

	jobs := journal.All()
	require.Len(t, jobs, 1)
	assert.Equal(t, 3, jobs[0].Labels)
	assert.Equal(t, printer.JobCompleted, jobs[0].Status)

	req.PrintCount = 0
	_, err = f.Print(context.Background(), req, nil, settings)
	assert.EqualError(t, err, "print_count must be greater than 0")
}
