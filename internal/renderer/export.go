package renderer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
)

// DefaultDPI is the printer resolution of regular labels
const DefaultDPI = 300

// Output formats understood by Encode
const (
	FormatPNG    = "png"
	FormatBase64 = "base64"
	FormatPDF    = "pdf"
)

// EncodePNG writes img as PNG
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// EncodePDF writes img as a single-page PDF sized to the physical label at dpi
func EncodePDF(w io.Writer, img image.Image, dpi float64) error {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	dpmm := dpi / 25.4
	b := img.Bounds()
	width, height := float64(b.Dx())/dpmm, float64(b.Dy())/dpmm

	writer := pdf.New(w, width, height, nil)
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.DrawImage(0, 0, img, canvas.DPMM(dpmm))
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// Encode renders img in the given format and returns the body and its content type
func Encode(img image.Image, format string, dpi float64) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case FormatPDF:
		if err := EncodePDF(&buf, img, dpi); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "application/pdf", nil
	case FormatBase64:
		if err := EncodePNG(&buf, img); err != nil {
			return nil, "", err
		}
		return []byte(base64.StdEncoding.EncodeToString(buf.Bytes())), "text/plain", nil
	default:
		if err := EncodePNG(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	}
}
