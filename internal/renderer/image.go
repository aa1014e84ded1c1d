package renderer

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// DecodeImage reads an uploaded bitmap. Transparent areas are flattened onto white.
func DecodeImage(r io.Reader, filename string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return nil, invalidf("PDF uploads are not supported, upload a PNG or JPEG instead")
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, invalidf("unsupported file type: %v", err)
	}
	return flatten(img), nil
}

func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), colorWhite)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// ConvertImage applies one of the upload image modes: grayscale, bw, red_black or colored
func ConvertImage(img image.Image, mode string, threshold int) (image.Image, error) {
	switch mode {
	case "grayscale":
		return ToGrayscale(img), nil
	case "bw", "":
		return ToBlackWhite(img, threshold), nil
	case "red_black", "red_and_black":
		return ToRedBlack(img), nil
	case "colored":
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported image mode: %s", mode)
	}
}

// ContentForImageMode maps an image mode to the label content that displays it
func ContentForImageMode(mode string) Content {
	switch mode {
	case "grayscale":
		return ImageGrayscale
	case "red_black", "red_and_black":
		return ImageRedBlack
	case "colored":
		return ImageColored
	default:
		return ImageBW
	}
}

// ToGrayscale converts to 8-bit luminance
func ToGrayscale(img image.Image) image.Image {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return gray
}

// ToBlackWhite thresholds the luminance. threshold is a percentage of full brightness:
// pixels darker than it become black.
func ToBlackWhite(img image.Image, threshold int) image.Image {
	threshold = max(0, min(threshold, 100))
	limit := uint8(threshold * 255 / 100)

	gray := ToGrayscale(img).(*image.Gray)
	for i, v := range gray.Pix {
		if v < limit {
			gray.Pix[i] = 0
		} else {
			gray.Pix[i] = 255
		}
	}
	return gray
}

// ToRedBlack reduces an image to the three inks of two-color tape: white, black and red
func ToRedBlack(img image.Image) image.Image {
	src := imaging.Clone(img)
	b := src.Bounds()
	out := image.NewRGBA(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := src.PixOffset(x, y)
			r, g, bl := int(src.Pix[i]), int(src.Pix[i+1]), int(src.Pix[i+2])
			var c color.RGBA
			switch {
			case r > 100 && r > 2*g && r > 2*bl:
				c = colorRed
			case (299*r+587*g+114*bl)/1000 < 128:
				c = colorBlack
			default:
				c = colorWhite
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out
}
