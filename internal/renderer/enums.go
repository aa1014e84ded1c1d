package renderer

import (
	"errors"
	"fmt"
)

// ErrInvalidLabel wraps every caller-correctable label validation failure
var ErrInvalidLabel = errors.New("invalid label")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidLabel, fmt.Sprintf(format, args...))
}

// Content selects the content generator of a label
type Content int

const (
	TextOnly Content = iota
	QRCodeOnly
	TextQRCode
	ImageBW
	ImageGrayscale
	ImageRedBlack
	ImageColored
	ShippingLabelContent
)

func (c Content) String() string {
	switch c {
	case TextOnly:
		return "TEXT_ONLY"
	case QRCodeOnly:
		return "QRCODE_ONLY"
	case TextQRCode:
		return "TEXT_QRCODE"
	case ImageBW:
		return "IMAGE_BW"
	case ImageGrayscale:
		return "IMAGE_GRAYSCALE"
	case ImageRedBlack:
		return "IMAGE_RED_BLACK"
	case ImageColored:
		return "IMAGE_COLORED"
	case ShippingLabelContent:
		return "SHIPPING_LABEL"
	default:
		return fmt.Sprintf("Content(%d)", int(c))
	}
}

// IsImage reports whether the content passes through a supplied bitmap
func (c Content) IsImage() bool {
	switch c {
	case ImageBW, ImageGrayscale, ImageRedBlack, ImageColored:
		return true
	case TextOnly, QRCodeOnly, TextQRCode, ShippingLabelContent:
		return false
	default:
		return false
	}
}

// IsCode reports whether the content is generated as a QR code or barcode
func (c Content) IsCode() bool {
	switch c {
	case QRCodeOnly, TextQRCode:
		return true
	case TextOnly, ImageBW, ImageGrayscale, ImageRedBlack, ImageColored, ShippingLabelContent:
		return false
	default:
		return false
	}
}

// needsImageTextDistance reports whether text keeps extra distance from the image
func (c Content) needsImageTextDistance() bool {
	switch c {
	case TextQRCode, ImageBW, ImageGrayscale, ImageRedBlack, ImageColored:
		return true
	case TextOnly, QRCodeOnly, ShippingLabelContent:
		return false
	default:
		return false
	}
}

// Orientation is the reading direction of a label
type Orientation int

const (
	Standard Orientation = iota
	Rotated
)

func (o Orientation) String() string {
	switch o {
	case Standard:
		return "standard"
	case Rotated:
		return "rotated"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// ParseOrientation maps "rotated" to Rotated and anything else to Standard
func ParseOrientation(s string) Orientation {
	if s == "rotated" {
		return Rotated
	}
	return Standard
}

// Type is the physical media kind
type Type int

const (
	Endless Type = iota
	DieCut
	RoundDieCut
)

func (t Type) String() string {
	switch t {
	case Endless:
		return "ENDLESS_LABEL"
	case DieCut:
		return "DIE_CUT_LABEL"
	case RoundDieCut:
		return "ROUND_DIE_CUT_LABEL"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// IsDieCut is true for both rectangular and round die-cut media
func (t Type) IsDieCut() bool {
	switch t {
	case DieCut, RoundDieCut:
		return true
	case Endless:
		return false
	default:
		return false
	}
}
