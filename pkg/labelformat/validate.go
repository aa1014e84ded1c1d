package labelformat

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrTextTooLong is returned when a line exceeds MaxTextLength characters
var ErrTextTooLong = errors.New("text is too long")

// Validate checks a request for caller-correctable mistakes
func Validate(r *Request) error {
	if _, err := LookupSize(r.LabelSize); err != nil {
		return err
	}

	switch r.PrintType {
	case PrintText, PrintQRCode, PrintQRCodeText, PrintImage, PrintShipping:
	default:
		return fmt.Errorf("invalid print_type: %s", r.PrintType)
	}

	switch r.Orientation {
	case "standard", "rotated":
	default:
		return fmt.Errorf("invalid orientation: %s (must be standard or rotated)", r.Orientation)
	}

	switch strings.ToUpper(r.QRCodeCorrection) {
	case "L", "M", "Q", "H":
	default:
		return fmt.Errorf("invalid qrcode_correction: %s", r.QRCodeCorrection)
	}

	switch r.ImageMode {
	case ImageGrayscale, ImageBW, ImageRedBlack, ImageColored:
	default:
		return fmt.Errorf("invalid image_mode: %s", r.ImageMode)
	}

	if err := validateColor("print_color", r.PrintColor); err != nil {
		return err
	}
	if err := validateColor("border_color", r.BorderColor); err != nil {
		return err
	}

	if r.PrintCount < 1 {
		return fmt.Errorf("print_count must be greater than 0")
	}

	for i, line := range r.Text {
		if err := ValidateLine(line); err != nil {
			return fmt.Errorf("text[%d]: %w", i, err)
		}
	}

	return nil
}

// ValidateLine checks a single text line
func ValidateLine(line TextLineSpec) error {
	if line.Size == 0 {
		return fmt.Errorf("font size is required")
	}
	if line.Size < 1 {
		return fmt.Errorf("font size must be at least 1")
	}
	if utf8.RuneCountInString(line.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	switch line.Align {
	case "", "left", "center", "right":
	default:
		return fmt.Errorf("unsupported alignment: %s", line.Align)
	}
	return nil
}

func validateColor(field, value string) error {
	switch value {
	case "", "black", "red":
		return nil
	default:
		return fmt.Errorf("invalid %s: %s (must be black or red)", field, value)
	}
}
