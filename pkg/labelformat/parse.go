package labelformat

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Parse decodes a JSON label request on top of the factory defaults
func Parse(data []byte) (*Request, error) {
	req := DefaultRequest()
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse label request: %w", err)
	}
	req.normalize()
	return &req, nil
}

// ParseFile reads and decodes a request from disk
func ParseFile(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	return Parse(data)
}

// DecodeText decodes the JSON-encoded "text" form field
func DecodeText(raw string) ([]TextLineSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []TextLineSpec{}, nil
	}
	var lines []TextLineSpec
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("failed to parse text lines: %w", err)
	}
	return lines, nil
}

// EncodeText is the inverse of DecodeText
func EncodeText(lines []TextLineSpec) string {
	if lines == nil {
		lines = []TextLineSpec{}
	}
	data, _ := json.Marshal(lines)
	return string(data)
}

func (r *Request) normalize() {
	r.CodeText = strings.TrimSpace(r.CodeText)
	if r.Text == nil {
		r.Text = []TextLineSpec{}
	}
	if r.BarcodeType == "" {
		r.BarcodeType = "QR"
	}
	if r.ImageMode == "red_and_black" {
		r.ImageMode = ImageRedBlack
	}
}

// Normalize trims and canonicalises fields after form binding
func (r *Request) Normalize() {
	r.normalize()
}
