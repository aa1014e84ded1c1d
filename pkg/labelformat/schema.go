// Package labelformat defines the wire format of label requests and the media catalogue
package labelformat

// Print types accepted in Request.PrintType
const (
	PrintText       = "text"
	PrintQRCode     = "qrcode"
	PrintQRCodeText = "qrcode_text"
	PrintImage      = "image"
	PrintShipping   = "shipping"
)

// Image modes accepted in Request.ImageMode
const (
	ImageGrayscale = "grayscale"
	ImageBW        = "bw"
	ImageRedBlack  = "red_black"
	ImageColored   = "colored"
)

// MaxTextLength is the per-line limit on raw text
const MaxTextLength = 10000

// TextLineSpec is one line of label text as sent by a client
type TextLineSpec struct {
	Text        string `json:"text"`
	Font        string `json:"font,omitempty"` // "Family,Style"; empty selects the default font
	Size        int    `json:"size"`
	Align       string `json:"align,omitempty"`
	Color       string `json:"color,omitempty"`
	LineSpacing int    `json:"line_spacing,omitempty"`
	Inverted    bool   `json:"inverted,omitempty"`
	Checkbox    bool   `json:"checkbox,omitempty"`
	Shift       bool   `json:"shift,omitempty"`
}

// Request describes a label to preview, print or store
type Request struct {
	Name string `json:"name,omitempty" form:"name"`

	LabelSize   string `json:"label_size" form:"label_size"`
	PrintType   string `json:"print_type" form:"print_type"`
	Orientation string `json:"orientation" form:"orientation"`

	MarginTop    int `json:"margin_top" form:"margin_top"`
	MarginBottom int `json:"margin_bottom" form:"margin_bottom"`
	MarginLeft   int `json:"margin_left" form:"margin_left"`
	MarginRight  int `json:"margin_right" form:"margin_right"`

	BorderThickness int    `json:"border_thickness" form:"border_thickness"`
	BorderRoundness int    `json:"border_roundness" form:"border_roundness"`
	BorderDistanceX int    `json:"border_distance_x" form:"border_distance_x"`
	BorderDistanceY int    `json:"border_distance_y" form:"border_distance_y"`
	BorderColor     string `json:"border_color" form:"border_color"`

	Text []TextLineSpec `json:"text" form:"-"`

	BarcodeType      string `json:"barcode_type" form:"barcode_type"`
	QRCodeSize       int    `json:"qrcode_size" form:"qrcode_size"`
	QRCodeCorrection string `json:"qrcode_correction" form:"qrcode_correction"`
	CodeText         string `json:"code_text,omitempty" form:"code_text"`

	ImageMode          string  `json:"image_mode" form:"image_mode"`
	ImageBWThreshold   int     `json:"image_bw_threshold" form:"image_bw_threshold"`
	ImageFit           bool    `json:"image_fit" form:"image_fit"`
	ImageScalingFactor float64 `json:"image_scaling_factor" form:"image_scaling_factor"`
	ImageRotation      int     `json:"image_rotation" form:"image_rotation"`

	// Image references a file stored next to a repository entry
	Image     string `json:"image,omitempty" form:"-"`
	ImageName string `json:"image_name,omitempty" form:"-"`
	ImageMime string `json:"image_mime,omitempty" form:"-"`
	ImageData string `json:"image_data,omitempty" form:"-"`

	PrintColor string `json:"print_color" form:"print_color"`
	Timestamp  int64  `json:"timestamp,omitempty" form:"timestamp"`
	HighRes    bool   `json:"high_res,omitempty" form:"high_res"`

	Printer    string `json:"printer,omitempty" form:"printer"`
	Model      string `json:"model,omitempty" form:"model"`
	PrintCount int    `json:"print_count,omitempty" form:"print_count"`
	CutOnce    bool   `json:"cut_once,omitempty" form:"cut_once"`

	Shipping
}

// Shipping holds the structured fields of a shipping label
type Shipping struct {
	SenderName    string `json:"ship_sender_name,omitempty" form:"ship_sender_name"`
	SenderStreet  string `json:"ship_sender_street,omitempty" form:"ship_sender_street"`
	SenderZipCity string `json:"ship_sender_zip_city,omitempty" form:"ship_sender_zip_city"`
	SenderCountry string `json:"ship_sender_country,omitempty" form:"ship_sender_country"`

	RecipCompany string `json:"ship_recip_company,omitempty" form:"ship_recip_company"`
	RecipName    string `json:"ship_recip_name,omitempty" form:"ship_recip_name"`
	RecipStreet  string `json:"ship_recip_street,omitempty" form:"ship_recip_street"`
	RecipZipCity string `json:"ship_recip_zip_city,omitempty" form:"ship_recip_zip_city"`
	RecipCountry string `json:"ship_recip_country,omitempty" form:"ship_recip_country"`

	Tracking       string `json:"ship_tracking,omitempty" form:"ship_tracking"`
	SectionSpacing int    `json:"ship_section_spacing,omitempty" form:"ship_section_spacing"`
	BarcodeScale   int    `json:"ship_barcode_scale,omitempty" form:"ship_barcode_scale"`
	ShowCodeText   bool   `json:"ship_barcode_show_text,omitempty" form:"ship_barcode_show_text"`
	FromLabel      string `json:"ship_from_label,omitempty" form:"ship_from_label"`
	ToLabel        string `json:"ship_to_label,omitempty" form:"ship_to_label"`
	RecipBorder    bool   `json:"ship_recip_border,omitempty" form:"ship_recip_border"`
}

// DefaultRequest returns a request populated with the factory defaults
func DefaultRequest() Request {
	return Request{
		LabelSize:          "62",
		PrintType:          PrintText,
		Orientation:        "standard",
		MarginTop:          12,
		MarginBottom:       12,
		MarginLeft:         20,
		MarginRight:        20,
		BorderThickness:    1,
		BorderColor:        "black",
		Text:               []TextLineSpec{},
		BarcodeType:        "QR",
		QRCodeSize:         10,
		QRCodeCorrection:   "L",
		ImageMode:          ImageGrayscale,
		ImageBWThreshold:   70,
		ImageFit:           true,
		ImageScalingFactor: 100,
		PrintColor:         "black",
		PrintCount:         1,
	}
}
