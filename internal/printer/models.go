package printer

import "strings"

// BrotherVendorID is the USB vendor id shared by every supported model
const BrotherVendorID uint16 = 0x04f9

// Model is one entry of the printer catalogue
type Model struct {
	Identifier string `json:"identifier"`
	ProductID  uint16 `json:"product_id"`
	TwoColor   bool   `json:"two_color"`
}

// Models lists the supported printers
var Models = []Model{
	{"QL-500", 0x2015, false},
	{"QL-550", 0x2016, false},
	{"QL-560", 0x2027, false},
	{"QL-570", 0x2028, false},
	{"QL-580N", 0x2029, false},
	{"QL-650TD", 0x201b, false},
	{"QL-700", 0x2042, false},
	{"QL-710W", 0x2043, false},
	{"QL-720NW", 0x2044, false},
	{"QL-800", 0x209b, true},
	{"QL-810W", 0x209c, true},
	{"QL-820NWB", 0x209d, true},
	{"QL-1050", 0x2020, false},
	{"QL-1060N", 0x202a, false},
	{"QL-1100", 0x20a7, false},
	{"QL-1110NWB", 0x20a8, false},
}

// LookupModel finds a model by identifier, ignoring case
func LookupModel(identifier string) (Model, bool) {
	for _, m := range Models {
		if strings.EqualFold(m.Identifier, identifier) {
			return m, true
		}
	}
	return Model{}, false
}

// ModelForProduct maps a USB product id to a model
func ModelForProduct(pid uint16) (Model, bool) {
	for _, m := range Models {
		if m.ProductID == pid {
			return m, true
		}
	}
	return Model{}, false
}

// RedSupport reports whether the model prints black/red tape
func RedSupport(identifier string) bool {
	m, ok := LookupModel(identifier)
	return ok && m.TwoColor
}
