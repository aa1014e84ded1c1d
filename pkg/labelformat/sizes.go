package labelformat

import (
	"errors"
	"fmt"
)

// ErrUnknownLabelSize is returned for identifiers missing from the media catalogue
var ErrUnknownLabelSize = errors.New("unknown label_size")

// FormFactor describes how the media is cut
type FormFactor int

const (
	Endless FormFactor = iota
	DieCut
	RoundDieCut
)

func (f FormFactor) String() string {
	switch f {
	case Endless:
		return "endless"
	case DieCut:
		return "die_cut"
	case RoundDieCut:
		return "round_die_cut"
	default:
		return fmt.Sprintf("FormFactor(%d)", int(f))
	}
}

// LabelSize is one entry of the media catalogue.
// DotsPrintable is in printer dots at 300 dpi; endless media have a zero length.
type LabelSize struct {
	Identifier    string     `json:"identifier"`
	Name          string     `json:"name"`
	FormFactor    FormFactor `json:"-"`
	TapeSize      [2]int     `json:"tape_size"`
	DotsPrintable [2]int     `json:"dots_printable"`
	Red           bool       `json:"red"`
}

// Round reports whether the label is a round die-cut
func (l LabelSize) Round() bool {
	return l.FormFactor == RoundDieCut
}

// AllSizes lists every supported media in display order
var AllSizes = []LabelSize{
	{"12", "12mm endless", Endless, [2]int{12, 0}, [2]int{106, 0}, false},
	{"29", "29mm endless", Endless, [2]int{29, 0}, [2]int{306, 0}, false},
	{"38", "38mm endless", Endless, [2]int{38, 0}, [2]int{413, 0}, false},
	{"50", "50mm endless", Endless, [2]int{50, 0}, [2]int{554, 0}, false},
	{"54", "54mm endless", Endless, [2]int{54, 0}, [2]int{590, 0}, false},
	{"62", "62mm endless", Endless, [2]int{62, 0}, [2]int{696, 0}, false},
	{"62red", "62mm endless (black/red/white)", Endless, [2]int{62, 0}, [2]int{696, 0}, true},
	{"102", "102mm endless", Endless, [2]int{102, 0}, [2]int{1164, 0}, false},
	{"17x54", "17mm x 54mm die-cut", DieCut, [2]int{17, 54}, [2]int{165, 566}, false},
	{"17x87", "17mm x 87mm die-cut", DieCut, [2]int{17, 87}, [2]int{165, 956}, false},
	{"23x23", "23mm x 23mm die-cut", DieCut, [2]int{23, 23}, [2]int{202, 202}, false},
	{"29x42", "29mm x 42mm die-cut", DieCut, [2]int{29, 42}, [2]int{306, 425}, false},
	{"29x90", "29mm x 90mm die-cut", DieCut, [2]int{29, 90}, [2]int{306, 991}, false},
	{"39x90", "38mm x 90mm die-cut", DieCut, [2]int{38, 90}, [2]int{413, 991}, false},
	{"39x48", "39mm x 48mm die-cut", DieCut, [2]int{39, 48}, [2]int{425, 495}, false},
	{"52x29", "52mm x 29mm die-cut", DieCut, [2]int{52, 29}, [2]int{578, 271}, false},
	{"62x29", "62mm x 29mm die-cut", DieCut, [2]int{62, 29}, [2]int{696, 271}, false},
	{"62x100", "62mm x 100mm die-cut", DieCut, [2]int{62, 100}, [2]int{696, 1109}, false},
	{"102x51", "102mm x 51mm die-cut", DieCut, [2]int{102, 51}, [2]int{1164, 526}, false},
	{"102x152", "102mm x 152mm die-cut", DieCut, [2]int{102, 153}, [2]int{1164, 1660}, false},
	{"d12", "12mm round die-cut", RoundDieCut, [2]int{12, 12}, [2]int{94, 94}, false},
	{"d24", "24mm round die-cut", RoundDieCut, [2]int{24, 24}, [2]int{236, 236}, false},
	{"d58", "58mm round die-cut", RoundDieCut, [2]int{58, 58}, [2]int{618, 618}, false},
}

// LookupSize finds a label size by identifier
func LookupSize(identifier string) (LabelSize, error) {
	for _, s := range AllSizes {
		if s.Identifier == identifier {
			return s, nil
		}
	}
	return LabelSize{}, fmt.Errorf("%w: %q", ErrUnknownLabelSize, identifier)
}

// Dimensions returns the printable area in dots, doubled for high resolution output
func Dimensions(identifier string, highRes bool) (int, int, error) {
	size, err := LookupSize(identifier)
	if err != nil {
		return 0, 0, err
	}
	w, h := size.DotsPrintable[0], size.DotsPrintable[1]
	if highRes {
		w, h = 2*w, 2*h
	}
	return w, h, nil
}

// HumanName returns the display name for an identifier, or the identifier itself
func HumanName(identifier string) string {
	if size, err := LookupSize(identifier); err == nil {
		return size.Name
	}
	return identifier
}
