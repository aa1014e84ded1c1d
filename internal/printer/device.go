package printer

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrBadDevice is returned for descriptors that cannot be parsed
var ErrBadDevice = errors.New("invalid printer descriptor")

// Kind selects the transport for a device descriptor
type Kind int

const (
	KindAuto Kind = iota
	KindSimulation
	KindTCP
	KindUSB
	KindSerial
	KindFile
	KindSpool
)

func (k Kind) String() string {
	switch k {
	case KindAuto:
		return "auto"
	case KindSimulation:
		return "simulation"
	case KindTCP:
		return "tcp"
	case KindUSB:
		return "usb"
	case KindSerial:
		return "serial"
	case KindFile:
		return "file"
	case KindSpool:
		return "spool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Device is a parsed printer descriptor
type Device struct {
	Spec string
	Kind Kind
	Host string // host:port for tcp
	Path string // device node, file or spool directory
	VID  uint16
	PID  uint16
	Baud int
}

// DefaultSerialBaud is used when a serial descriptor carries no baud rate
const DefaultSerialBaud = 9600

// DefaultTCPPort is the raw printing port used when a tcp descriptor has none
const DefaultTCPPort = "9100"

// ParseDevice parses "?", "simulation", tcp://, usb://, serial://, file:// and spool:// descriptors.
func ParseDevice(spec string) (Device, error) {
	spec = strings.TrimSpace(spec)
	switch spec {
	case "", "?":
		return Device{Spec: "?", Kind: KindAuto}, nil
	case "simulation":
		return Device{Spec: spec, Kind: KindSimulation}, nil
	}

	// usb ids are hex, which url.Parse rejects as a port
	if rest, ok := strings.CutPrefix(spec, "usb://"); ok {
		return parseUSB(spec, rest)
	}

	u, err := url.Parse(spec)
	if err != nil {
		return Device{}, fmt.Errorf("%w %q: %v", ErrBadDevice, spec, err)
	}

	d := Device{Spec: spec}
	switch u.Scheme {
	case "tcp":
		if u.Host == "" {
			return Device{}, fmt.Errorf("%w %q: missing host", ErrBadDevice, spec)
		}
		d.Kind = KindTCP
		d.Host = u.Host
		if u.Port() == "" {
			d.Host = u.Host + ":" + DefaultTCPPort
		}
	case "serial":
		d.Kind = KindSerial
		d.Path = u.Path
		d.Baud = DefaultSerialBaud
		if b := u.Query().Get("baud"); b != "" {
			baud, err := strconv.Atoi(b)
			if err != nil || baud <= 0 {
				return Device{}, fmt.Errorf("%w %q: bad baud rate", ErrBadDevice, spec)
			}
			d.Baud = baud
		}
	case "file":
		d.Kind = KindFile
		d.Path = u.Path
	case "spool":
		d.Kind = KindSpool
		d.Path = u.Path
	default:
		return Device{}, fmt.Errorf("%w %q: unknown scheme", ErrBadDevice, spec)
	}

	if (d.Kind == KindSerial || d.Kind == KindFile || d.Kind == KindSpool) && d.Path == "" {
		return Device{}, fmt.Errorf("%w %q: missing path", ErrBadDevice, spec)
	}
	return d, nil
}

func parseUSB(spec, rest string) (Device, error) {
	vid, pid, ok := strings.Cut(strings.TrimSuffix(rest, "/"), ":")
	if !ok {
		return Device{}, fmt.Errorf("%w %q: expected usb://0xVID:0xPID", ErrBadDevice, spec)
	}
	v, err := parseID(vid)
	if err != nil {
		return Device{}, fmt.Errorf("%w %q: %v", ErrBadDevice, spec, err)
	}
	p, err := parseID(pid)
	if err != nil {
		return Device{}, fmt.Errorf("%w %q: %v", ErrBadDevice, spec, err)
	}
	return Device{Spec: spec, Kind: KindUSB, VID: v, PID: p}, nil
}

func parseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("bad usb id %q", s)
	}
	return uint16(v), nil
}

func (d Device) String() string {
	return d.Spec
}
