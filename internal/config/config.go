// Package config loads service settings from .env, the environment and flags
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// High resolution printing doubles the 300 dpi base resolution
const (
	DefaultDPI   = 300
	HighResDPI   = 600
	DefaultPort  = 8013
	DefaultModel = "QL-500"
)

// LineSpacings lists the choices offered by the editor, in percent
var LineSpacings = []int{100, 150, 200, 250, 300}

// Server settings
type Server struct {
	Host     string
	Port     int
	Env      string
	LogLevel string
	Headless bool
}

// Printer settings
type Printer struct {
	Model      string
	Device     string
	Simulation bool
	Protocol   string
	USBScan    bool
}

// Label defaults offered to the editor
type Label struct {
	Orientation  string
	Size         string
	FontSize     int
	QRSize       int
	LineSpacing  int
	FontFamily   string
	FontStyle    string
	ImageMode    string
	BWThreshold  int
	MarginTop    int
	MarginBottom int
	MarginLeft   int
	MarginRight  int
}

// HomeAssistant power switch settings
type HomeAssistant struct {
	URL      string
	Token    string
	EntityID string
}

// Config is the complete service configuration
type Config struct {
	Server        Server
	Printer       Printer
	Label         Label
	HomeAssistant HomeAssistant

	RepositoryDir string
	FontFolder    string
	FontBuiltin   bool

	PrintRateLimit float64
	PrintRateBurst int
}

// Load reads .env when present and then the environment
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a config from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	e := env{get: getenv}
	cfg := &Config{
		Server: Server{
			Host:     e.str("SERVER_HOST", "0.0.0.0"),
			Port:     e.int("SERVER_PORT", DefaultPort),
			Env:      e.str("APP_ENV", "production"),
			LogLevel: e.str("LOG_LEVEL", "warn"),
		},
		Printer: Printer{
			Model:      e.str("PRINTER_MODEL", DefaultModel),
			Device:     e.str("PRINTER_PRINTER", "?"),
			Simulation: e.bool("PRINTER_SIMULATION", false),
			Protocol:   e.str("PRINTER_PROTOCOL", "escpos"),
			USBScan:    e.bool("PRINTER_USB_SCAN", false),
		},
		Label: Label{
			Orientation:  e.str("LABEL_DEFAULT_ORIENTATION", "standard"),
			Size:         e.str("LABEL_DEFAULT_SIZE", "62"),
			FontSize:     e.int("LABEL_DEFAULT_FONT_SIZE", 70),
			QRSize:       e.int("LABEL_DEFAULT_QR_SIZE", 10),
			LineSpacing:  e.int("LABEL_DEFAULT_LINE_SPACING", 100),
			FontFamily:   e.str("LABEL_DEFAULT_FONT_FAMILY", "DejaVu Serif"),
			FontStyle:    e.str("LABEL_DEFAULT_FONT_STYLE", "Book"),
			ImageMode:    e.str("IMAGE_DEFAULT_MODE", "grayscale"),
			BWThreshold:  e.int("IMAGE_DEFAULT_BW_THRESHOLD", 70),
			MarginTop:    e.int("LABEL_DEFAULT_MARGIN_TOP", 24),
			MarginBottom: e.int("LABEL_DEFAULT_MARGIN_BOTTOM", 24),
			MarginLeft:   e.int("LABEL_DEFAULT_MARGIN_LEFT", 35),
			MarginRight:  e.int("LABEL_DEFAULT_MARGIN_RIGHT", 35),
		},
		HomeAssistant: HomeAssistant{
			URL:      e.str("HOMEASSISTANT_API_URL", ""),
			Token:    e.str("HOMEASSISTANT_API_KEY", ""),
			EntityID: e.str("HOMEASSISTANT_PRINTER_ENTITY_ID", ""),
		},
		RepositoryDir:  e.str("LABEL_REPOSITORY_DIR", "./labels"),
		FontFolder:     e.str("FONT_FOLDER", ""),
		FontBuiltin:    e.bool("FONT_BUILTIN", true),
		PrintRateLimit: e.float("PRINT_RATE_LIMIT", 2),
		PrintRateBurst: e.int("PRINT_RATE_BURST", 10),
	}
	if e.err != nil {
		return nil, e.err
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.Label.Orientation {
	case "standard", "rotated":
	default:
		return fmt.Errorf("invalid default orientation: %s (must be standard or rotated)", c.Label.Orientation)
	}
	switch c.Printer.Protocol {
	case "escpos", "png":
	default:
		return fmt.Errorf("invalid printer protocol: %s (must be escpos or png)", c.Printer.Protocol)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	return nil
}

// Development reports whether APP_ENV selects development logging
func (c *Config) Development() bool {
	return strings.EqualFold(c.Server.Env, "development")
}

// Addr is the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BindFlags registers the server flags on fs with the current values as defaults
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Server.Port, "port", c.Server.Port, "port to listen on")
	fs.StringVar(&c.Printer.Model, "model", c.Printer.Model, "printer model")
	fs.StringVar(&c.Label.Size, "default-label-size", c.Label.Size, "label size selected in the editor")
	fs.StringVar(&c.Label.Orientation, "default-orientation", c.Label.Orientation, "label orientation (standard or rotated)")
	fs.BoolVar(&c.Server.Headless, "headless", c.Server.Headless, "run without the terminal dashboard")
	fs.StringVar(&c.Server.LogLevel, "log-level", c.Server.LogLevel, "debug, info, warn or error")
}

// ParseFlags parses args and applies the optional positional printer descriptor
func (c *Config) ParseFlags(fs *flag.FlagSet, args []string) error {
	c.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		c.Printer.Device = fs.Arg(0)
	}
	return c.Validate()
}

type env struct {
	get func(string) string
	err error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v)
		return def
	}
	return f
}

func (e *env) bool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(e.get(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func (e *env) fail(key, value string) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid value for %s: %q", key, value)
	}
}
