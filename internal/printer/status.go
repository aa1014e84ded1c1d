package printer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/thereceipt/label-designer/internal/cache"
	"go.uber.org/zap"
)

// ScanTTL is how long an auto-detect scan result is reused
const ScanTTL = 30 * time.Second

const scanKey = "scan"

// Status describes one printer as reported by /api/printer_status
type Status struct {
	Errors        []string `json:"errors"`
	Path          string   `json:"path"`
	MediaCategory *string  `json:"media_category"`
	MediaLength   int      `json:"media_length"`
	MediaType     *string  `json:"media_type"`
	MediaWidth    *int     `json:"media_width"`
	Model         string   `json:"model"`
	ModelCode     *string  `json:"model_code"`
	PhaseType     string   `json:"phase_type"`
	SeriesCode    *string  `json:"series_code"`
	Setting       *string  `json:"setting"`
	StatusCode    int      `json:"status_code"`
	StatusType    string   `json:"status_type"`
	TapeColor     string   `json:"tape_color"`
	TextColor     string   `json:"text_color"`
	RedSupport    bool     `json:"red_support"`
}

func unknownStatus(path string) Status {
	return Status{
		Errors:     []string{},
		Path:       path,
		Model:      "Unknown",
		PhaseType:  "Unknown",
		StatusType: "Unknown",
	}
}

// ScanEntry logs the outcome of probing one device during auto-detect
type ScanEntry struct {
	Device string  `json:"device"`
	Found  bool    `json:"found"`
	Model  *string `json:"model"`
	Error  *string `json:"error"`
}

// Report is the status of the selected printer plus every known printer
type Report struct {
	Status
	Printers []Status    `json:"printers"`
	Selected *string     `json:"selected"`
	ScanLog  []ScanEntry `json:"scan_log"`
}

// Prober queries a single device
type Prober interface {
	Probe(ctx context.Context, d Device) (Status, error)
}

// ScannerConfig configures a Scanner
type ScannerConfig struct {
	Device     string
	Model      string
	Simulation bool
	USBScan    bool
	// LinePrinters lists candidate device nodes, default /dev/usb/lp0..lp10
	LinePrinters []string
}

// ScanResult is the outcome of one auto-detect pass
type ScanResult struct {
	Printers []Status
	Log      []ScanEntry
}

// Scanner reports printer status, caching auto-detect scans for ScanTTL
type Scanner struct {
	cfg    ScannerConfig
	prober Prober
	cache  cache.Cache[string, ScanResult]
	usb    func() ([]Status, error)
	log    *zap.Logger
	mu     sync.Mutex
}

// NewScanner creates a scanner, a nil prober opens devices to check they are writable
func NewScanner(cfg ScannerConfig, prober Prober, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	if len(cfg.LinePrinters) == 0 {
		for i := 0; i <= 10; i++ {
			cfg.LinePrinters = append(cfg.LinePrinters, fmt.Sprintf("/dev/usb/lp%d", i))
		}
	}
	if prober == nil {
		prober = DialProber{Model: cfg.Model}
	}
	return &Scanner{
		cfg:    cfg,
		prober: prober,
		cache:  cache.NewTTLCache[string, ScanResult](),
		usb:    scanUSB,
		log:    log.Named("scanner"),
	}
}

// Reset forgets the cached scan
func (s *Scanner) Reset() {
	s.cache.Clear()
}

func (s *Scanner) simulator() Status {
	st := unknownStatus("simulation")
	st.Model = s.cfg.Model
	st.PhaseType = "Simulator"
	st.StatusType = "Simulator"
	st.RedSupport = RedSupport(s.cfg.Model)
	return st
}

// Report returns the current status for the configured descriptor
func (s *Scanner) Report(ctx context.Context) Report {
	device, err := ParseDevice(s.cfg.Device)
	if err != nil {
		st := unknownStatus(s.cfg.Device)
		st.Errors = []string{err.Error()}
		return Report{Status: st, Printers: []Status{}, ScanLog: []ScanEntry{}}
	}

	switch device.Kind {
	case KindAuto:
		return s.autoReport(ctx)
	case KindSimulation:
		sim := s.simulator()
		return Report{Status: sim, Printers: []Status{s.simulator()}, Selected: ptr("simulation"), ScanLog: []ScanEntry{}}
	case KindTCP:
		st := unknownStatus(device.Spec)
		printer := s.simulator()
		printer.Path = device.Spec
		printer.PhaseType = "Network Printer"
		printer.StatusType = "Network Printer"
		return Report{Status: st, Printers: s.withSimulator([]Status{printer}), Selected: ptr(device.Spec), ScanLog: []ScanEntry{}}
	default:
		st, err := s.prober.Probe(ctx, device)
		if err != nil {
			s.log.Error("printer status error", zap.String("device", device.Spec), zap.Error(err))
			st = unknownStatus(device.Spec)
			st.Errors = []string{err.Error()}
			return Report{Status: st, Printers: []Status{}, ScanLog: s.cachedLog()}
		}
		st.RedSupport = RedSupport(st.Model)
		return Report{Status: st, Printers: s.withSimulator([]Status{st}), Selected: ptr(st.Path), ScanLog: []ScanEntry{}}
	}
}

func (s *Scanner) withSimulator(printers []Status) []Status {
	if s.cfg.Simulation {
		printers = append(printers, s.simulator())
	}
	return printers
}

func (s *Scanner) cachedLog() []ScanEntry {
	if res, ok := s.cache.Get(scanKey); ok {
		return append([]ScanEntry{}, res.Log...)
	}
	return []ScanEntry{}
}

func (s *Scanner) autoReport(ctx context.Context) Report {
	res := s.Scan(ctx)
	printers := s.withSimulator(append([]Status{}, res.Printers...))
	scanLog := append([]ScanEntry{}, res.Log...)

	if len(printers) == 0 {
		st := unknownStatus("?")
		st.StatusType = "Offline"
		st.Errors = append(st.Errors, "No compatible printer detected")
		return Report{Status: st, Printers: printers, ScanLog: scanLog}
	}
	first := printers[0]
	return Report{Status: first, Printers: printers, Selected: ptr(first.Path), ScanLog: scanLog}
}

// Scan returns the cached auto-detect result, scanning when it expired
func (s *Scanner) Scan(ctx context.Context) ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.cache.Get(scanKey); ok {
		return res
	}
	res := s.scan(ctx)
	s.cache.Set(scanKey, res, ScanTTL)
	return res
}

func (s *Scanner) scan(ctx context.Context) ScanResult {
	s.log.Info("auto-detecting printers", zap.Strings("candidates", s.cfg.LinePrinters))
	res := ScanResult{Printers: []Status{}, Log: []ScanEntry{}}

	for _, path := range s.cfg.LinePrinters {
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		if fi.Mode()&os.ModeCharDevice == 0 {
			s.log.Debug("skipping device, not a character device", zap.String("path", path))
			continue
		}
		spec := "file://" + path
		entry := ScanEntry{Device: spec, Found: true}

		st, err := s.prober.Probe(ctx, Device{Spec: spec, Kind: KindFile, Path: path})
		if err != nil {
			s.log.Warn("device exists but status query failed, adding with unknown status",
				zap.String("device", spec), zap.Error(err))
			st = unknownStatus(spec)
			st.Errors = []string{err.Error()}
			st.Model = s.cfg.Model
			st.RedSupport = RedSupport(s.cfg.Model)
			entry.Error = ptr(err.Error())
		} else {
			if st.Path == "" {
				st.Path = spec
			}
			s.log.Info("found compatible printer", zap.String("device", spec), zap.String("model", st.Model))
		}
		entry.Model = ptr(st.Model)
		res.Printers = append(res.Printers, st)
		res.Log = append(res.Log, entry)
	}

	if s.cfg.USBScan && s.usb != nil {
		found, err := s.usb()
		if err != nil {
			s.log.Warn("usb scan failed", zap.Error(err))
		}
		for _, st := range found {
			res.Printers = append(res.Printers, st)
			res.Log = append(res.Log, ScanEntry{Device: st.Path, Found: true, Model: ptr(st.Model)})
		}
	}
	return res
}

// DialProber checks that a device can be opened. Media details need the
// printer's own status protocol, so the configured model is reported.
type DialProber struct {
	Model string
	Dial  DialFunc
}

// Probe opens and closes the device
func (p DialProber) Probe(ctx context.Context, d Device) (Status, error) {
	dial := p.Dial
	if dial == nil {
		dial = Dial
	}
	ctx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	conn, err := dial(ctx, d, "bin")
	if err != nil {
		return Status{}, err
	}
	_ = conn.Close()

	st := unknownStatus(d.Spec)
	st.Model = p.Model
	st.RedSupport = RedSupport(p.Model)
	st.StatusType = "Status reply"
	st.PhaseType = "Waiting to receive"
	return st, nil
}

func ptr[T any](v T) *T { return &v }
