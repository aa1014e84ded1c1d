package printer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereceipt/label-designer/internal/cache"
	"go.uber.org/zap"
)

type countingProber struct {
	calls int
	err   error
	model string
}

func (p *countingProber) Probe(_ context.Context, d Device) (Status, error) {
	p.calls++
	if p.err != nil {
		return Status{}, p.err
	}
	st := unknownStatus(d.Spec)
	st.Model = p.model
	st.StatusType = "Status reply"
	return st, nil
}

func newScanner(cfg ScannerConfig, prober Prober) *Scanner {
	s := NewScanner(cfg, prober, zap.NewNop())
	s.usb = nil
	return s
}

func TestScanner_Simulation(t *testing.T) {
	s := newScanner(ScannerConfig{Device: "simulation", Model: "QL-810W"}, &countingProber{})
	r := s.Report(context.Background())

	require.NotNil(t, r.Selected)
	assert.Equal(t, "simulation", *r.Selected)
	assert.Equal(t, "Simulator", r.StatusType)
	assert.True(t, r.RedSupport)
	assert.Len(t, r.Printers, 1)
}

func TestScanner_TCP(t *testing.T) {
	s := newScanner(ScannerConfig{Device: "tcp://10.0.0.5:9100", Model: "QL-720NW", Simulation: true}, &countingProber{})
	r := s.Report(context.Background())

	assert.Equal(t, "Unknown", r.StatusType)
	require.Len(t, r.Printers, 2)
	assert.Equal(t, "tcp://10.0.0.5:9100", r.Printers[0].Path)
	assert.Equal(t, "Network Printer", r.Printers[0].StatusType)
	assert.Equal(t, "simulation", r.Printers[1].Path)
}

func TestScanner_AutoSkipsRegularFiles(t *testing.T) {
	plain := filepath.Join(t.TempDir(), "lp0")
	require.NoError(t, os.WriteFile(plain, nil, 0o644))

	prober := &countingProber{model: "QL-700"}
	s := newScanner(ScannerConfig{Device: "?", Model: "QL-500", LinePrinters: []string{plain, "/missing/lp1"}}, prober)
	r := s.Report(context.Background())

	assert.Zero(t, prober.calls)
	assert.Nil(t, r.Selected)
	assert.Equal(t, "Offline", r.StatusType)
	assert.Equal(t, []string{"No compatible printer detected"}, r.Errors)
	assert.Empty(t, r.Printers)
}

func TestScanner_AutoCachesAndResets(t *testing.T) {
	prober := &countingProber{model: "QL-700"}
	s := newScanner(ScannerConfig{Device: "?", Model: "QL-500", LinePrinters: []string{"/dev/null"}}, prober)

	now := time.Now()
	s.cache = cache.NewTTLCache[string, ScanResult]().WithClock(func() time.Time { return now })

	r := s.Report(context.Background())
	require.NotNil(t, r.Selected)
	assert.Equal(t, "file:///dev/null", *r.Selected)
	assert.Equal(t, "QL-700", r.Model)
	require.Len(t, r.ScanLog, 1)
	assert.True(t, r.ScanLog[0].Found)

	s.Report(context.Background())
	assert.Equal(t, 1, prober.calls)

	now = now.Add(ScanTTL + time.Second)
	s.Report(context.Background())
	assert.Equal(t, 2, prober.calls)

	s.Reset()
	s.Report(context.Background())
	assert.Equal(t, 3, prober.calls)
}

func TestScanner_AutoFallbackEntry(t *testing.T) {
	prober := &countingProber{err: errors.New("permission denied")}
	s := newScanner(ScannerConfig{Device: "?", Model: "QL-800", Simulation: true, LinePrinters: []string{"/dev/null"}}, prober)
	r := s.Report(context.Background())

	require.Len(t, r.Printers, 2)
	first := r.Printers[0]
	assert.Equal(t, "file:///dev/null", first.Path)
	assert.Equal(t, "QL-800", first.Model)
	assert.True(t, first.RedSupport)
	assert.Equal(t, []string{"permission denied"}, first.Errors)
	assert.Equal(t, "simulation", r.Printers[1].Path)

	require.Len(t, r.ScanLog, 1)
	require.NotNil(t, r.ScanLog[0].Error)
	assert.Equal(t, "permission denied", *r.ScanLog[0].Error)
}

func TestScanner_ExplicitDevice(t *testing.T) {
	prober := &countingProber{model: "QL-820NWB"}
	s := newScanner(ScannerConfig{Device: "file:///dev/usb/lp3", Model: "QL-500"}, prober)
	r := s.Report(context.Background())
	assert.Equal(t, "file:///dev/usb/lp3", *r.Selected)
	assert.True(t, r.RedSupport)

	prober.err = errors.New("no such device")
	r = s.Report(context.Background())
	assert.Equal(t, []string{"no such device"}, r.Errors)
	assert.Nil(t, r.Selected)
}

func TestMonitor_ReportsChanges(t *testing.T) {
	prober := &countingProber{model: "QL-700"}
	s := newScanner(ScannerConfig{Device: "?", LinePrinters: []string{"/dev/null"}}, prober)
	m := NewMonitor(s, time.Minute, zap.NewNop())

	var added, removed []string
	m.OnPrinterAdded(func(st Status) { added = append(added, st.Path) })
	m.OnPrinterRemoved(func(path string) { removed = append(removed, path) })

	m.Check(context.Background())
	assert.Equal(t, []string{"file:///dev/null"}, added)

	m.Check(context.Background())
	assert.Len(t, added, 1)

	s.cfg.LinePrinters = []string{"/missing/lp0"}
	m.Check(context.Background())
	assert.Equal(t, []string{"file:///dev/null"}, removed)
}
