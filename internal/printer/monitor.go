package printer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Monitor rescans periodically and reports printers that appear or vanish
type Monitor struct {
	scanner  *Scanner
	interval time.Duration
	log      *zap.Logger

	onAdded   func(Status)
	onRemoved func(path string)

	previous map[string]Status
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor polling every interval
func NewMonitor(scanner *Scanner, interval time.Duration, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		scanner:  scanner,
		interval: interval,
		log:      log.Named("monitor"),
		previous: make(map[string]Status),
	}
}

// OnPrinterAdded sets the callback for new printers
func (m *Monitor) OnPrinterAdded(fn func(Status)) { m.onAdded = fn }

// OnPrinterRemoved sets the callback for vanished printers
func (m *Monitor) OnPrinterRemoved(fn func(path string)) { m.onRemoved = fn }

// Start begins polling until ctx is done or Stop is called
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Check(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Stop stops polling and waits for the loop to exit
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Check forces a rescan and fires callbacks for the differences
func (m *Monitor) Check(ctx context.Context) {
	m.scanner.Reset()
	res := m.scanner.Scan(ctx)

	current := make(map[string]Status, len(res.Printers))
	for _, p := range res.Printers {
		current[p.Path] = p
	}

	for path, p := range current {
		if _, ok := m.previous[path]; !ok {
			m.log.Info("printer added", zap.String("path", path), zap.String("model", p.Model))
			if m.onAdded != nil {
				m.onAdded(p)
			}
		}
	}
	for path := range m.previous {
		if _, ok := current[path]; !ok {
			m.log.Info("printer removed", zap.String("path", path))
			if m.onRemoved != nil {
				m.onRemoved(path)
			}
		}
	}
	m.previous = current
}
