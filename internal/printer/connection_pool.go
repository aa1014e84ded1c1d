package printer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Connection is a unified interface for all transports
type Connection interface {
	io.Writer
	Close() error
}

// DialFunc opens a connection for a device, ext is the spool file extension
type DialFunc func(ctx context.Context, d Device, ext string) (Connection, error)

// Dial opens the transport a device descriptor names
func Dial(ctx context.Context, d Device, ext string) (Connection, error) {
	switch d.Kind {
	case KindTCP:
		return ConnectNetwork(ctx, d.Host)
	case KindUSB:
		return ConnectUSB(d.VID, d.PID)
	case KindSerial:
		return ConnectSerial(d.Path, d.Baud)
	case KindFile:
		return ConnectFile(d.Path)
	case KindSpool:
		return ConnectSpool(d.Path, ext)
	default:
		return nil, fmt.Errorf("unsupported printer type: %s", d.Kind)
	}
}

// Pool keeps one open connection per device descriptor
type Pool struct {
	connections map[string]Connection
	dial        DialFunc
	log         *zap.Logger
	mu          sync.Mutex
}

// NewPool creates a pool, a nil dial uses Dial
func NewPool(dial DialFunc, log *zap.Logger) *Pool {
	if dial == nil {
		dial = Dial
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		connections: make(map[string]Connection),
		dial:        dial,
		log:         log.Named("pool"),
	}
}

func (p *Pool) connect(ctx context.Context, d Device, ext string) (Connection, error) {
	if conn, ok := p.connections[d.Spec]; ok {
		return conn, nil
	}
	conn, err := p.dial(ctx, d, ext)
	if err != nil {
		return nil, err
	}
	p.connections[d.Spec] = conn
	return conn, nil
}

// Send writes data to the device. A failed write on a reused connection
// is retried once on a fresh one.
func (p *Pool) Send(ctx context.Context, d Device, ext string, data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, reused := p.connections[d.Spec]
	for attempt := 0; ; attempt++ {
		conn, err := p.connect(ctx, d, ext)
		if err != nil {
			return 0, err
		}
		n, err := conn.Write(data)
		if err == nil {
			return n, nil
		}
		p.drop(d.Spec)
		if !reused || attempt > 0 || ctx.Err() != nil {
			return n, fmt.Errorf("failed to write to %s printer: %w", d.Kind, err)
		}
		p.log.Warn("stale printer connection, redialing", zap.String("device", d.Spec), zap.Error(err))
	}
}

func (p *Pool) drop(spec string) {
	if conn, ok := p.connections[spec]; ok {
		_ = conn.Close()
		delete(p.connections, spec)
	}
}

// Disconnect closes a device connection
func (p *Pool) Disconnect(spec string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drop(spec)
}

// DisconnectAll closes all connections
func (p *Pool) DisconnectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for spec := range p.connections {
		p.drop(spec)
	}
}

// IsConnected checks for an open connection
func (p *Pool) IsConnected(spec string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.connections[spec]
	return ok
}
