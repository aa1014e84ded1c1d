package printer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// DialTimeout bounds tcp connects
const DialTimeout = 5 * time.Second

// NetworkConnection is a raw tcp printer connection
type NetworkConnection struct {
	conn net.Conn
	mu   sync.Mutex
}

// ConnectNetwork connects to host:port
func ConnectNetwork(ctx context.Context, address string) (*NetworkConnection, error) {
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to network printer: %w", err)
	}
	return &NetworkConnection{conn: conn}, nil
}

// Write sends data to the printer
func (c *NetworkConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return c.conn.Write(data)
}

// Close closes the connection
func (c *NetworkConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
