package printer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileConnection writes to a device node such as /dev/usb/lp0
type FileConnection struct {
	f  *os.File
	mu sync.Mutex
}

// ConnectFile opens path for writing
func ConnectFile(path string) (*FileConnection, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open printer device: %w", err)
	}
	return &FileConnection{f: f}, nil
}

// Write sends data to the device
func (c *FileConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.f.Write(data)
}

// Close closes the device
func (c *FileConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.f.Close()
}

// SpoolConnection stores each write as its own file in a directory
type SpoolConnection struct {
	dir string
	ext string
	mu  sync.Mutex
}

// ConnectSpool prepares dir, ext names the payload format
func ConnectSpool(dir, ext string) (*SpoolConnection, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &SpoolConnection{dir: dir, ext: ext}, nil
}

// Write creates a new job file
func (c *SpoolConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := fmt.Sprintf("label-%s-%s.%s", time.Now().Format("20060102-150405"), uuid.NewString()[:8], c.ext)
	tmp := filepath.Join(c.dir, "."+name)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write spool file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(c.dir, name)); err != nil {
		return 0, fmt.Errorf("failed to write spool file: %w", err)
	}
	return len(data), nil
}

func (c *SpoolConnection) Close() error { return nil }
