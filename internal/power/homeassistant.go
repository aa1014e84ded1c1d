// Package power switches the printer's power outlet through Home Assistant
package power

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when URL, token or entity id is missing
var ErrNotConfigured = errors.New("Home Assistant not configured")

// DefaultTimeout bounds every Home Assistant call
const DefaultTimeout = 5 * time.Second

// Config holds the Home Assistant connection
type Config struct {
	URL      string // API base, e.g. http://hass.local:8123/api
	Token    string
	EntityID string
}

// Configured reports whether all fields are set
func (c Config) Configured() bool {
	return c.URL != "" && c.Token != "" && c.EntityID != ""
}

// Client talks to the Home Assistant REST API
type Client struct {
	cfg     Config
	http    *http.Client
	onPower []func()
	log     *zap.Logger
}

// NewClient creates a client, httpClient may be nil
func NewClient(cfg Config, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{cfg: cfg, http: httpClient, log: log.Named("power")}
}

// OnToggle registers a callback run after a successful toggle
func (c *Client) OnToggle(fn func()) {
	c.onPower = append(c.onPower, fn)
}

// Configured reports whether the client can make calls
func (c *Client) Configured() bool { return c.cfg.Configured() }

// State returns the switch entity state, usually "on" or "off"
func (c *Client) State(ctx context.Context) (string, error) {
	if !c.cfg.Configured() {
		return "", ErrNotConfigured
	}
	var body struct {
		State string `json:"state"`
	}
	if err := c.do(ctx, http.MethodGet, "/states/"+c.cfg.EntityID, nil, &body); err != nil {
		c.log.Error("failed to get printer power status", zap.Error(err))
		return "", fmt.Errorf("failed to get printer power status: %w", err)
	}
	return body.State, nil
}

// Toggle flips the switch entity
func (c *Client) Toggle(ctx context.Context) error {
	if !c.cfg.Configured() {
		return ErrNotConfigured
	}
	payload := map[string]string{"entity_id": c.cfg.EntityID}
	if err := c.do(ctx, http.MethodPost, "/services/switch/toggle", payload, nil); err != nil {
		c.log.Error("failed to toggle printer power", zap.Error(err))
		return fmt.Errorf("failed to toggle printer power: %w", err)
	}
	c.log.Info("printer power toggled", zap.String("entity", c.cfg.EntityID))
	for _, fn := range c.onPower {
		fn()
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
