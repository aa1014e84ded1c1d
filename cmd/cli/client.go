package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thereceipt/label-designer/pkg/labelformat"
)

const apiPrefix = "/labeldesigner/api"

// client talks to a running label designer server
type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	return &client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 2 * time.Minute},
	}
}

// apiError is a non-2xx reply
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &apiError{Status: resp.StatusCode, Message: replyMessage(data)}
	}
	return data, nil
}

// replyMessage extracts message or error from a JSON reply
func replyMessage(data []byte) string {
	var reply struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &reply) == nil {
		if reply.Message != "" {
			return reply.Message
		}
		if reply.Error != "" {
			return reply.Error
		}
	}
	return strings.TrimSpace(string(data))
}

func (c *client) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// printerStatus mirrors the /printer_status reply
type printerStatus struct {
	Model      string   `json:"model"`
	Path       string   `json:"path"`
	StatusType string   `json:"status_type"`
	MediaWidth *int     `json:"media_width"`
	Selected   *string  `json:"selected"`
	RedSupport bool     `json:"red_support"`
	Errors     []string `json:"errors"`
	Printers   []struct {
		Model      string   `json:"model"`
		Path       string   `json:"path"`
		StatusType string   `json:"status_type"`
		MediaWidth *int     `json:"media_width"`
		Errors     []string `json:"errors"`
	} `json:"printers"`
}

func (c *client) status(ctx context.Context, rescan bool) (*printerStatus, error) {
	var st printerStatus
	if rescan {
		data, err := c.do(ctx, http.MethodPost, apiPrefix+"/printer_rescan", "", nil)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &st, nil
	}
	return &st, c.getJSON(ctx, apiPrefix+"/printer_status", &st)
}

type savedLabel struct {
	Name      string  `json:"name"`
	Mtime     int64   `json:"mtime"`
	Size      int64   `json:"size"`
	LabelSize *string `json:"label_size"`
}

func (c *client) list(ctx context.Context) ([]savedLabel, error) {
	var reply struct {
		Files []savedLabel `json:"files"`
	}
	return reply.Files, c.getJSON(ctx, apiPrefix+"/repository/list", &reply)
}

type job struct {
	ID        string    `json:"id"`
	Device    string    `json:"device"`
	LabelSize string    `json:"label_size"`
	Labels    int       `json:"labels"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *client) jobs(ctx context.Context) ([]job, error) {
	var reply struct {
		Jobs []job `json:"jobs"`
	}
	return reply.Jobs, c.getJSON(ctx, "/api/jobs", &reply)
}

// labelForm is the label description sent as a multipart form
type labelForm struct {
	Lines     []labelformat.TextLineSpec
	Values    url.Values
	ImagePath string
}

func (f labelForm) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, values := range f.Values {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", err
			}
		}
	}
	if err := w.WriteField("text", labelformat.EncodeText(f.Lines)); err != nil {
		return nil, "", err
	}
	if f.ImagePath != "" {
		data, err := os.ReadFile(f.ImagePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read image: %w", err)
		}
		part, err := w.CreateFormFile("image", filepath.Base(f.ImagePath))
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *client) preview(ctx context.Context, form labelForm, format string) ([]byte, error) {
	body, contentType, err := form.encode()
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, apiPrefix+"/preview?return_format="+url.QueryEscape(format), contentType, body)
}

func (c *client) print(ctx context.Context, form labelForm) error {
	body, contentType, err := form.encode()
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, apiPrefix+"/print", contentType, body)
	return err
}

func (c *client) printSaved(ctx context.Context, name string, values url.Values) error {
	values.Set("name", name)
	_, err := c.do(ctx, http.MethodPost, apiPrefix+"/repository/print", "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
	return err
}
