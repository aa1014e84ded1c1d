package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thereceipt/label-designer/internal/config"
	"github.com/thereceipt/label-designer/internal/designer"
	"github.com/thereceipt/label-designer/internal/printer"
	"github.com/thereceipt/label-designer/internal/renderer"
	"github.com/thereceipt/label-designer/pkg/labelformat"
	"go.uber.org/zap"
)

// maxUpload bounds uploaded images
const maxUpload = 32 << 20

type labelSizeInfo struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Round      bool   `json:"round"`
	TapeSize   [2]int `json:"tape_size"`
	Red        bool   `json:"red"`
}

func (s *Server) handleConfig(c *gin.Context) {
	cfg := s.deps.Config
	family, style := s.deps.Fonts.Default()

	sizes := make([]labelSizeInfo, len(labelformat.AllSizes))
	for i, ls := range labelformat.AllSizes {
		sizes[i] = labelSizeInfo{ls.Identifier, ls.Name, ls.Round(), ls.TapeSize, ls.Red}
	}
	fontList := make(map[string][]string)
	for _, fam := range s.deps.Fonts.Families() {
		fontList[fam] = s.deps.Fonts.Styles(fam)
	}

	c.JSON(http.StatusOK, gin.H{
		"fonts":                 fontList,
		"label_sizes":           sizes,
		"default_label_size":    cfg.Label.Size,
		"default_font_size":     cfg.Label.FontSize,
		"default_orientation":   cfg.Label.Orientation,
		"default_qr_size":       cfg.Label.QRSize,
		"default_image_mode":    cfg.Label.ImageMode,
		"default_bw_threshold":  cfg.Label.BWThreshold,
		"default_font_family":   family,
		"default_font_style":    style,
		"line_spacings":         config.LineSpacings,
		"default_line_spacing":  cfg.Label.LineSpacing,
		"default_dpi":           config.HighResDPI,
		"default_margin_top":    cfg.Label.MarginTop,
		"default_margin_bottom": cfg.Label.MarginBottom,
		"default_margin_left":   cfg.Label.MarginLeft,
		"default_margin_right":  cfg.Label.MarginRight,
		"red_support":           printer.RedSupport(cfg.Printer.Model),
	})
}

// bindRequest reads a label request from a JSON body, a form or the query string.
// The "text" field carries the lines as a JSON encoded string in forms.
func bindRequest(c *gin.Context) (*labelformat.Request, *designer.Upload, error) {
	if c.ContentType() == gin.MIMEJSON {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read request: %w", err)
		}
		req, err := parseJSONRequest(body)
		return req, nil, err
	}

	req := labelformat.DefaultRequest()
	if err := c.ShouldBind(&req); err != nil {
		return nil, nil, fmt.Errorf("invalid request: %w", err)
	}
	raw, ok := c.GetPostForm("text")
	if !ok {
		raw = c.Query("text")
	}
	lines, err := labelformat.DecodeText(raw)
	if err != nil {
		return nil, nil, err
	}
	req.Text = lines
	req.Normalize()

	upload, err := formUpload(c)
	if err != nil {
		return nil, nil, err
	}
	return &req, upload, nil
}

// parseJSONRequest accepts text either as an array or as a JSON encoded string
func parseJSONRequest(body []byte) (*labelformat.Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse label request: %w", err)
	}
	if raw, ok := fields["text"]; ok {
		var encoded string
		if json.Unmarshal(raw, &encoded) == nil {
			lines, err := labelformat.DecodeText(encoded)
			if err != nil {
				return nil, err
			}
			fields["text"], _ = json.Marshal(lines)
			body, _ = json.Marshal(fields)
		}
	}
	return labelformat.Parse(body)
}

func formUpload(c *gin.Context) (*designer.Upload, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		// no file part
		return nil, nil
	}
	if fh.Size > maxUpload {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", renderer.ErrInvalidLabel, maxUpload)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return &designer.Upload{Filename: fh.Filename, Data: data}, nil
}

func returnFormat(c *gin.Context) string {
	if f, ok := c.GetPostForm("return_format"); ok {
		return f
	}
	return c.DefaultQuery("return_format", renderer.FormatPNG)
}

// render builds and encodes a preview, recording render metrics
func (s *Server) render(c *gin.Context, req *labelformat.Request, upload *designer.Upload) {
	format := returnFormat(c)
	start := time.Now()

	body, contentType, err := s.preview(req, upload, format)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveRender(format, time.Since(start), err)
	}
	if err != nil {
		s.log.Warn("preview failed", zap.Error(err))
		status := http.StatusBadRequest
		if errors.Is(err, labelformat.ErrTextTooLong) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"message": err.Error()})
		return
	}
	c.Data(http.StatusOK, contentType, body)
}

func (s *Server) preview(req *labelformat.Request, upload *designer.Upload, format string) ([]byte, string, error) {
	label, err := s.deps.Factory.BuildLabel(req, upload, 0)
	if err != nil {
		return nil, "", err
	}
	img, err := label.Generate(true)
	if err != nil {
		return nil, "", err
	}
	dpi := float64(config.DefaultDPI)
	if req.HighRes {
		dpi = config.HighResDPI
	}
	return renderer.Encode(img, format, dpi)
}

func (s *Server) handlePreview(c *gin.Context) {
	req, upload, err := bindRequest(c)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, labelformat.ErrTextTooLong) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"message": err.Error()})
		return
	}
	s.render(c, req, upload)
}

func (s *Server) handlePrint(c *gin.Context) {
	req, upload, err := bindRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	s.print(c, req, upload)
}

func (s *Server) print(c *gin.Context, req *labelformat.Request, upload *designer.Upload) {
	status, err := s.deps.Factory.Print(c.Request.Context(), req, upload, s.deps.Printer)
	if err != nil {
		s.log.Warn("print failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if status != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleBarcodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"barcodes": renderer.Symbologies()})
}
