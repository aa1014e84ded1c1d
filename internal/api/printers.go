package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereceipt/label-designer/internal/power"
	"github.com/thereceipt/label-designer/internal/printer"
)

func (s *Server) report(c *gin.Context) printer.Report {
	r := s.deps.Scanner.Report(c.Request.Context())
	if s.deps.Metrics != nil {
		s.deps.Metrics.SetPrinters(len(r.Printers))
	}
	return r
}

func (s *Server) handlePrinterStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.report(c))
}

func (s *Server) handlePrinterRescan(c *gin.Context) {
	s.deps.Scanner.Reset()
	c.JSON(http.StatusOK, s.report(c))
}

func (s *Server) handlePowerStatus(c *gin.Context) {
	if s.deps.Power == nil || !s.deps.Power.Configured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": power.ErrNotConfigured.Error()})
		return
	}
	state, err := s.deps.Power.State(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get printer power status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (s *Server) handlePowerToggle(c *gin.Context) {
	if s.deps.Power == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": power.ErrNotConfigured.Error()})
		return
	}
	err := s.deps.Power.Toggle(c.Request.Context())
	switch {
	case errors.Is(err, power.ErrNotConfigured):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle printer power"})
	default:
		c.JSON(http.StatusOK, gin.H{"result": "success"})
	}
}
