package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("INFO")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_Tee(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Tee: &buf})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("printer connected", zap.String("path", "usb://0x04f9:0x209b"))
	_ = log.Sync()

	assert.Contains(t, buf.String(), "printer connected")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{Logger: zap.New(core), SkipPaths: []string{"/health"}}))
	r.GET("/ping", func(c *gin.Context) {
		assert.NotEmpty(t, RequestID(c))
		c.Status(http.StatusNoContent)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "abc-123", entries[1].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestNew_TeeOnly(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "warn", Tee: &buf, TeeOnly: true})
	require.NoError(t, err)

	log.Info("skipped")
	log.Warn("scan failed")
	assert.Contains(t, buf.String(), "scan failed")
	assert.NotContains(t, buf.String(), "skipped")
}
