package config

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8013", cfg.Addr())
	assert.Equal(t, "QL-500", cfg.Printer.Model)
	assert.Equal(t, "?", cfg.Printer.Device)
	assert.False(t, cfg.Printer.Simulation)
	assert.Equal(t, "escpos", cfg.Printer.Protocol)
	assert.Equal(t, "62", cfg.Label.Size)
	assert.Equal(t, 70, cfg.Label.FontSize)
	assert.Equal(t, "DejaVu Serif", cfg.Label.FontFamily)
	assert.Equal(t, "Book", cfg.Label.FontStyle)
	assert.Equal(t, 24, cfg.Label.MarginTop)
	assert.Equal(t, 35, cfg.Label.MarginRight)
	assert.Equal(t, "./labels", cfg.RepositoryDir)
	assert.True(t, cfg.FontBuiltin)
	assert.Equal(t, 2.0, cfg.PrintRateLimit)
	assert.False(t, cfg.Development())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"SERVER_PORT":        "9000",
		"APP_ENV":            "Development",
		"PRINTER_SIMULATION": "Yes",
		"PRINTER_PROTOCOL":   "png",
		"FONT_BUILTIN":       "0",
		"PRINT_RATE_LIMIT":   "0.5",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Development())
	assert.True(t, cfg.Printer.Simulation)
	assert.Equal(t, "png", cfg.Printer.Protocol)
	assert.False(t, cfg.FontBuiltin)
	assert.Equal(t, 0.5, cfg.PrintRateLimit)
}

func TestFromEnv_Invalid(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"SERVER_PORT": "http"}))
	assert.EqualError(t, err, `invalid value for SERVER_PORT: "http"`)

	_, err = FromEnv(envMap(map[string]string{"LABEL_DEFAULT_ORIENTATION": "sideways"}))
	assert.ErrorContains(t, err, "must be standard or rotated")

	_, err = FromEnv(envMap(map[string]string{"PRINTER_PROTOCOL": "zpl"}))
	assert.ErrorContains(t, err, "invalid printer protocol")
}

func TestParseFlags(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	err = cfg.ParseFlags(fs, []string{"--port", "8080", "--model", "QL-820NWB", "--headless", "tcp://192.168.1.20"})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "QL-820NWB", cfg.Printer.Model)
	assert.True(t, cfg.Server.Headless)
	assert.Equal(t, "tcp://192.168.1.20", cfg.Printer.Device)

	fs = flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	assert.Error(t, cfg.ParseFlags(fs, []string{"--default-orientation", "upside"}))
}
