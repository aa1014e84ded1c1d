// Package logger builds the service's zap logger and gin request logging
package logger

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects encoder and level
type Options struct {
	Development bool
	Level       string
	// Tee receives a console-encoded copy of every entry, e.g. the dashboard log panel
	Tee io.Writer
	// TeeOnly drops the stderr output, used while the dashboard owns the terminal
	TeeOnly bool
}

// ParseLevel maps debug/info/warn/error onto zap levels
func ParseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}

// New creates the root logger
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if opts.Level != "" {
		l, err := ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level = l
	} else if opts.Development {
		level = zapcore.DebugLevel
	}

	if opts.Tee != nil && opts.TeeOnly {
		return zap.New(teeCore(opts.Tee, level), zap.AddCaller()), nil
	}

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if opts.Tee == nil {
		return log, nil
	}

	tee := teeCore(opts.Tee, level)
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, tee)
	})), nil
}

func teeCore(w io.Writer, level zapcore.Level) zapcore.Core {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
}
