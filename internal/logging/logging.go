// Package logging builds the zap loggers shared by the service, the HTTP host
// and the CLI.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and encoding of the process logger.
type Config struct {
	Level string
	// Development switches to the human-readable console encoder.
	Development bool
}

// ParseLevel maps a textual level onto a zap level. Empty means info.
func ParseLevel(raw string) (zapcore.Level, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", raw, err)
	}
	return lvl, nil
}

// New builds the process logger.
func New(cfg Config) (*zap.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// NewWriter builds a JSON logger that writes to w, for commands whose output
// is captured and for tests.
func NewWriter(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
