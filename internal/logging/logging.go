// Package logging builds the zap logger shared by every component.
//
// The popup owns the terminal while it runs, so its logs must go to a file;
// the agent logs to stderr unless a file is configured.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/idilsaglam/issuestash/internal/config"
)

// DefaultPopupLogFile is used by the popup when logging.file is unset.
const DefaultPopupLogFile = "~/.issuestash/popup.log"

// New builds a production JSON logger at cfg.Level writing to cfg.File,
// or to fallback when cfg.File is empty. An empty fallback means stderr.
func New(cfg config.LoggingConfig, fallback string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	out := cfg.File
	if out == "" {
		out = fallback
	}
	if out == "" {
		out = "stderr"
	} else if out != "stderr" && out != "stdout" {
		out, err = config.ExpandPath(out)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{out}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
