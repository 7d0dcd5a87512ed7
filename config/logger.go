package config

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger builds the logger of the commands.
//
// The server logs JSON lines; interactive commands log human readable lines to stderr.
func Logger(level string, interactive bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if interactive {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}
	cfg.Level = lvl
	return cfg.Build()
}
