// Package logger builds the zap logger shared by the service and the CLI.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys used across the pipeline
const (
	FieldUnitID  = "unit_id"
	FieldCodexID = "codex_id"
	FieldBatchID = "batch_id"
	FieldPass    = "pass"
)

// New builds a logger writing to stdout. json selects the JSON encoder,
// debug lowers the level to debug.
func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "msg",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	return cfg.Build()
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Unit returns l annotated with the unit and codex ids
func Unit(l *zap.Logger, unitID, codexID string) *zap.Logger {
	return OrNop(l).With(zap.String(FieldUnitID, unitID), zap.String(FieldCodexID, codexID))
}

// Truncate shortens s to limit runes, appending an ellipsis when truncated.
// Source documents and model output go through here before being logged.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
