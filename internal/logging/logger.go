// Package logging provides the leveled logger used across the service.
// Backends are thin adapters over zap and logrus.
package logging

import (
	"fmt"
	"strings"
)

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. A nil Logger is never passed around;
// use Nop when logging is not wanted.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// Nop discards everything.
var Nop Logger = NopLogger{}

const (
	BackendZap    = "zap"
	BackendLogrus = "logrus"
)

// Options selects and tunes a backend.
type Options struct {
	Backend string // "zap" (default) or "logrus"
	Level   string // debug, info, warn, error
}

// New builds a Logger for the configured backend. The returned sync func
// flushes buffered entries and should be called before exit.
func New(opts Options) (Logger, func(), error) {
	level := strings.ToLower(strings.TrimSpace(opts.Level))
	if level == "" {
		level = "info"
	}
	switch strings.ToLower(opts.Backend) {
	case "", BackendZap:
		return newZap(level)
	case BackendLogrus:
		return newLogrus(level)
	default:
		return nil, nil, fmt.Errorf("unknown log backend: %s", opts.Backend)
	}
}
