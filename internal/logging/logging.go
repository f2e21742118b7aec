// Package logging builds the structured logger shared by every component.
package logging

import (
	"io"
	"log"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Options selects the level and encoding of the root logger.
type Options struct {
	Name   string
	Level  string
	JSON   bool
	Output io.Writer
}

// New constructs the root logger. Unknown levels fall back to info.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            opts.Name,
		Level:           level,
		Output:          out,
		JSONFormat:      opts.JSON,
		IncludeLocation: level <= hclog.Debug,
		TimeFormat:      "2006-01-02T15:04:05.000Z0700",
	})
}

// Discard returns a logger that drops everything; used by tests.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}

// Std adapts logger to a *log.Logger for libraries that only accept the
// standard library type. Lines are written at info level.
func Std(logger hclog.Logger) *log.Logger {
	return logger.StandardLogger(&hclog.StandardLoggerOptions{
		InferLevels: true,
		ForceLevel:  hclog.Info,
	})
}
