// Package logging builds the process logger from config.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"go.elastic.co/ecszerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatECS     = "ecs"
)

// New returns a logger writing to w. format is console, json or ecs (Elastic
// Common Schema); an empty level means info.
func New(w io.Writer, format, level, service string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}

	var base zerolog.Logger
	switch strings.ToLower(format) {
	case FormatConsole:
		base = zerolog.New(zerolog.ConsoleWriter{Out: w})
	case FormatJSON, "":
		base = zerolog.New(w)
	case FormatECS:
		base = ecszerolog.New(w)
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	return base.Level(lvl).With().Timestamp().Str("service", service).Logger(), nil
}
