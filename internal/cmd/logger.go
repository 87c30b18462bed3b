package cmd

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"reposync/pkg/config"
)

// newLogger builds the logger handed to the reconcilers. Auto format picks
// console output for terminals and JSON otherwise.
func newLogger(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var w io.Writer = out
	if useConsole(cfg.Format, out) {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(out),
		}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Str("app", "reposync").Logger()
}

func useConsole(format string, out io.Writer) bool {
	switch format {
	case "console":
		return true
	case "json":
		return false
	default:
		return isTerminal(out)
	}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
