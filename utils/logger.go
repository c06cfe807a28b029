package utils

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger provides leveled printf-style logging on top of zerolog.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger writes JSON lines, or a human-friendly console format when env is
// "dev". Error and fatal lines go to stderr, the rest to stdout. level is a
// zerolog level name and defaults to info.
func NewLogger(env, level string) *Logger {
	var out, errOut io.Writer = os.Stdout, os.Stderr
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}
		errOut = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}
	}
	return newLogger(levelSplitWriter{out: out, err: errOut}, level)
}

func newLogger(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return &Logger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// levelSplitWriter routes error and above to err.
type levelSplitWriter struct {
	out io.Writer
	err io.Writer
}

func (w levelSplitWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w levelSplitWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l >= zerolog.ErrorLevel && l != zerolog.NoLevel {
		return w.err.Write(p)
	}
	return w.out.Write(p)
}

// NewNopLogger discards everything. Used in tests.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that adds key=value to every line.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}
