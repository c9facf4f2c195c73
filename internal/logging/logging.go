// Package logging builds the charmbracelet/log logger shared by the store,
// the services and the watcher.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means warn.
	Level string

	// Format is one of text, json, logfmt. Empty means text.
	Format string

	// File, when set, receives a copy of every line. It is rotated by
	// size.
	File string

	// MaxSizeMB, MaxBackups and MaxAgeDays tune rotation of File. Zero
	// values use the defaults below.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	ReportTimestamp bool
	Prefix          string

	// Output is the console writer. Defaults to os.Stderr.
	Output io.Writer
}

// Rotation defaults for the log file.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// Logger is a logger together with the file it may own.
type Logger struct {
	*log.Logger
	file *lumberjack.Logger
}

// New returns a logger for opts. Close releases the log file.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	formatter, err := ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	if opts.Output != nil {
		w = opts.Output
	}
	l := &Logger{}
	if opts.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, DefaultMaxBackups),
			MaxAge:     orDefault(opts.MaxAgeDays, DefaultMaxAgeDays),
		}
		w = io.MultiWriter(w, l.file)
	}

	l.Logger = log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: opts.ReportTimestamp || opts.File != "",
		Prefix:          opts.Prefix,
	})
	return l, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a level name to a log level. Empty means warn.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return log.WarnLevel, nil
	case "warning":
		return log.WarnLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", s)
	}
	return lvl, nil
}

// ParseFormat maps a format name to a formatter. Empty means text.
func ParseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return 0, fmt.Errorf("invalid log format %q (valid: text, json, logfmt)", s)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
