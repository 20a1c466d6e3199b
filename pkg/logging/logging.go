package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

import (
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

const LogName = "area2waypoint.slog"

// Logger writes to the console and, when a log directory is given, to a
// rotated JSON file as well. In that case the console only gets warnings
// and errors. A nil *Logger discards everything.
type Logger struct {
	*slog.Logger
	console *slog.Logger
	LogFile string
	closer  io.Closer
	Start   time.Time
}

func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%s: invalid log level", level)
}

func console_handler(w io.Writer, fd uintptr, lvl slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: lvl}
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// New logs to stderr, text on a terminal and JSON otherwise.
func New(level string, dir string) (*Logger, error) {
	return NewWriter(os.Stderr, os.Stderr.Fd(), level, dir)
}

func NewWriter(w io.Writer, fd uintptr, level string, dir string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := &Logger{Start: time.Now()}
	if dir == "" {
		l.Logger = slog.New(console_handler(w, fd, lvl))
		return l, nil
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogName),
		MaxSize:    16, // MB
		MaxBackups: 2,
	}
	l.Logger = slog.New(slog.NewJSONHandler(lj, &slog.HandlerOptions{Level: lvl}))
	l.console = slog.New(console_handler(w, fd, max(lvl, slog.LevelWarn)))
	l.LogFile = lj.Filename
	l.closer = lj
	l.Logger.Info("Hello logging", slog.Time("start", l.Start),
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))
	return l, nil
}

func (l *Logger) Debugf(msg string, args ...any) {
	if l != nil {
		l.Logger.Debug(fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Infof(msg string, args ...any) {
	if l != nil {
		l.Logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *Logger) Warnf(msg string, args ...any) {
	if l == nil {
		return
	}
	s := fmt.Sprintf(msg, args...)
	l.Logger.Warn(s)
	if l.console != nil {
		l.console.Warn(s)
	}
}

func (l *Logger) Errorf(msg string, args ...any) {
	if l == nil {
		return
	}
	s := fmt.Sprintf(msg, args...)
	l.Logger.Error(s)
	if l.console != nil {
		l.console.Error(s)
	}
}

func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	nl := *l
	nl.Logger = l.Logger.With(args...)
	if l.console != nil {
		nl.console = l.console.With(args...)
	}
	return &nl
}

// Close flushes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	l.Logger.Info("Goodbye logging", slog.Duration("elapsed", time.Since(l.Start)))
	return l.closer.Close()
}
