package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

var (
	mu      sync.RWMutex
	base    *slog.Logger
	logFile *os.File
)

const (
	INFO = iota
	DEBUG
)

func levelFor(level int) slog.Level {
	if level == DEBUG {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// InitLogger initializes the logger with console output and, when filename
// is non-empty, a second text handler appending to that file.
func InitLogger(filename string, level int) error {
	opts := &slog.HandlerOptions{Level: levelFor(level)}
	console := slog.NewTextHandler(os.Stdout, opts)

	if filename == "" {
		setBase(slog.New(console), nil)
		return nil
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file '%s': %w", filename, err)
	}

	setBase(slog.New(slogmulti.Fanout(console, slog.NewTextHandler(f, opts))), f)
	return nil
}

// SetOutput routes all log records to w. Intended for tests.
func SetOutput(w io.Writer, level int) {
	setBase(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelFor(level)})), nil)
}

func setBase(l *slog.Logger, f *os.File) {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	base = l
	logFile = f
	slog.SetDefault(l)
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func get() *slog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l == nil {
		return slog.Default()
	}
	return l
}


func Info(format string, v ...interface{}) {
	get().Info(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	Info(format, v...)
}

func Debug(format string, v ...interface{}) {
	get().Debug(fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) {
	Debug(format, v...)
}

func Error(format string, v ...interface{}) {
	get().Error(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	Error(format, v...)
}

func Warn(format string, v ...interface{}) {
	get().Warn(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	Warn(format, v...)
}
