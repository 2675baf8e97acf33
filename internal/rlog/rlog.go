// Package rlog writes the server's operational log, DRISE_Server_Log.txt
// (§4.14). The core never names a structured-logging library, and nothing
// in the rest of the corpus pulls one in for a server-side text log either,
// so this follows the teacher's own habit of a stdlib *log.Logger writing
// prefixed lines (the same idiom as polycall_client.go's fmt.Printf error
// reporting, made persistent and leveled).
package rlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger serializes writes to the underlying *log.Logger; concurrent
// connection handlers (§5: "one handler thread per open client connection")
// all share one Logger instance.
type Logger struct {
	mu  sync.Mutex
	std *log.Logger
}

// Open creates or appends to path and returns a Logger writing to it.
func Open(path string) (*Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("rlog: open %s: %w", path, err)
	}
	return New(f), f.Close, nil
}

// New wraps an arbitrary writer, used by tests and by callers that want
// stderr instead of a file.
func New(w io.Writer) *Logger {
	return &Logger{std: log.New(w, "", log.LstdFlags)}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.std.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }
