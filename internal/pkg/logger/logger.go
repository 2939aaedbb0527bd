// Package logger provides structured JSON logging with PII redaction.
//
// The process owns exactly one logger. Init starts a background flush
// worker; Shutdown drains it. Both are safe to call once per process
// lifetime; entries logged before Init or after Shutdown are written
// synchronously.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config string to a Level. Unknown strings mean INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured JSON logging with optional PII redaction.
// Entries are handed to a background flush worker once Init has run.
type Logger struct {
	level     Level
	redactPII bool

	writeMu sync.Mutex
	out     io.Writer

	mu      sync.Mutex
	entries chan []byte
	done    chan struct{}
}

var (
	defaultLogger = &Logger{level: INFO, redactPII: true, out: os.Stderr}
	initOnce      sync.Once
)

// Init configures the default logger and starts its flush worker.
// Only the first call has any effect.
func Init(level Level, redactPII bool) {
	initOnce.Do(func() {
		defaultLogger.level = level
		defaultLogger.redactPII = redactPII
		defaultLogger.mu.Lock()
		defaultLogger.entries = make(chan []byte, 1024)
		defaultLogger.done = make(chan struct{})
		defaultLogger.mu.Unlock()
		go defaultLogger.flushLoop()
	})
}

// Shutdown stops the flush worker after draining buffered entries.
// It returns early if ctx expires first. Logging after Shutdown falls back
// to synchronous writes.
func Shutdown(ctx context.Context) error {
	defaultLogger.mu.Lock()
	entries := defaultLogger.entries
	defaultLogger.entries = nil
	defaultLogger.mu.Unlock()
	if entries == nil {
		return nil
	}
	close(entries)
	select {
	case <-defaultLogger.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Logger) flushLoop() {
	for data := range l.entries {
		l.write(data)
	}
	close(l.done)
}

func (l *Logger) write(data []byte) {
	l.writeMu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.writeMu.Unlock()
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}

	// Fields arrive as alternating key/value pairs.
	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		if l.redactPII {
			val = redactPIIValue(key, val)
		}
		entry[key] = val
	}

	data, _ := json.Marshal(entry)

	l.mu.Lock()
	ch := l.entries
	if ch == nil {
		l.mu.Unlock()
		l.write(data)
		return
	}
	select {
	case ch <- data:
	default:
		// Buffer full: drop rather than block a request on logging.
	}
	l.mu.Unlock()
}
