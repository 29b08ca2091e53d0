// ABOUTME: Transient user-visible notifications raised by store operations
// ABOUTME: Notifier interface with terminal, slog, fan-out and recording implementations

package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

// Level is the severity of a notification.
type Level string

const (
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notifier surfaces short messages to the user.
type Notifier interface {
	Error(msg string)
	Success(msg string)
}

// Terminal prints notifications as coloured one-line toasts.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal creates a Terminal notifier writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Error(msg string) {
	t.write(color.New(color.FgRed, color.Bold).Sprint("✖ ") + msg)
}

func (t *Terminal) Success(msg string) {
	t.write(color.GreenString("✔ ") + msg)
}

func (t *Terminal) write(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

// Log records notifications in the structured log.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log notifier. Pass nil logger for default.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "notify")}
}

func (l *Log) Error(msg string)   { l.logger.Warn("notification", "kind", LevelError, "message", msg) }
func (l *Log) Success(msg string) { l.logger.Info("notification", "kind", LevelSuccess, "message", msg) }

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

// Notice is a recorded notification.
type Notice struct {
	Level   Level
	Message string
}

// Recorder keeps every notification in memory. Useful in tests and for
// views that render their own toast area.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }
func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: msg})
}

// Notices returns a copy of the recorded notifications.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Errors returns only the error messages, in order.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.Level == LevelError {
			out = append(out, n.Message)
		}
	}
	return out
}
