// Package notify defines transient, non-blocking user notifications
// (toast-style messages).
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Level is the notification severity.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Default display durations per level.
var defaultDurations = map[Level]time.Duration{
	LevelSuccess: 3 * time.Second,
	LevelInfo:    3 * time.Second,
	LevelWarning: 3500 * time.Millisecond,
	LevelError:   4 * time.Second,
}

// Notification is a single transient message.
type Notification struct {
	Level    Level
	Title    string
	Message  string
	Duration time.Duration
}

// Notifier delivers notifications. Implementations must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// New fills in the default duration for the level.
func New(level Level, title, message string) Notification {
	return Notification{Level: level, Title: title, Message: message, Duration: defaultDurations[level]}
}

// NetworkError is the connectivity notification.
func NetworkError() Notification {
	return New(LevelError, "Network Error", "Please check your internet connection")
}

// APIError is the generic failure notification.
func APIError(message string) Notification {
	if message == "" {
		message = "Please try again later"
	}
	return New(LevelError, "Something went wrong", message)
}

// LogNotifier writes notifications to a slog logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs n at a level matching its severity.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	lvl := slog.LevelInfo
	switch n.Level {
	case LevelWarning:
		lvl = slog.LevelWarn
	case LevelError:
		lvl = slog.LevelError
	}
	l.logger.Log(ctx, lvl, n.Title, "message", n.Message, "kind", string(n.Level))
}

// Recorder keeps every notification in memory. It is safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

// Notify records n.
func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Discard drops every notification.
type Discard struct{}

// Notify does nothing.
func (Discard) Notify(context.Context, Notification) {}
