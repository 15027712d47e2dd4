// Package notify surfaces user-visible messages (the toast equivalent) with
// identifier based de-duplication: showing a notification whose ID is already
// active replaces it instead of stacking a second copy.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/pkg/incident"
)

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a single user-visible message.
type Notification struct {
	ID      string
	Level   Level
	Message string
	Time    time.Time
}

// Notifier accepts notifications.
type Notifier interface {
	Notify(n Notification)
}

// Sink receives every notification the Center shows, including replacements.
type Sink func(Notification)

// StepValidationID is the stable identifier used for a step's validation
// failure so repeated failures replace each other.
func StepValidationID(step incident.Step) string {
	return fmt.Sprintf("validation-step-%d", int(step))
}

// Center tracks active notifications and fans them out to sinks.
type Center struct {
	mu     sync.Mutex
	active []Notification
	sinks  []Sink
	now    func() time.Time
}

// Option configures a Center.
type Option func(*Center)

// WithSink registers a sink.
func WithSink(s Sink) Option {
	return func(c *Center) {
		if s != nil {
			c.sinks = append(c.sinks, s)
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Center) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCenter constructs an empty Center.
func NewCenter(options ...Option) *Center {
	c := &Center{now: time.Now}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Notify shows n. An active notification with the same non-empty ID is
// replaced in place.
func (c *Center) Notify(n Notification) {
	if c == nil {
		return
	}
	n.ID = strings.TrimSpace(n.ID)
	n.Message = strings.TrimSpace(n.Message)
	if n.Level == "" {
		n.Level = LevelInfo
	}

	c.mu.Lock()
	if n.Time.IsZero() {
		n.Time = c.now()
	}
	replaced := false
	if n.ID != "" {
		for i := range c.active {
			if c.active[i].ID == n.ID {
				c.active[i] = n
				replaced = true
				break
			}
		}
	}
	if !replaced {
		c.active = append(c.active, n)
	}
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.Unlock()

	for _, sink := range sinks {
		sink(n)
	}
}

// Dismiss removes the notification with id.
func (c *Center) Dismiss(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.active[:0]
	for _, n := range c.active {
		if n.ID != id {
			out = append(out, n)
		}
	}
	c.active = out
}

// Clear removes every active notification.
func (c *Center) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
}

// Active returns a snapshot of the active notifications in arrival order.
func (c *Center) Active() []Notification {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.active...)
}

// LogSink writes notifications to logger.
func LogSink(logger *zap.Logger) Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(n Notification) {
		fields := []zap.Field{
			zap.String("id", n.ID),
			zap.String("level", string(n.Level)),
		}
		switch n.Level {
		case LevelError:
			logger.Warn(n.Message, fields...)
		default:
			logger.Info(n.Message, fields...)
		}
	}
}

// WriterSink prints notifications as single lines, for terminals.
func WriterSink(w io.Writer) Sink {
	return func(n Notification) {
		if w == nil {
			return
		}
		fmt.Fprintf(w, "[%s] %s\n", strings.ToUpper(string(n.Level)), n.Message)
	}
}
