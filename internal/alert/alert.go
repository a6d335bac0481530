// Package alert keeps the transient, user-visible notifications of a session.
package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is how the presentation layer renders an alert
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	// LevelOpenLink asks the browser to open Link in a new tab
	LevelOpenLink Level = "open_link"
)

// DefaultCapacity bounds how many undrained alerts a feed keeps
const DefaultCapacity = 50

// Alert is a single notification
type Alert struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier raises alerts
type Notifier interface {
	Info(message string)
	Success(message string)
	Error(message string)
	OpenLink(message, link string)
}

// Feed is a bounded per-session alert queue. The oldest alert is dropped
// when the queue is full.
type Feed struct {
	mu       sync.Mutex
	alerts   []Alert
	capacity int
}

// NewFeed creates a feed holding up to capacity alerts
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{capacity: capacity}
}

func (f *Feed) Info(message string)    { f.push(LevelInfo, message, "") }
func (f *Feed) Success(message string) { f.push(LevelSuccess, message, "") }
func (f *Feed) Error(message string)   { f.push(LevelError, message, "") }

func (f *Feed) OpenLink(message, link string) {
	f.push(LevelOpenLink, message, link)
}

// Drain returns pending alerts, oldest first, and empties the feed
func (f *Feed) Drain() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.alerts
	f.alerts = nil
	if out == nil {
		return []Alert{}
	}
	return out
}

// Pending returns a copy of the queued alerts without removing them
func (f *Feed) Pending() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Alert, len(f.alerts))
	copy(out, f.alerts)
	return out
}

func (f *Feed) push(level Level, message, link string) {
	a := Alert{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.alerts) >= f.capacity {
		f.alerts = f.alerts[1:]
	}
	f.alerts = append(f.alerts, a)
}

// Discard drops every alert
var Discard Notifier = discard{}

type discard struct{}

func (discard) Info(string)             {}
func (discard) Success(string)          {}
func (discard) Error(string)            {}
func (discard) OpenLink(string, string) {}
