package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrSubscriptionExists = errors.New("subscription name already in use")
	ErrUnknownEvent       = errors.New("unknown change event")
)

// Event is the kind of row change
type Event string

const (
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
)

// EventMask selects which events a binding receives
type EventMask uint8

const (
	MaskInsert EventMask = 1 << iota
	MaskUpdate
	MaskDelete

	MaskAll = MaskInsert | MaskUpdate | MaskDelete
)

// ParseEvent normalizes an event name as sent by the database trigger
func ParseEvent(s string) (Event, error) {
	switch e := Event(strings.ToUpper(s)); e {
	case EventInsert, EventUpdate, EventDelete:
		return e, nil
	}
	return "", ErrUnknownEvent
}

// Has reports whether the mask includes e
func (m EventMask) Has(e Event) bool {
	switch e {
	case EventInsert:
		return m&MaskInsert != 0
	case EventUpdate:
		return m&MaskUpdate != 0
	case EventDelete:
		return m&MaskDelete != 0
	}
	return false
}

// Change is a single row change notification
type Change struct {
	Event   Event           `json:"event"`
	Table   string          `json:"table"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Binding subscribes to events on one table
type Binding struct {
	Table string
	Mask  EventMask
}

// Matches reports whether c is selected by the binding
func (b Binding) Matches(c Change) bool {
	return b.Table == c.Table && b.Mask.Has(c.Event)
}

// Handler receives change notifications. It is called from the feed's
// dispatch goroutine and must not block.
type Handler func(Change)

// Subscription is a live registration on a ChangeFeed
type Subscription struct {
	Name     string
	Bindings []Binding
	handler  Handler
}

// NewSubscription builds a subscription value for ChangeFeed implementations
func NewSubscription(name string, bindings []Binding, handler Handler) *Subscription {
	return &Subscription{Name: name, Bindings: bindings, handler: handler}
}

// Deliver calls the handler if any binding matches
func (s *Subscription) Deliver(c Change) bool {
	for _, b := range s.Bindings {
		if b.Matches(c) {
			s.handler(c)
			return true
		}
	}
	return false
}

// ChangeFeed delivers row change notifications keyed by table
type ChangeFeed interface {
	Subscribe(ctx context.Context, name string, bindings []Binding, handler Handler) (*Subscription, error)
	Unsubscribe(sub *Subscription) error
}
