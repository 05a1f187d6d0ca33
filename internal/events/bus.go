// Package events provides simple in-process pub/sub for observability.
package events

import (
	"sync"
	"time"
)

// Event kinds.
const (
	KindIngested   = "report_ingested"
	KindFailed     = "report_failed"
	KindGated      = "reconcile_gated"
	KindComputed   = "day_computed"
	KindNotifyFail = "notify_failed"
)

// Event is one pipeline lifecycle occurrence.
type Event struct {
	Kind     string    `json:"kind"`
	Date     string    `json:"date,omitempty"`
	Filename string    `json:"filename,omitempty"`
	Type     string    `json:"report_type,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Bus fans events out to subscribers and keeps a bounded ring of recent
// events for the ops surface.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	recent []Event
	size   int
}

func NewBus(ringSize int) *Bus {
	if ringSize <= 0 {
		ringSize = 64
	}
	return &Bus{size: ringSize}
}

func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	b.recent = append(b.recent, ev)
	if len(b.recent) > b.size {
		b.recent = b.recent[len(b.recent)-b.size:]
	}
	subs := b.subs
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Recent returns a copy of the ring, newest last.
func (b *Bus) Recent() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Event(nil), b.recent...)
}
