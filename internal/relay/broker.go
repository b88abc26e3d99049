// Package relay streams rendered diff reports to SSE and WebSocket clients.
package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/diffjam/internal/session"
)

const subscriberBufSize = 256

// Event is one report notification on the wire.
type Event struct {
	Session string
	Data    string
}

// Broker fans out events to every subscriber. Slow subscribers lose events
// instead of blocking publishers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      atomic.Int64
	dropped     atomic.Int64
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int64]chan Event)}
}

// Subscribe returns an ID for Unsubscribe and a buffered event channel.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// PublishReport encodes a session event as JSON and publishes it. It has the
// session.Listener signature.
func (b *Broker) PublishReport(evt session.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("Failed to encode report event", "session_id", evt.SessionID, "error", err)
		return
	}
	b.Publish(Event{Session: evt.SessionID, Data: string(data)})
}

func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped counts events lost to full subscriber buffers.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}
