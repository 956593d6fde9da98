// Package bus is a process-wide named-event publish/subscribe facility. It is
// the indirection layer that lets overlay triggers arrive either as direct
// method calls or as named events without the two styles diverging.
package bus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives the payload published on a topic.
type Handler func(payload any)

// Subscription is the handle returned by Subscribe. Callers keep it to
// unsubscribe later; the bus never enumerates handles on a caller's behalf.
type Subscription struct {
	topic string
	seq   uint64
	fn    Handler
}

// Topic returns the topic this subscription is attached to.
func (s *Subscription) Topic() string { return s.topic }

// Bus dispatches published payloads to subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	topics map[string][]*Subscription
	nextID uint64
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Bus {
	return &Bus{
		topics: make(map[string][]*Subscription),
		log:    log,
	}
}

// Subscribe registers fn on topic and returns its handle.
func (b *Bus) Subscribe(topic string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{topic: topic, seq: b.nextID, fn: fn}
	b.topics[topic] = append(b.topics[topic], sub)
	return sub
}

// Unsubscribe removes the handle. Removing an already-removed or nil handle
// is a no-op; unsubscribing must never be scoped wider than the one handle.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[sub.topic]
	if !ok {
		return
	}
	for i, s := range subs {
		if s == sub {
			b.topics[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.topics[sub.topic]) == 0 {
		delete(b.topics, sub.topic)
	}
}

// Publish invokes every handler currently subscribed to topic, synchronously
// and in subscription order. A panicking handler is isolated and logged; the
// remaining handlers still run.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := make([]*Subscription, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.dispatch(topic, sub, payload)
	}
}

func (b *Bus) dispatch(topic string, sub *Subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("topic", topic).Any("panic", r).Msg("event handler fault")
		}
	}()
	sub.fn(payload)
}

// SubscriberCount reports how many handlers are attached to topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
