// SPDX-License-Identifier: MPL-2.0

package events

import (
	"sync"
	"sync/atomic"
)

type (
	// Envelope wraps an event with the channel it was published on. Payload
	// is an OutputEvent or a CompletionEvent.
	Envelope struct {
		Channel string `json:"channel"`
		Payload any    `json:"payload"`
	}

	// Hub is a Sink that broadcasts events to any number of subscribers over
	// the named channels ChannelOutput and ChannelComplete. Each subscriber
	// sees the events of one invocation in publish order. A subscriber whose
	// buffer is full misses output lines, but never a completion: the oldest
	// queued output is evicted to make room for it.
	Hub struct {
		mu      sync.RWMutex
		nextID  uint64
		subs    map[uint64]*subscription
		dropped atomic.Uint64
	}

	subscription struct {
		mu     sync.Mutex
		ch     chan Envelope
		quit   chan struct{}
		closed bool
	}
)

// NewHub creates a Hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscription)}
}

// Subscribe registers a subscriber with the given channel buffer. The
// returned cancel func unregisters it and closes the channel; it is safe to
// call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Envelope, func()) {
	if buffer < 1 {
		buffer = 1
	}
	sub := &subscription{ch: make(chan Envelope, buffer), quit: make(chan struct{})}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		// First, so a completion blocked on a buffer full of completions
		// releases the hub lock it holds.
		once.Do(func() { close(sub.quit) })

		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()

		sub.mu.Lock()
		defer sub.mu.Unlock()
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many envelopes were discarded because a subscriber's
// buffer was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// PublishOutput implements Sink.
func (h *Hub) PublishOutput(e OutputEvent) {
	h.broadcast(Envelope{Channel: ChannelOutput, Payload: e})
}

// PublishCompletion implements Sink.
func (h *Hub) PublishCompletion(e CompletionEvent) {
	h.broadcast(Envelope{Channel: ChannelComplete, Payload: e})
}

func (h *Hub) broadcast(env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		sub.send(env, &h.dropped)
	}
}

func (s *subscription) send(env Envelope, dropped *atomic.Uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- env:
		return
	default:
	}
	if env.Channel != ChannelComplete {
		dropped.Add(1)
		return
	}

	s.evictOutput(dropped)
	select {
	case s.ch <- env:
	case <-s.quit:
	}
}

// evictOutput frees one slot by discarding the oldest queued output line.
// Completions ahead of it are requeued in their original order. s.mu must be
// held, so no other sender can take the freed slots.
func (s *subscription) evictOutput(dropped *atomic.Uint64) {
	var kept []Envelope
evict:
	for {
		select {
		case old := <-s.ch:
			if old.Channel == ChannelOutput {
				dropped.Add(1)
				break evict
			}
			kept = append(kept, old)
		default:
			break evict
		}
	}
	for _, env := range kept {
		s.ch <- env
	}
}
