package idle

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// shardCount determines how many independent subscriber sets the Hub keeps.
// Connections entering and leaving the Hub only contend with connections in
// the same shard; Publish visits every shard.
const shardCount = 16

// Subscriber is one connection's view of the event stream.
//
// A Subscriber is either Active (events only accumulate) or Waiting (the next
// matching event is handed to the connection through the channel returned
// by Wait). It is safe for concurrent use by its connection and any number of
// publishers.
type Subscriber struct {
	id string

	mu        sync.Mutex
	pending   Mask
	want      Mask
	waiting   bool
	lastFired Mask
	wake      chan Mask
}

// ID returns the identifier the subscriber was registered under.
func (s *Subscriber) ID() string {
	return s.id
}

// Wait switches the subscriber to the Waiting state for the categories in
// want. The returned channel receives exactly one value, the matching
// categories, once a pending or future event intersects want. If a matching
// event is already pending the value is available immediately.
func (s *Subscriber) Wait(want Mask) <-chan Mask {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.want = want
	s.waiting = true
	s.fireLocked()
	return s.wake
}

// Cancel leaves the Waiting state without delivering anything. A notification
// that already fired but was not received is put back into the pending set
// so it is reported by the next Wait.
func (s *Subscriber) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.waiting = false
	select {
	case <-s.wake:
		s.pending |= s.lastFired
	default:
	}
}

// Waiting reports whether the subscriber is blocked in Wait.
func (s *Subscriber) Waiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

// Pending returns the categories that changed since the last delivery.
func (s *Subscriber) Pending() Mask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Subscriber) add(m Mask) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending |= m
	return s.fireLocked()
}

func (s *Subscriber) fireLocked() bool {
	if !s.waiting || s.pending&s.want == 0 {
		return false
	}

	matched := s.pending & s.want
	s.lastFired = s.pending
	s.pending = 0
	s.waiting = false

	// The channel holds at most one value: a fired value is either received
	// by the connection or reclaimed by Cancel before the next Wait.
	s.wake <- matched
	return true
}

type shard struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// Hub is the process-wide registry of subscribers.
type Hub struct {
	shards [shardCount]shard
}

func NewHub() *Hub {
	h := &Hub{}
	for i := range h.shards {
		h.shards[i].subs = make(map[*Subscriber]struct{})
	}
	return h
}

func (h *Hub) shardFor(id string) *shard {
	return &h.shards[xxhash.Sum64String(id)%shardCount]
}

// Subscribe registers a new Active subscriber.
func (h *Hub) Subscribe(id string) *Subscriber {
	s := &Subscriber{
		id:   id,
		wake: make(chan Mask, 1),
	}

	sh := h.shardFor(id)
	sh.mu.Lock()
	sh.subs[s] = struct{}{}
	sh.mu.Unlock()

	return s
}

// Unsubscribe removes s from the Hub. Events published afterwards are not
// recorded for it.
func (h *Hub) Unsubscribe(s *Subscriber) {
	s.Cancel()

	sh := h.shardFor(s.id)
	sh.mu.Lock()
	delete(sh.subs, s)
	sh.mu.Unlock()
}

// Publish records that the categories in m changed and wakes every waiting
// subscriber whose request intersects m. It returns the number of
// subscribers woken.
func (h *Hub) Publish(m Mask) int {
	if m == 0 {
		return 0
	}

	woken := 0
	for i := range h.shards {
		sh := &h.shards[i]
		sh.mu.RLock()
		for s := range sh.subs {
			if s.add(m) {
				woken++
			}
		}
		sh.mu.RUnlock()
	}
	return woken
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	n := 0
	for i := range h.shards {
		sh := &h.shards[i]
		sh.mu.RLock()
		n += len(sh.subs)
		sh.mu.RUnlock()
	}
	return n
}
