package heosprotocol

import (
	"context"
	"sync"
)

// Correlator is a single-slot handoff between the read loop and the one
// command awaiting its response. Set resolves the slot, Wait blocks until it
// is resolved, and Clear empties it for the next command.
//
// Only one waiter is supported at a time; the Connection's command lock
// enforces that.
type Correlator struct {
	mu   sync.Mutex
	slot *slot
}

// slot is one generation of the correlator. A waiter keeps the slot it
// started on, so a Clear after Set cannot take the message away from it.
type slot struct {
	ready chan struct{}
	msg   *Message
}

func newSlot() *slot {
	return &slot{ready: make(chan struct{})}
}

func (s *slot) resolved() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// NewCorrelator creates an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{slot: newSlot()}
}

// Set resolves the slot with msg and wakes the waiter. Setting an already
// resolved slot replaces the message.
func (c *Correlator) Set(msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.slot.msg = msg
	if !c.slot.resolved() {
		close(c.slot.ready)
	}
	return nil
}

// Wait blocks until the slot is resolved or ctx is done. The returned
// message is never nil when err is nil.
func (c *Correlator) Wait(ctx context.Context) (*Message, error) {
	c.mu.Lock()
	s := c.slot
	c.mu.Unlock()

	select {
	case <-s.ready:
		c.mu.Lock()
		defer c.mu.Unlock()
		return s.msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Clear empties the slot. A message set before Clear is discarded for later
// waiters; a waiter already woken by it still receives it.
func (c *Correlator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot.resolved() {
		c.slot = newSlot()
	}
}

// IsSet reports whether the slot holds a message.
func (c *Correlator) IsSet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot.resolved()
}
