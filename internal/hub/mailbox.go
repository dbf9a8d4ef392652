package hub

import (
	"errors"
	"sync"
)

// ErrMailboxClosed is returned by Send after Close. A closed mailbox is
// treated like a disconnected recipient, never a fatal condition.
var ErrMailboxClosed = errors.New("mailbox closed")

// Mailbox is an unbounded multi-producer single-consumer FIFO. Send never
// blocks; Receive blocks until a value arrives or the mailbox is closed and
// drained. It backs both the hub's command queue and every client's outbound
// channel.
//
// Because the queue is unbounded there is no backpressure: a stalled
// consumer lets queued values accumulate without limit. That is a deliberate
// tradeoff, not an oversight; producers must never block on the actor.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
}

// NewMailbox creates an open, empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Send enqueues v without blocking. Returns ErrMailboxClosed if the mailbox
// has been closed.
func (m *Mailbox[T]) Send(v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMailboxClosed
	}
	m.queue = append(m.queue, v)
	m.cond.Signal()
	return nil
}

// Receive blocks until a value is available and returns it. After Close,
// Receive keeps returning queued values until the mailbox is drained, then
// returns ok=false.
func (m *Mailbox[T]) Receive() (v T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return v, false
	}
	v = m.queue[0]
	m.queue = m.queue[1:]
	return v, true
}

// TryReceive returns the next queued value without blocking.
func (m *Mailbox[T]) TryReceive() (v T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return v, false
	}
	v = m.queue[0]
	m.queue = m.queue[1:]
	return v, true
}

// Close marks the mailbox closed and wakes all blocked receivers. Queued
// values remain receivable. Safe to call more than once.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.cond.Broadcast()
}

// Len reports the number of queued values.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
