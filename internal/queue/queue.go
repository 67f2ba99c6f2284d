// Package queue carries scan outcomes from the capture goroutine to the
// primary goroutine. The capture side only publishes; the primary side owns
// everything user-visible, so no UI state is ever touched off-thread.
package queue

import "context"

// Kind classifies a scan event. Duplicate and decode failures are expected,
// frequent, non-fatal outcomes; storage and device failures are not.
type Kind string

const (
	KindAccepted      Kind = "accepted"
	KindDuplicate     Kind = "duplicate"
	KindDecodeFailed  Kind = "decode_failed"
	KindStorageFailed Kind = "storage_failed"
	KindDeviceFailed  Kind = "device_failed"
)

// Event is one scan outcome.
type Event struct {
	Kind        Kind
	StudentID   string
	StudentName string
	Detail      string // confirmation time or failure description
	Err         error
}

// Queue is the abstraction over event transports.
type Queue interface {
	Publish(ctx context.Context, evt Event) error
	Consume(ctx context.Context) (<-chan Event, error)
}

// InMemory is a bounded channel-backed queue. Both ends live in this
// process, so it is the only backend.
type InMemory struct {
	ch chan Event
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Event, size)}
}

// Publish enqueues an event.
func (q *InMemory) Publish(ctx context.Context, evt Event) error {
	select {
	case q.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for the primary goroutine. The channel closes
// when the context is cancelled.
func (q *InMemory) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-q.ch:
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
