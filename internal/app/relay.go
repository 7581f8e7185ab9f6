package app

import (
	"context"
	"sync"
)

// Relay hands the most recent encoded frame from the game loop to any
// number of readers. Older frames are overwritten, never queued.
type Relay struct {
	mu     sync.Mutex
	frame  []byte
	seq    uint64
	notify chan struct{}
}

// NewRelay creates an empty relay.
func NewRelay() *Relay {
	return &Relay{notify: make(chan struct{})}
}

// Publish stores frame as the latest and wakes waiting readers. The relay
// keeps the slice; callers must not modify it afterwards.
func (r *Relay) Publish(frame []byte) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frame = frame
	r.seq++
	close(r.notify)
	r.notify = make(chan struct{})
	return r.seq
}

// Latest returns the newest frame and its sequence number. Sequence 0 means
// nothing has been published.
func (r *Relay) Latest() ([]byte, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame, r.seq
}

// Next blocks until a frame newer than after is published or ctx ends.
func (r *Relay) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		r.mu.Lock()
		if r.seq > after {
			frame, seq := r.frame, r.seq
			r.mu.Unlock()
			return frame, seq, nil
		}
		wait := r.notify
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-wait:
		}
	}
}
