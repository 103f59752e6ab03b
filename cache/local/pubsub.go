package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

// LocalPubSub is an in-process fan-out pub/sub implementation. One process
// only; the redis backend takes over when cross-process delivery is needed.
type LocalPubSub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *LocalMessage]struct{}
	bufSize     int
}

// NewPubSub creates a new LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		subscribers: make(map[string]map[chan *LocalMessage]struct{}),
		bufSize:     bufSize,
	}
}

// Publish sends a message to all subscribers of the given channel.
// Slow subscribers with a full buffer miss the message.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for ch := range ps.subscribers[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a message stream covering the given channels, and a
// cancel function that unsubscribes and closes the stream. Cancel is safe to
// call more than once.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	ch := make(chan *LocalMessage, ps.bufSize)

	ps.mu.Lock()
	for _, name := range channels {
		set, ok := ps.subscribers[name]
		if !ok {
			set = make(map[chan *LocalMessage]struct{})
			ps.subscribers[name] = set
		}
		set[ch] = struct{}{}
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()
			for _, name := range channels {
				set := ps.subscribers[name]
				delete(set, ch)
				if len(set) == 0 {
					delete(ps.subscribers, name)
				}
			}
			close(ch)
		})
	}

	return ch, cancel, nil
}
