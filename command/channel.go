package command

import (
	"context"
	"errors"
	"sync"
)

// DefaultCapacity is the default number of queued commands.
const DefaultCapacity = 1024

var (
	// ErrEmpty is returned by TryReceive when no command is queued.
	ErrEmpty = errors.New("command queue is empty")
	// ErrDisconnected is returned when all senders are closed and the
	// queue is drained. Senders return it after they were closed.
	ErrDisconnected = errors.New("command channel is disconnected")
	// ErrFull is returned by TrySend when the queue is at capacity.
	ErrFull = errors.New("command queue is full")
)

// Channel is a bounded queue of commands with many senders and exactly
// one receiver. Only the receiver side is safe to use from the audio
// thread: TryReceive never blocks and never allocates.
type Channel struct {
	queue chan Command
	// disconnected is closed with the last sender. queue itself is never
	// closed, so a send racing with the last Close cannot panic.
	disconnected chan struct{}

	// m guards the sender bookkeeping. It's never held while blocking
	// and receiver never takes it.
	m       sync.Mutex
	senders int
	closed  bool
}

// Sender is a producer handle of the channel. It is safe for concurrent
// use. The channel disconnects once all its senders are closed.
type Sender struct {
	ch   *Channel
	done bool // guarded by ch.m
}

// NewChannel creates a channel with provided capacity. Non-positive
// capacity falls back to DefaultCapacity. The channel has no senders
// until Sender is called.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		queue:        make(chan Command, capacity),
		disconnected: make(chan struct{}),
	}
}

// Sender returns a new producer handle. If all previous senders were
// already closed, returned sender is closed as well.
func (c *Channel) Sender() *Sender {
	c.m.Lock()
	defer c.m.Unlock()
	if c.closed {
		return &Sender{ch: c, done: true}
	}
	c.senders++
	return &Sender{ch: c}
}

// Cap returns the capacity of the channel.
func (c *Channel) Cap() int {
	return cap(c.queue)
}

// Len returns number of queued commands.
func (c *Channel) Len() int {
	return len(c.queue)
}

// TryReceive returns the next queued command. ErrEmpty is returned if
// nothing is queued and ErrDisconnected if nothing is queued and all
// senders are closed.
func (c *Channel) TryReceive() (Command, error) {
	select {
	case cmd := <-c.queue:
		return cmd, nil
	default:
	}
	select {
	case <-c.disconnected:
		// commands sent right before the last Close are still delivered.
		select {
		case cmd := <-c.queue:
			return cmd, nil
		default:
			return nil, ErrDisconnected
		}
	default:
		return nil, ErrEmpty
	}
}

// Clone returns another sender for the same channel.
func (s *Sender) Clone() *Sender {
	return s.ch.Sender()
}

// Send queues the command. It blocks while the queue is full, until the
// context is done. Blocked Send doesn't hold back other senders.
func (s *Sender) Send(ctx context.Context, cmd Command) error {
	if s.isDone() {
		return ErrDisconnected
	}
	select {
	case s.ch.queue <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend queues the command or drops it with ErrFull when the queue is
// at capacity.
func (s *Sender) TrySend(cmd Command) error {
	if s.isDone() {
		return ErrDisconnected
	}
	select {
	case s.ch.queue <- cmd:
		return nil
	default:
		return ErrFull
	}
}

func (s *Sender) isDone() bool {
	s.ch.m.Lock()
	defer s.ch.m.Unlock()
	return s.done
}

// Close releases the sender. Closing the last sender disconnects the
// channel, queued commands are still delivered. Close is idempotent and
// never blocks.
func (s *Sender) Close() {
	s.ch.m.Lock()
	defer s.ch.m.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.ch.senders--
	if s.ch.senders == 0 {
		s.ch.closed = true
		close(s.ch.disconnected)
	}
}
