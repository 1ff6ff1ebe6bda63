package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type job struct {
	channel string
	event   *Event
}

// AsyncPublisher hands events to a background goroutine through a bounded
// queue. Publish never blocks: when the queue is full the event is dropped.
type AsyncPublisher struct {
	next    Publisher
	queue   chan job
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewAsyncPublisher starts the background worker.
func NewAsyncPublisher(next Publisher, queueSize int, timeout time.Duration, logger zerolog.Logger) *AsyncPublisher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	p := &AsyncPublisher{
		next:    next,
		queue:   make(chan job, queueSize),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues the event. The returned error is always nil; a full queue
// or a closed publisher drops the event and bumps Dropped.
func (p *AsyncPublisher) Publish(_ context.Context, channel string, event *Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return nil
	}

	select {
	case p.queue <- job{channel: channel, event: event}:
	default:
		p.dropped.Add(1)
		p.logger.Warn().Str("event_type", event.Type).Msg("event queue full, dropping event")
	}
	return nil
}

// Dropped reports how many events were discarded.
func (p *AsyncPublisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for j := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.Publish(ctx, j.channel, j.event); err != nil {
			p.logger.Warn().Err(err).
				Str("channel", j.channel).
				Str("event_type", j.event.Type).
				Msg("failed to publish event")
		}
		cancel()
	}
}

// Close drains queued events and closes the underlying publisher. Repeated
// calls wait for the drain and return the first result.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	<-p.done
	p.closeOnce.Do(func() {
		p.closeErr = p.next.Close()
	})
	return p.closeErr
}
