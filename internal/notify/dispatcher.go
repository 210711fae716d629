package notify

import (
	"context"
	"sync"
	"time"

	"essenza-be/internal/logger"
	"essenza-be/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const sendTimeout = 30 * time.Second

// Dispatcher runs notifications on a fixed pool of workers fed by a bounded
// queue. Dispatch never blocks: when the queue is full the message is
// dropped and counted.
type Dispatcher struct {
	notifier Notifier
	jobs     chan Message
	group    errgroup.Group
	stats    metrics.Notifications

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(n Notifier, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	d := &Dispatcher{
		notifier: n,
		jobs:     make(chan Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.group.Go(d.work)
	}
	return d
}

func (d *Dispatcher) work() error {
	for msg := range d.jobs {
		d.deliver(msg)
	}
	return nil
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	timer := metrics.StartTimer()
	if err := d.notifier.Send(ctx, msg); err != nil {
		d.stats.Failed.Inc()
		logger.L().Warn("order notification failed",
			zap.String("tracking_code", msg.TrackingCode),
			zap.Duration("took", timer.Duration()),
			zap.Error(err),
		)
		return
	}
	d.stats.Sent.Inc()
}

// Dispatch enqueues msg and reports whether it was accepted.
func (d *Dispatcher) Dispatch(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.stats.Dropped.Inc()
		return false
	}

	select {
	case d.jobs <- msg:
		d.stats.Queued.Inc()
		return true
	default:
		d.stats.Dropped.Inc()
		logger.L().Warn("notification queue full, dropping message",
			zap.String("tracking_code", msg.TrackingCode),
		)
		return false
	}
}

// Close stops intake and waits for queued messages to drain, or for ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Stats() metrics.NotificationsSnapshot {
	return d.stats.Snapshot()
}
