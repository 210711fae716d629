package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Notifications tracks the outcome of queued order notifications.
type Notifications struct {
	Queued  Counter
	Sent    Counter
	Failed  Counter
	Dropped Counter
}

type NotificationsSnapshot struct {
	Queued  uint64 `json:"queued"`
	Sent    uint64 `json:"sent"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
}

func (n *Notifications) Snapshot() NotificationsSnapshot {
	return NotificationsSnapshot{
		Queued:  n.Queued.Load(),
		Sent:    n.Sent.Load(),
		Failed:  n.Failed.Load(),
		Dropped: n.Dropped.Load(),
	}
}
