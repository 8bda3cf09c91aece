package notify

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/metrics"
)

// Notifier accepts messages for delivery without waiting for it.
type Notifier interface {
	Notify(m Message) bool
}

// Dispatcher delivers messages on a fixed pool of workers fed by a bounded
// queue. Notify never blocks; a full queue drops the message.
type Dispatcher struct {
	sender  Sender
	queue   chan Message
	workers int
	timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan Message, queueSize),
		workers: workers,
		timeout: 30 * time.Second,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			for m := range d.queue {
				d.deliver(id, m)
			}
		}(i)
	}
}

func (d *Dispatcher) Notify(m Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return false
	}
	select {
	case d.queue <- m:
		return true
	default:
		metrics.NotificationsSent.WithLabelValues(string(m.Kind), "dropped").Inc()
		logger.WithComponent("notify").Warn("notification queue full, dropping message", "kind", m.Kind, "user_id", m.UserID)
		return false
	}
}

// Stop closes the queue and waits for queued messages to drain or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver sends one message; a panicking sender is logged, not fatal.
func (d *Dispatcher) deliver(worker int, m Message) {
	log := logger.WithComponent("notify")
	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationsSent.WithLabelValues(string(m.Kind), "failed").Inc()
			log.Error("notification sender panicked",
				"worker", worker,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, m); err != nil {
		metrics.NotificationsSent.WithLabelValues(string(m.Kind), "failed").Inc()
		log.Error("notification delivery failed", "kind", m.Kind, "user_id", m.UserID, "error", err)
		return
	}
	metrics.NotificationsSent.WithLabelValues(string(m.Kind), "sent").Inc()
}

// Discard drops every message. Handy where notifications are irrelevant.
type Discard struct{}

func (Discard) Notify(Message) bool { return true }
