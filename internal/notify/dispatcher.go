package notify

import (
	"context"
	"sync"
	"time"

	"studiobook/pkg/logger"
)

const deliveryTimeout = 10 * time.Second

// Dispatcher hands events to a Notifier from a fixed pool of workers so that
// request handlers never wait on the broker. Delivery failures are logged and
// dropped.
type Dispatcher struct {
	notifier Notifier
	log      *logger.Logger
	queue    chan Event
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(notifier Notifier, log *logger.Logger, workers, queueSize int) *Dispatcher {
	d := &Dispatcher{
		notifier: notifier,
		log:      log,
		queue:    make(chan Event, max(1, queueSize)),
	}
	for range max(1, workers) {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for e := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := d.notifier.Notify(ctx, e); err != nil {
			d.log.Error("Failed to deliver booking event",
				"event_id", e.ID,
				"event_type", e.Type,
				"booking_id", e.BookingID,
				"error", err,
			)
		}
		cancel()
	}
}

// Dispatch enqueues events without blocking. Events are dropped, with a
// warning, when the queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(events ...Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, e := range events {
		if d.closed {
			d.log.Warn("Dispatcher closed, dropping booking event", "event_id", e.ID, "event_type", e.Type)
			continue
		}
		select {
		case d.queue <- e:
		default:
			d.log.Warn("Notification queue full, dropping booking event",
				"event_id", e.ID,
				"event_type", e.Type,
				"booking_id", e.BookingID,
			)
		}
	}
}

// Close stops accepting events, drains the queue and closes the notifier.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.log.Warn("Notification queue not drained before shutdown", "pending", len(d.queue))
	}
	return d.notifier.Close()
}
