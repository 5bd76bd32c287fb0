// Package notify fans gateway events out to journal and notification
// sinks. Delivery is fire-and-forget: the gateway never blocks on a
// sink and never fails because of one.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/vadiminshakov/tradegate/pkg/retrier"
	"go.uber.org/zap"
)

// Sink receives gateway events. Implementations live in the host:
// chat notifiers, trade journals, audit shippers.
type Sink interface {
	Deliver(ctx context.Context, event any) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event any) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(ctx context.Context, event any) error {
	return f(ctx, event)
}

// Dispatcher delivers each published event to every sink in its own
// goroutine with a bounded retry schedule.
type Dispatcher struct {
	sinks   []Sink
	policy  retrier.Policy
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sinks:   sinks,
		policy:  retrier.Default(),
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// Publish hands the event to every sink and returns immediately.
// Sink failures are logged and dropped after the retry budget.
func (d *Dispatcher) Publish(event any) {
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			err := d.policy.Do(ctx, func(ctx context.Context) error {
				return s.Deliver(ctx, event)
			})
			if err != nil {
				d.logger.Warn("event delivery abandoned", zap.Error(err))
			}
		}(sink)
	}
}

// Wait blocks until all in-flight deliveries finish. Used on shutdown
// and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
