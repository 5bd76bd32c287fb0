// Package halt implements the process-wide kill switch. While tripped,
// no decision may reach execution; clearing requires an explicit
// operator acknowledgment.
package halt

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradegate/internal/metrics"
	"go.uber.org/zap"
)

// CancelExecutor is the slice of the execution layer the kill switch
// uses to unwind open state. Called fire-and-forget.
type CancelExecutor interface {
	CancelAll(ctx context.Context) error
	CloseAll(ctx context.Context) error
}

// TripEvent records a kill switch activation.
type TripEvent struct {
	Reason          string
	At              time.Time
	CancelRequested bool
}

// KillSwitch is shared by every coordinator instance. IsTripped is
// checked before each decision is finalized, not polled best-effort.
type KillSwitch struct {
	mu        sync.Mutex
	tripped   bool
	reason    string
	trippedAt time.Time
	history   []TripEvent

	exec   CancelExecutor
	now    func() time.Time
	logger *zap.Logger
}

// New creates a kill switch. exec may be nil when the host wires no
// execution layer; tripping then only halts the gateway.
func New(exec CancelExecutor, logger *zap.Logger) *KillSwitch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KillSwitch{
		exec:   exec,
		now:    time.Now,
		logger: logger,
	}
}

// Trip halts the gateway immediately and idempotently, and asks the
// execution layer to cancel open orders and close positions without
// waiting for completion. Only the fact the request was issued is
// recorded; failures are logged, not retried.
func (k *KillSwitch) Trip(reason string) {
	k.mu.Lock()
	if k.tripped {
		k.mu.Unlock()
		return
	}
	k.tripped = true
	k.reason = reason
	k.trippedAt = k.now()
	event := TripEvent{Reason: reason, At: k.trippedAt, CancelRequested: k.exec != nil}
	k.history = append(k.history, event)
	exec := k.exec
	k.mu.Unlock()

	k.logger.Warn("kill switch tripped", zap.String("reason", reason))
	metrics.HaltTrips.Inc()

	if exec == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := exec.CancelAll(ctx); err != nil {
			k.logger.Error("cancel-all request failed", zap.Error(err))
		}
		if err := exec.CloseAll(ctx); err != nil {
			k.logger.Error("close-all request failed", zap.Error(err))
		}
	}()
}

// Clear re-enables the gateway. Requires a non-empty operator
// acknowledgment; halting never clears on its own.
func (k *KillSwitch) Clear(operatorAck string) error {
	if operatorAck == "" {
		return errors.New("operator acknowledgment is required to clear the kill switch")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.tripped {
		return nil
	}
	k.tripped = false
	k.reason = ""
	k.logger.Info("kill switch cleared", zap.String("operator_ack", operatorAck))
	return nil
}

// IsTripped reports the halt state.
func (k *KillSwitch) IsTripped() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.tripped
}

// Reason returns the halt state together with its trip reason.
func (k *KillSwitch) Reason() (bool, string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.tripped, k.reason
}

// History returns a copy of all trip events.
func (k *KillSwitch) History() []TripEvent {
	k.mu.Lock()
	defer k.mu.Unlock()

	out := make([]TripEvent, len(k.history))
	copy(out, k.history)
	return out
}
