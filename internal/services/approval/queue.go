// Package approval holds decisions awaiting human disposition. Exactly
// one record is pending at any instant; further submissions join a
// strict FIFO backlog and surface once the head resolves.
package approval

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradegate/internal/domain"
	"github.com/vadiminshakov/tradegate/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for an unknown record id.
	ErrNotFound = errors.New("approval record not found")
	// ErrAlreadyResolved is returned when resolving a terminal record.
	// The caller logs the late resolution; state does not change.
	ErrAlreadyResolved = errors.New("approval record already resolved")
	// ErrNotSurfaced is returned when resolving a backlogged record that
	// has not been surfaced to the human layer yet.
	ErrNotSurfaced = errors.New("approval record not surfaced yet")
)

// ResolvedFn receives every terminal record, one at a time, in the
// order the records turned terminal. Called without the queue lock
// held; it must not call back into the queue.
type ResolvedFn func(rec domain.ApprovalRecord)

// Stats is a point-in-time snapshot of queue activity.
type Stats struct {
	Pending  int
	Backlog  int
	Approved int
	Rejected int
	Modified int
	TimedOut int
}

// Queue is the single-slot approval queue with FIFO backlog.
type Queue struct {
	mu      sync.Mutex
	timeout time.Duration

	pending *domain.ApprovalRecord
	backlog []*domain.ApprovalRecord
	history []*domain.ApprovalRecord

	// deliveries holds terminal records awaiting their onResolved
	// callback, in the order they turned terminal. A single drainer at
	// a time (delivering flag) invokes the callback without any queue
	// lock held, so delivery order is strict without lock cycles.
	deliveries []domain.ApprovalRecord
	delivering bool

	timer      *time.Timer
	onResolved ResolvedFn
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures the queue.
type Option func(*Queue)

// WithClock overrides the queue clock.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// NewQueue creates an approval queue. Every surfaced record carries an
// absolute deadline of timeout from the moment it surfaces.
func NewQueue(timeout time.Duration, logger *zap.Logger, onResolved ResolvedFn, opts ...Option) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		timeout:    timeout,
		onResolved: onResolved,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit queues a decision for human approval. Returns the record:
// pending with a deadline if the slot was free, backlogged otherwise.
// Never drops and never blocks.
func (q *Queue) Submit(d domain.Decision) domain.ApprovalRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec := &domain.ApprovalRecord{
		Decision:    d,
		State:       domain.ApprovalBacklogged,
		SubmittedAt: q.now(),
	}

	if q.pending == nil {
		q.surfaceLocked(rec)
	} else {
		q.backlog = append(q.backlog, rec)
		metrics.ApprovalBacklog.Set(float64(len(q.backlog)))
		q.logger.Info("approval backlogged",
			zap.String("decision_id", d.ID),
			zap.Int("backlog", len(q.backlog)))
	}

	return *rec
}

// Resolve applies a human verdict to the record with the given id.
// Resolving a terminal record is a no-op returning ErrAlreadyResolved;
// the record is returned unchanged so the caller can log the race loser.
func (q *Queue) Resolve(id string, v domain.Verdict) (domain.ApprovalRecord, error) {
	q.mu.Lock()

	if rec := q.findHistoryLocked(id); rec != nil {
		out := *rec
		q.mu.Unlock()
		return out, ErrAlreadyResolved
	}

	for _, rec := range q.backlog {
		if rec.Decision.ID == id {
			out := *rec
			q.mu.Unlock()
			return out, ErrNotSurfaced
		}
	}

	if q.pending == nil || q.pending.Decision.ID != id {
		q.mu.Unlock()
		return domain.ApprovalRecord{}, ErrNotFound
	}

	rec := q.pending
	switch v.Kind {
	case domain.VerdictApprove:
		rec.State = domain.ApprovalApproved
	case domain.VerdictReject:
		rec.State = domain.ApprovalRejected
	case domain.VerdictModify:
		rec.State = domain.ApprovalModified
		rec.Modified = v.Modified
	}
	rec.Notes = v.Notes
	rec.ResolvedAt = q.now()
	q.retireLocked(rec)
	out := *rec
	drain := q.enqueueDeliveryLocked(out)
	q.mu.Unlock()

	q.logger.Info("approval resolved",
		zap.String("decision_id", out.Decision.ID),
		zap.String("state", out.State.String()))
	metrics.ApprovalsTotal.WithLabelValues(out.State.String()).Inc()
	if drain {
		q.drainDeliveries()
	}

	return out, nil
}

// Pending returns a copy of the surfaced record, if any.
func (q *Queue) Pending() *domain.ApprovalRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending == nil {
		return nil
	}
	out := *q.pending
	return &out
}

// BacklogLen returns the number of records waiting behind the slot.
func (q *Queue) BacklogLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.backlog)
}

// Stats returns aggregate queue statistics.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{Backlog: len(q.backlog)}
	if q.pending != nil {
		s.Pending = 1
	}
	for _, rec := range q.history {
		switch rec.State {
		case domain.ApprovalApproved:
			s.Approved++
		case domain.ApprovalRejected:
			s.Rejected++
		case domain.ApprovalModified:
			s.Modified++
		case domain.ApprovalTimedOut:
			s.TimedOut++
		}
	}
	return s
}

// Close stops the pending timer. Unresolved records stay as they are.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// surfaceLocked moves rec into the single pending slot with a fresh
// deadline and arms its timeout.
func (q *Queue) surfaceLocked(rec *domain.ApprovalRecord) {
	now := q.now()
	rec.State = domain.ApprovalPending
	rec.Deadline = now.Add(q.timeout)
	q.pending = rec

	id := rec.Decision.ID
	q.timer = time.AfterFunc(q.timeout, func() { q.expire(id) })

	q.logger.Info("approval surfaced",
		zap.String("decision_id", id),
		zap.Time("deadline", rec.Deadline))
}

// retireLocked moves the pending record to history and surfaces the
// next backlog entry, preserving arrival order.
func (q *Queue) retireLocked(rec *domain.ApprovalRecord) {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.pending = nil
	q.history = append(q.history, rec)

	if len(q.backlog) > 0 {
		next := q.backlog[0]
		q.backlog = q.backlog[1:]
		q.surfaceLocked(next)
	}
	metrics.ApprovalBacklog.Set(float64(len(q.backlog)))
}

// expire transitions the pending record to timed_out exactly once.
// A resolution racing the timer wins if it takes the lock first.
func (q *Queue) expire(id string) {
	q.mu.Lock()

	if q.pending == nil || q.pending.Decision.ID != id || q.pending.State.Terminal() {
		q.mu.Unlock()
		return
	}

	rec := q.pending
	rec.State = domain.ApprovalTimedOut
	rec.ResolvedAt = q.now()
	q.retireLocked(rec)
	out := *rec
	drain := q.enqueueDeliveryLocked(out)
	q.mu.Unlock()

	q.logger.Warn("approval timed out", zap.String("decision_id", out.Decision.ID))
	metrics.ApprovalsTotal.WithLabelValues(out.State.String()).Inc()
	if drain {
		q.drainDeliveries()
	}
}

// enqueueDeliveryLocked appends the terminal record to the delivery
// queue and reports whether the caller must drain it.
func (q *Queue) enqueueDeliveryLocked(out domain.ApprovalRecord) bool {
	if q.onResolved == nil {
		return false
	}
	q.deliveries = append(q.deliveries, out)
	if q.delivering {
		return false
	}
	q.delivering = true
	return true
}

// drainDeliveries invokes the callback for each queued terminal record
// in order, holding no lock during the call.
func (q *Queue) drainDeliveries() {
	for {
		q.mu.Lock()
		if len(q.deliveries) == 0 {
			q.delivering = false
			q.mu.Unlock()
			return
		}
		out := q.deliveries[0]
		q.deliveries = q.deliveries[1:]
		q.mu.Unlock()

		q.onResolved(out)
	}
}

func (q *Queue) findHistoryLocked(id string) *domain.ApprovalRecord {
	for _, rec := range q.history {
		if rec.Decision.ID == id {
			return rec
		}
	}
	return nil
}
