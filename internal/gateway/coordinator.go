// Package gateway orchestrates decision flow: validation, risk gate,
// session limiter, autonomy policy, approval queue and execution
// forwarding, with every transition journaled before side effects.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradegate/config"
	"github.com/vadiminshakov/tradegate/internal/domain"
	"github.com/vadiminshakov/tradegate/internal/metrics"
	"github.com/vadiminshakov/tradegate/internal/notify"
	"github.com/vadiminshakov/tradegate/internal/services/approval"
	"github.com/vadiminshakov/tradegate/internal/services/halt"
	"github.com/vadiminshakov/tradegate/internal/services/policy"
	"github.com/vadiminshakov/tradegate/internal/services/risk"
	"github.com/vadiminshakov/tradegate/internal/services/session"
	"github.com/vadiminshakov/tradegate/internal/storage/decisionlog"
	"go.uber.org/zap"
)

// Executor is the execution layer boundary. Failures are reported, not
// retried, by the gateway.
type Executor interface {
	Execute(ctx context.Context, d domain.Decision) (domain.ExecutionResult, error)
}

// Coordinator drives decisions for a single instrument stream. Multiple
// coordinators may run concurrently; they share only the session
// limiter and the kill switch.
type Coordinator struct {
	// mu serializes the instrument stream: decisions, outcomes and
	// approval resolutions for this pair never race each other.
	mu sync.Mutex

	pair    domain.Pair
	cfg     config.Config
	gate    *risk.Gate
	limiter *session.Limiter
	kill    *halt.KillSwitch
	queue   *approval.Queue
	log     *decisionlog.Store
	exec    Executor
	events  *notify.Dispatcher
	logger  *zap.Logger
	now     func() time.Time

	// decisions indexes every recorded decision for supersedes tracing.
	decisions map[string]domain.Decision
	// snapshots keeps the account state each queued decision was gated
	// against, so a human-modified replacement faces the same caps.
	snapshots map[string]domain.AccountSnapshot
}

// Deps bundles the collaborators a coordinator is built from.
type Deps struct {
	Config   config.Config
	Limiter  *session.Limiter
	Kill     *halt.KillSwitch
	Log      *decisionlog.Store
	Executor Executor
	Events   *notify.Dispatcher
	Logger   *zap.Logger
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// New creates a coordinator for one instrument.
func New(pair domain.Pair, deps Deps) (*Coordinator, error) {
	if deps.Limiter == nil {
		return nil, errors.New("session limiter is required")
	}
	if deps.Kill == nil {
		return nil, errors.New("kill switch is required")
	}
	if deps.Log == nil {
		return nil, errors.New("decision log is required")
	}
	if deps.Executor == nil {
		return nil, errors.New("executor is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("pair", pair.String()))

	events := deps.Events
	if events == nil {
		events = notify.NewDispatcher(logger)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	c := &Coordinator{
		pair:      pair,
		cfg:       deps.Config,
		gate:      risk.NewGate(deps.Config.Risk, logger),
		limiter:   deps.Limiter,
		kill:      deps.Kill,
		log:       deps.Log,
		exec:      deps.Executor,
		events:    events,
		logger:    logger,
		now:       clock,
		decisions: make(map[string]domain.Decision),
		snapshots: make(map[string]domain.AccountSnapshot),
	}
	c.queue = approval.NewQueue(deps.Config.ApprovalTimeout, logger, c.onApprovalResolved,
		approval.WithClock(clock))

	return c, nil
}

// OnDecision is the single entry point from the analysis layer. It
// never blocks waiting for a human: queued decisions return
// immediately and their resolutions arrive later as events.
func (c *Coordinator) OnDecision(ctx context.Context, d domain.Decision, snap domain.AccountSnapshot) (domain.Disposition, error) {
	if d.Confidence < c.cfg.MinimumToSuggest {
		// below the suggestion threshold the proposal is treated as
		// wait and never recorded
		metrics.DecisionsDropped.Inc()
		return domain.Disposition{Kind: domain.DispositionDropped, Reason: "confidence below suggestion threshold"}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if err := d.Validate(); err != nil {
		disp := domain.Disposition{Kind: domain.DispositionRejected, Reason: "validation: " + err.Error()}
		if recErr := c.record(d, disp, now); recErr != nil {
			return domain.Disposition{}, recErr
		}
		return disp, nil
	}

	verdict := c.gate.Evaluate(d, snap, now)
	sessionOK, sessionReason := c.limiter.Admissible(snap.Equity, now)
	halted := c.kill.IsTripped()

	disp := policy.Route(policy.Inputs{
		Level:         c.cfg.Autonomy,
		Confidence:    d.Confidence,
		RiskOK:        verdict.OK,
		SessionOK:     sessionOK,
		Halted:        halted,
		MinToExecute:  c.cfg.MinimumToExecute,
		RiskReason:    verdict.Reason(),
		SessionReason: sessionReason,
	})

	// the log entry precedes every side effect; if it cannot be
	// written, nothing else happens either
	if err := c.record(d, disp, now); err != nil {
		return domain.Disposition{}, err
	}

	switch disp.Kind {
	case domain.DispositionAutoExecuted:
		c.execute(ctx, d)
	case domain.DispositionQueued:
		c.snapshots[d.ID] = snap
		c.queue.Submit(d)
	}

	return disp, nil
}

// OnOutcome applies execution feedback to the session counters. The
// host must deliver it before the next decision for the same pair.
func (c *Coordinator) OnOutcome(o domain.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.limiter.RecordOutcome(o, c.now())
	c.events.Publish(o)
}

// Resolve forwards a human verdict to the approval queue. A verdict
// arriving after the record turned terminal is logged as rejected-late
// and never executed.
func (c *Coordinator) Resolve(id string, v domain.Verdict) (domain.ApprovalRecord, error) {
	rec, err := c.queue.Resolve(id, v)
	if errors.Is(err, approval.ErrAlreadyResolved) {
		c.recordLate(rec, "resolution after terminal state")
		return rec, err
	}
	return rec, err
}

// AcknowledgeReview clears the session limiter's loss-streak latch.
func (c *Coordinator) AcknowledgeReview() {
	c.limiter.AcknowledgeReview()
}

// Pending exposes the surfaced approval record to the human layer.
func (c *Coordinator) Pending() *domain.ApprovalRecord {
	return c.queue.Pending()
}

// ApprovalStats exposes queue statistics to the host layer.
func (c *Coordinator) ApprovalStats() approval.Stats {
	return c.queue.Stats()
}

// Lineage traces a decision id back to its root through the
// supersedes chain of recorded decisions.
func (c *Coordinator) Lineage(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.RootID(c.decisions, id)
}

// Close stops queue timers and drains in-flight event deliveries.
func (c *Coordinator) Close() {
	c.queue.Close()
	c.events.Wait()
}

// onApprovalResolved receives terminal approval records in pending
// order. It is the coordinator checkpoint between human approval and
// execution: the kill switch is re-read here.
func (c *Coordinator) onApprovalResolved(rec domain.ApprovalRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.recordApproval(rec, rec.State.String(), now)

	snap, hasSnap := c.snapshots[rec.Decision.ID]
	delete(c.snapshots, rec.Decision.ID)

	switch rec.State {
	case domain.ApprovalApproved, domain.ApprovalModified:
	default:
		// rejected and timed_out end here; timed_out is journaled
		// distinctly for accountability
		return
	}

	if c.kill.IsTripped() {
		c.recordLateLocked(rec, "halted", now)
		return
	}

	target := rec.Decision
	if rec.State == domain.ApprovalModified {
		if rec.Modified == nil {
			c.logger.Error("modified resolution without replacement decision",
				zap.String("decision_id", rec.Decision.ID))
			return
		}
		target = *rec.Modified

		// a human edit is a new decision; it passes the same
		// checkpoints the original did before it may execute
		if err := target.Validate(); err != nil {
			c.rejectModifiedLocked(target, "validation: "+err.Error(), now)
			return
		}
		if hasSnap {
			if verdict := c.gate.Evaluate(target, snap, now); !verdict.OK {
				c.rejectModifiedLocked(target, "risk violation: "+verdict.Reason(), now)
				return
			}
		}

		if err := c.record(target, domain.Disposition{Kind: domain.DispositionAutoExecuted, Reason: "approved with modifications"}, now); err != nil {
			c.logger.Error("failed to journal modified decision", zap.Error(err))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c.execute(ctx, target)
}

// rejectModifiedLocked journals a replacement decision that failed its
// pre-execution checks. The record stays modified; the replacement
// never executes.
func (c *Coordinator) rejectModifiedLocked(target domain.Decision, reason string, now time.Time) {
	disp := domain.Disposition{Kind: domain.DispositionRejected, Reason: reason}
	if err := c.record(target, disp, now); err != nil {
		c.logger.Error("failed to journal rejected modification", zap.Error(err))
		return
	}
	c.logger.Warn("modified decision rejected, execution suppressed",
		zap.String("decision_id", target.ID),
		zap.String("reason", reason))
}

// execute forwards the decision to the execution layer exactly once.
// Failures are reported, never retried.
func (c *Coordinator) execute(ctx context.Context, d domain.Decision) {
	result, err := c.exec.Execute(ctx, d)
	if err != nil {
		c.logger.Error("execution failed",
			zap.String("decision_id", d.ID),
			zap.Error(err))
		return
	}

	metrics.ExecutionsTotal.Inc()
	c.logger.Info("decision executed",
		zap.String("decision_id", d.ID),
		zap.String("action", d.Action.String()),
		zap.String("fill_price", result.FillPrice.String()),
		zap.Bool("executed", result.Executed))
	c.events.Publish(result)
}

// record appends the decision event to the WAL and publishes it.
func (c *Coordinator) record(d domain.Decision, disp domain.Disposition, now time.Time) error {
	event := domain.NewDecisionEvent(d, disp, now)
	if err := c.log.AppendDecision(event); err != nil {
		return errors.Wrap(err, "append decision log")
	}

	c.decisions[d.ID] = d
	metrics.DecisionsTotal.WithLabelValues(disp.Kind.String()).Inc()
	c.events.Publish(event)

	c.logger.Info("decision recorded",
		zap.String("decision_id", d.ID),
		zap.String("action", d.Action.String()),
		zap.Float64("confidence", d.Confidence),
		zap.Bool("high_confidence", d.Confidence >= c.cfg.HighConfidence),
		zap.String("disposition", disp.Kind.String()),
		zap.String("reason", disp.Reason))

	return nil
}

// recordApproval journals an approval record transition.
func (c *Coordinator) recordApproval(rec domain.ApprovalRecord, state string, now time.Time) {
	event := domain.ApprovalEvent{
		Timestamp:  now,
		Pair:       rec.Decision.Pair.String(),
		DecisionID: rec.Decision.ID,
		State:      state,
		Notes:      rec.Notes,
		ModifiedID: rec.ModifiedID(),
	}
	if err := c.log.AppendApproval(event); err != nil {
		c.logger.Error("failed to journal approval transition", zap.Error(err))
		return
	}
	c.events.Publish(event)
}

func (c *Coordinator) recordLate(rec domain.ApprovalRecord, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recordLateLocked(rec, reason, c.now())
}

func (c *Coordinator) recordLateLocked(rec domain.ApprovalRecord, reason string, now time.Time) {
	metrics.LateResolutions.Inc()
	c.logger.Warn("resolution rejected late, execution suppressed",
		zap.String("decision_id", rec.Decision.ID),
		zap.String("reason", reason))

	rec.Notes = reason
	c.recordApproval(rec, domain.ApprovalEventStateRejectedLate, now)
}
