// Package session tracks rolling per-day trade counters and enforces
// session limits: max trades per day, daily loss cap and loss streaks.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/tradegate/config"
	"github.com/vadiminshakov/tradegate/internal/domain"
	"go.uber.org/zap"
)

// Stats is a point-in-time snapshot for the host layer.
type Stats struct {
	Counters       domain.SessionCounters
	ReviewRequired bool
	Blocked        bool
	BlockReason    string
}

// Limiter owns the process-wide session counters. It is shared by every
// coordinator instance and all access goes through its mutex.
type Limiter struct {
	mu       sync.Mutex
	cfg      config.SessionConfig
	loc      *time.Location
	counters domain.SessionCounters

	dayOpen time.Time
	// reviewRequired latches when the loss streak hits its cap. Cleared
	// only by AcknowledgeReview, never by time passing (unless the
	// streak itself is configured to reset daily).
	reviewRequired bool
	blocked        bool
	blockReason    string

	logger *zap.Logger
}

// NewLimiter creates a session limiter. Config is assumed validated.
func NewLimiter(cfg config.SessionConfig, logger *zap.Logger) (*Limiter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load session timezone %q", cfg.Timezone)
	}
	return &Limiter{
		cfg:    cfg,
		loc:    loc,
		logger: logger,
	}, nil
}

// Admissible checks every session limit and returns the first breach.
func (l *Limiter) Admissible(equity decimal.Decimal, now time.Time) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked(now)

	if l.blocked {
		return false, fmt.Sprintf("manually blocked: %s", l.blockReason)
	}
	if l.reviewRequired {
		return false, "human review required"
	}
	if l.counters.TradesExecutedToday >= l.cfg.MaxTradesPerDay {
		return false, fmt.Sprintf("max daily trades reached (%d)", l.cfg.MaxTradesPerDay)
	}
	if equity.IsPositive() {
		maxLoss := equity.Mul(l.cfg.MaxLossPercentDaily).Div(decimal.NewFromInt(100))
		if l.counters.RealizedLossToday.GreaterThanOrEqual(maxLoss) {
			return false, fmt.Sprintf("daily loss limit reached (%s%%)", l.cfg.MaxLossPercentDaily)
		}
	}
	if l.counters.ConsecutiveLosses >= l.cfg.MaxLossStreak {
		return false, fmt.Sprintf("max loss streak reached (%d)", l.cfg.MaxLossStreak)
	}

	return true, ""
}

// RecordOutcome applies execution feedback to the counters.
func (l *Limiter) RecordOutcome(o domain.Outcome, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked(now)

	l.counters.TradesExecutedToday++
	switch {
	case o.IsLoss():
		l.counters.ConsecutiveLosses++
		l.counters.RealizedLossToday = l.counters.RealizedLossToday.Add(o.PnL.Neg())
	case o.IsWin():
		l.counters.ConsecutiveLosses = 0
	}

	if l.counters.ConsecutiveLosses >= l.cfg.MaxLossStreak && !l.reviewRequired {
		l.reviewRequired = true
		l.logger.Warn("loss streak cap hit, human review required",
			zap.Int("streak", l.counters.ConsecutiveLosses),
			zap.Int("max", l.cfg.MaxLossStreak))
	}

	l.logger.Info("outcome recorded",
		zap.String("pair", o.Pair.String()),
		zap.String("pnl", o.PnL.String()),
		zap.Int("trades_today", l.counters.TradesExecutedToday),
		zap.Int("loss_streak", l.counters.ConsecutiveLosses))
}

// AcknowledgeReview clears the loss-streak latch after an explicit
// human acknowledgment.
func (l *Limiter) AcknowledgeReview() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reviewRequired = false
	l.counters.ConsecutiveLosses = 0
	l.logger.Info("session reviewed, loss streak cleared")
}

// Block manually stops new admissions. Distinct from the kill switch:
// it gates new decisions only and touches nothing in flight.
func (l *Limiter) Block(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.blocked = true
	l.blockReason = reason
	l.logger.Warn("session manually blocked", zap.String("reason", reason))
}

// Unblock removes a manual block.
func (l *Limiter) Unblock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.blocked = false
	l.blockReason = ""
	l.logger.Info("session unblocked")
}

// Stats returns a snapshot of the current counters.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		Counters:       l.counters,
		ReviewRequired: l.reviewRequired,
		Blocked:        l.blocked,
		BlockReason:    l.blockReason,
	}
}

// rolloverLocked resets daily counters when now has crossed the session
// boundary. The loss streak and its latch reset only when configured to.
func (l *Limiter) rolloverLocked(now time.Time) {
	local := now.In(l.loc)
	open := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, l.loc)

	if l.dayOpen.IsZero() {
		l.dayOpen = open
		return
	}
	if open.Equal(l.dayOpen) {
		return
	}

	l.dayOpen = open
	l.counters.TradesExecutedToday = 0
	l.counters.RealizedLossToday = decimal.Zero
	if l.cfg.StreakResetsDaily {
		l.counters.ConsecutiveLosses = 0
		l.reviewRequired = false
	}
	l.logger.Info("session boundary crossed, daily counters reset",
		zap.Bool("streak_reset", l.cfg.StreakResetsDaily))
}
