// Package risk validates proposed decisions against static risk caps.
package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/tradegate/config"
	"github.com/vadiminshakov/tradegate/internal/domain"
	"go.uber.org/zap"
)

// Verdict is the aggregated result of evaluating every risk check.
// A failing verdict downgrades the disposition; it is never fatal.
type Verdict struct {
	OK         bool
	Violations []string
}

// Reason joins all violated rules into a single journal reason.
func (v Verdict) Reason() string {
	if v.OK {
		return ""
	}
	reason := v.Violations[0]
	for _, violation := range v.Violations[1:] {
		reason += "; " + violation
	}
	return reason
}

// Gate evaluates decisions against the configured risk caps. Pure given
// the account snapshot supplied by the caller.
type Gate struct {
	cfg    config.RiskConfig
	logger *zap.Logger
}

// NewGate creates a risk gate. Config is assumed validated at startup.
func NewGate(cfg config.RiskConfig, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{cfg: cfg, logger: logger}
}

// Evaluate runs every check and reports all violations together,
// never short-circuiting.
func (g *Gate) Evaluate(d domain.Decision, snap domain.AccountSnapshot, now time.Time) Verdict {
	var violations []string

	if g.cfg.RequireStopLoss && d.Action.IsOpening() && !d.Stop.IsPositive() {
		violations = append(violations, "stop-loss is required for opening actions")
	}

	if d.Action.IsOpening() {
		if !snap.Equity.IsPositive() {
			// the size and exposure ratios are undefined without equity;
			// a degenerate snapshot must not slip past the caps
			violations = append(violations, fmt.Sprintf("account equity must be positive to open, got %s", snap.Equity))
		} else {
			hundred := decimal.NewFromInt(100)

			positionPct := d.Size.Div(snap.Equity).Mul(hundred)
			if positionPct.GreaterThan(g.cfg.MaxSinglePositionPercent) {
				violations = append(violations, fmt.Sprintf("position too large: %s%% > %s%% max",
					positionPct.StringFixed(1), g.cfg.MaxSinglePositionPercent))
			}

			exposurePct := snap.Exposure.Add(d.Size).Div(snap.Equity).Mul(hundred)
			if exposurePct.GreaterThan(g.cfg.MaxExposurePercent) {
				violations = append(violations, fmt.Sprintf("would exceed max exposure: %s%% > %s%%",
					exposurePct.StringFixed(1), g.cfg.MaxExposurePercent))
			}
		}

		if snap.OpenPositions >= g.cfg.MaxPositions {
			violations = append(violations, fmt.Sprintf("max positions reached: %d >= %d",
				snap.OpenPositions, g.cfg.MaxPositions))
		}
	}

	if d.Leverage > g.cfg.MaxLeverage {
		violations = append(violations, fmt.Sprintf("leverage too high: %d > %d max",
			d.Leverage, g.cfg.MaxLeverage))
	}

	for _, w := range g.cfg.QuietWindows {
		if w.Contains(now) {
			violations = append(violations, fmt.Sprintf("inside quiet window %s-%s", w.Start, w.End))
		}
	}
	for _, w := range g.cfg.FundingPauses {
		if w.Contains(now) {
			violations = append(violations, fmt.Sprintf("inside funding pause %s-%s", w.Start, w.End))
		}
	}

	verdict := Verdict{OK: len(violations) == 0, Violations: violations}
	if !verdict.OK {
		g.logger.Debug("risk gate violations",
			zap.String("decision_id", d.ID),
			zap.Strings("violations", violations))
	}

	return verdict
}
