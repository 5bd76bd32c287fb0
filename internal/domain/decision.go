package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Decision is a trade proposal produced by the analysis layer.
// Immutable once created; a human "modify" produces a new Decision
// linked to the original via Supersedes.
type Decision struct {
	ID           string          `json:"id"`
	Pair         Pair            `json:"pair"`
	Action       Action          `json:"action"`
	Confidence   float64         `json:"confidence"`
	Entry        decimal.Decimal `json:"entry"`
	Stop         decimal.Decimal `json:"stop"`
	Target       decimal.Decimal `json:"target"`
	Size         decimal.Decimal `json:"size"`
	Leverage     int             `json:"leverage"`
	Reasoning    string          `json:"reasoning"`
	Invalidation string          `json:"invalidation,omitempty"`
	Supersedes   string          `json:"supersedes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewDecision builds a decision with a fresh id.
func NewDecision(pair Pair, action Action, confidence float64, entry, stop, target, size decimal.Decimal, leverage int, reasoning string, now time.Time) Decision {
	return Decision{
		ID:         uuid.New().String(),
		Pair:       pair,
		Action:     action,
		Confidence: confidence,
		Entry:      entry,
		Stop:       stop,
		Target:     target,
		Size:       size,
		Leverage:   leverage,
		Reasoning:  reasoning,
		CreatedAt:  now,
	}
}

// Modified returns a new decision superseding d with adjusted parameters.
// The original is left untouched.
func (d Decision) Modified(entry, stop, target, size decimal.Decimal, now time.Time) Decision {
	next := d
	next.ID = uuid.New().String()
	next.Entry = entry
	next.Stop = stop
	next.Target = target
	next.Size = size
	next.Supersedes = d.ID
	next.CreatedAt = now
	return next
}

// Validate checks structural validity of the decision. A failing decision
// is rejected before risk or session evaluation.
func (d Decision) Validate() error {
	if d.ID == "" {
		return errors.New("decision id is required")
	}
	if d.Pair.From == "" || d.Pair.To == "" {
		return errors.New("pair is required")
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("invalid confidence: %f (must be 0.0-1.0)", d.Confidence)
	}
	if d.Reasoning == "" {
		return errors.New("reasoning field is required")
	}
	if d.Leverage < 0 {
		return errors.New("leverage must not be negative")
	}
	if d.Size.IsNegative() {
		return errors.New("size must not be negative")
	}

	if d.Action.IsOpening() {
		if err := d.validateExitPlan(); err != nil {
			return errors.Wrap(err, "exit plan validation error")
		}
	}

	return nil
}

func (d Decision) validateExitPlan() error {
	if d.Entry.LessThanOrEqual(decimal.Zero) {
		return errors.New("entry price must be greater than 0")
	}
	if d.Stop.LessThanOrEqual(decimal.Zero) {
		return errors.New("stop price is required for opening actions")
	}

	switch d.Action {
	case ActionLong:
		if d.Stop.GreaterThanOrEqual(d.Entry) {
			return errors.New("stop must be below entry for long positions")
		}
		if d.Target.IsPositive() && d.Target.LessThanOrEqual(d.Entry) {
			return errors.New("target must be above entry for long positions")
		}
	case ActionShort:
		if d.Stop.LessThanOrEqual(d.Entry) {
			return errors.New("stop must be above entry for short positions")
		}
		if d.Target.IsPositive() && d.Target.GreaterThanOrEqual(d.Entry) {
			return errors.New("target must be below entry for short positions")
		}
	}

	return nil
}

// RiskReward returns the reward-to-risk ratio, or zero when the decision
// lacks entry, stop or target prices.
func (d Decision) RiskReward() decimal.Decimal {
	if d.Entry.IsZero() || d.Stop.IsZero() || d.Target.IsZero() {
		return decimal.Zero
	}

	risk := d.Entry.Sub(d.Stop).Abs()
	if risk.IsZero() {
		return decimal.Zero
	}

	return d.Target.Sub(d.Entry).Abs().Div(risk)
}

// RootID traces a decision back through its Supersedes chain to the
// original decision id. The index maps decision id to decision.
func RootID(index map[string]Decision, id string) string {
	seen := make(map[string]struct{})
	for {
		d, ok := index[id]
		if !ok || d.Supersedes == "" {
			return id
		}
		if _, cycle := seen[id]; cycle {
			return id
		}
		seen[id] = struct{}{}
		id = d.Supersedes
	}
}
