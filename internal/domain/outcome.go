package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is execution feedback for a completed trade.
type Outcome struct {
	DecisionID string          `json:"decision_id"`
	Pair       Pair            `json:"pair"`
	PnL        decimal.Decimal `json:"pnl"`
	ClosedAt   time.Time       `json:"closed_at"`
}

// IsWin reports a profitable outcome.
func (o Outcome) IsWin() bool {
	return o.PnL.IsPositive()
}

// IsLoss reports a losing outcome.
func (o Outcome) IsLoss() bool {
	return o.PnL.IsNegative()
}

// ExecutionResult is returned by the execution layer for a forwarded decision.
type ExecutionResult struct {
	FillPrice decimal.Decimal
	Slippage  decimal.Decimal
	Executed  bool
}
