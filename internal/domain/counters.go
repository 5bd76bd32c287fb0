package domain

import "github.com/shopspring/decimal"

// SessionCounters are the rolling per-day counters owned by the session
// limiter. Mutated only by outcome feedback, reset at the session boundary.
type SessionCounters struct {
	TradesExecutedToday int
	RealizedLossToday   decimal.Decimal
	ConsecutiveLosses   int
}
