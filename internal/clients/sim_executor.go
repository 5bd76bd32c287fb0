// Package clients holds adapters for the gateway's external
// collaborators. Only a simulated execution client lives here; real
// exchange adapters belong to the host process.
package clients

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/tradegate/internal/domain"
	"go.uber.org/zap"
)

// SimExecutor is a minimal execution simulator: fills at the entry
// price shifted by a fixed slippage percentage. Used by the default
// host wiring and by tests.
type SimExecutor struct {
	mu          sync.Mutex
	slippagePct decimal.Decimal
	fills       map[string]domain.ExecutionResult
	cancels     int
	closes      int
	logger      *zap.Logger
}

// NewSimExecutor creates a simulator with the given slippage percent.
func NewSimExecutor(slippagePct decimal.Decimal, logger *zap.Logger) *SimExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimExecutor{
		slippagePct: slippagePct,
		fills:       make(map[string]domain.ExecutionResult),
		logger:      logger,
	}
}

// Execute fills the decision immediately.
func (e *SimExecutor) Execute(ctx context.Context, d domain.Decision) (domain.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExecutionResult{}, err
	}
	if d.Entry.LessThanOrEqual(decimal.Zero) && d.Action.IsOpening() {
		return domain.ExecutionResult{}, errors.New("entry price required for simulated fill")
	}

	slip := d.Entry.Mul(e.slippagePct).Div(decimal.NewFromInt(100))
	fill := d.Entry.Add(slip)
	if d.Action == domain.ActionShort {
		fill = d.Entry.Sub(slip)
	}

	result := domain.ExecutionResult{FillPrice: fill, Slippage: slip, Executed: true}

	e.mu.Lock()
	e.fills[d.ID] = result
	e.mu.Unlock()

	e.logger.Info("simulated fill",
		zap.String("decision_id", d.ID),
		zap.String("pair", d.Pair.String()),
		zap.String("action", d.Action.String()),
		zap.String("fill_price", fill.String()))

	return result, nil
}

// CancelAll records a cancel-all request.
func (e *SimExecutor) CancelAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancels++
	e.logger.Info("simulated cancel-all")
	return nil
}

// CloseAll records a close-all request.
func (e *SimExecutor) CloseAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closes++
	e.logger.Info("simulated close-all")
	return nil
}

// Fill returns the recorded fill for a decision id.
func (e *SimExecutor) Fill(id string) (domain.ExecutionResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, ok := e.fills[id]
	return result, ok
}

// CancelRequests returns how many cancel-all requests were issued.
func (e *SimExecutor) CancelRequests() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cancels
}
