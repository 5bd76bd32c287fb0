package clients

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/tradegate/internal/domain"
	"go.uber.org/zap"
)

func simDecision(action domain.Action) domain.Decision {
	return domain.NewDecision(
		domain.Pair{From: "BTC", To: "USDT"},
		action,
		0.8,
		decimal.NewFromInt(50000),
		decimal.NewFromInt(48000),
		decimal.NewFromInt(56000),
		decimal.NewFromInt(500),
		1,
		"test",
		time.Now(),
	)
}

func TestSimExecutor_LongFillsWithSlippage(t *testing.T) {
	exec := NewSimExecutor(decimal.NewFromFloat(0.1), zap.NewNop())
	d := simDecision(domain.ActionLong)

	result, err := exec.Execute(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, result.Executed)
	// 50000 + 0.1% = 50050
	assert.True(t, result.FillPrice.Equal(decimal.NewFromInt(50050)), result.FillPrice.String())

	recorded, ok := exec.Fill(d.ID)
	require.True(t, ok)
	assert.True(t, recorded.FillPrice.Equal(result.FillPrice))
}

func TestSimExecutor_ShortFillsBelowEntry(t *testing.T) {
	exec := NewSimExecutor(decimal.NewFromFloat(0.1), zap.NewNop())
	d := simDecision(domain.ActionShort)
	d.Stop = decimal.NewFromInt(52000)
	d.Target = decimal.NewFromInt(45000)

	result, err := exec.Execute(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, result.FillPrice.Equal(decimal.NewFromInt(49950)), result.FillPrice.String())
}

func TestSimExecutor_OpeningRequiresEntry(t *testing.T) {
	exec := NewSimExecutor(decimal.Zero, zap.NewNop())
	d := simDecision(domain.ActionLong)
	d.Entry = decimal.Zero

	_, err := exec.Execute(context.Background(), d)
	require.Error(t, err)
}

func TestSimExecutor_CancelledContext(t *testing.T) {
	exec := NewSimExecutor(decimal.Zero, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, simDecision(domain.ActionLong))
	require.ErrorIs(t, err, context.Canceled)
}

func TestSimExecutor_CancelAndCloseAll(t *testing.T) {
	exec := NewSimExecutor(decimal.Zero, zap.NewNop())

	require.NoError(t, exec.CancelAll(context.Background()))
	require.NoError(t, exec.CloseAll(context.Background()))
	assert.Equal(t, 1, exec.CancelRequests())
}
