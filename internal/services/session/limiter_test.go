package session

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/tradegate/config"
	"github.com/vadiminshakov/tradegate/internal/domain"
	"go.uber.org/zap"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		MaxTradesPerDay:     3,
		MaxLossPercentDaily: decimal.NewFromInt(5),
		MaxLossStreak:       2,
		Timezone:            "UTC",
	}
}

func newTestLimiter(t *testing.T, cfg config.SessionConfig) *Limiter {
	t.Helper()
	limiter, err := NewLimiter(cfg, zap.NewNop())
	require.NoError(t, err)
	return limiter
}

func loss(amount int64) domain.Outcome {
	return domain.Outcome{
		DecisionID: "d",
		Pair:       domain.Pair{From: "BTC", To: "USDT"},
		PnL:        decimal.NewFromInt(-amount),
	}
}

func win(amount int64) domain.Outcome {
	return domain.Outcome{
		DecisionID: "d",
		Pair:       domain.Pair{From: "BTC", To: "USDT"},
		PnL:        decimal.NewFromInt(amount),
	}
}

func TestLimiter_InvalidTimezone(t *testing.T) {
	cfg := testSessionConfig()
	cfg.Timezone = "Mars/Olympus"

	_, err := NewLimiter(cfg, zap.NewNop())
	require.Error(t, err)
}

func TestLimiter_MaxTradesPerDay(t *testing.T) {
	limiter := newTestLimiter(t, testSessionConfig())
	equity := decimal.NewFromInt(10000)
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ok, _ := limiter.Admissible(equity, now)
		require.True(t, ok, "trade %d should be admissible", i)
		limiter.RecordOutcome(win(10), now)
	}

	ok, reason := limiter.Admissible(equity, now)
	assert.False(t, ok)
	assert.Contains(t, reason, "max daily trades reached (3)")
}

func TestLimiter_DailyLossCap(t *testing.T) {
	cfg := testSessionConfig()
	cfg.MaxTradesPerDay = 100
	cfg.MaxLossStreak = 100
	limiter := newTestLimiter(t, cfg)

	equity := decimal.NewFromInt(10000) // 5% cap = 500
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	limiter.RecordOutcome(loss(300), now)
	ok, _ := limiter.Admissible(equity, now)
	assert.True(t, ok)

	limiter.RecordOutcome(loss(250), now)
	ok, reason := limiter.Admissible(equity, now)
	assert.False(t, ok)
	assert.Contains(t, reason, "daily loss limit")
}

func TestLimiter_LossStreakLatch(t *testing.T) {
	cfg := testSessionConfig()
	cfg.MaxTradesPerDay = 10
	limiter := newTestLimiter(t, cfg)
	equity := decimal.NewFromInt(100000)
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	limiter.RecordOutcome(loss(10), now)
	ok, _ := limiter.Admissible(equity, now)
	assert.True(t, ok)

	limiter.RecordOutcome(loss(10), now)
	ok, reason := limiter.Admissible(equity, now)
	require.False(t, ok)
	assert.Contains(t, reason, "human review required")

	// wins do not clear the latch
	limiter.RecordOutcome(win(100), now)
	ok, reason = limiter.Admissible(equity, now)
	require.False(t, ok)
	assert.Contains(t, reason, "human review required")

	limiter.AcknowledgeReview()
	ok, _ = limiter.Admissible(equity, now)
	assert.True(t, ok)
	assert.Zero(t, limiter.Stats().Counters.ConsecutiveLosses)
}

func TestLimiter_WinResetsStreak(t *testing.T) {
	limiter := newTestLimiter(t, testSessionConfig())
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	limiter.RecordOutcome(loss(10), now)
	limiter.RecordOutcome(win(10), now)
	limiter.RecordOutcome(loss(10), now)

	stats := limiter.Stats()
	assert.Equal(t, 1, stats.Counters.ConsecutiveLosses)
	assert.False(t, stats.ReviewRequired)
}

func TestLimiter_DailyRollover(t *testing.T) {
	cfg := testSessionConfig()
	limiter := newTestLimiter(t, cfg)
	equity := decimal.NewFromInt(10000)

	day1 := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		limiter.RecordOutcome(win(10), day1)
	}
	ok, _ := limiter.Admissible(equity, day1)
	require.False(t, ok)

	day2 := time.Date(2026, 8, 30, 0, 1, 0, 0, time.UTC)
	ok, _ = limiter.Admissible(equity, day2)
	assert.True(t, ok, "daily trade counter resets at the session boundary")
	assert.Zero(t, limiter.Stats().Counters.TradesExecutedToday)
}

func TestLimiter_StreakPersistsAcrossBoundaryByDefault(t *testing.T) {
	limiter := newTestLimiter(t, testSessionConfig())
	equity := decimal.NewFromInt(100000)

	day1 := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	limiter.RecordOutcome(loss(10), day1)
	limiter.RecordOutcome(loss(10), day1)

	day2 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	ok, reason := limiter.Admissible(equity, day2)
	require.False(t, ok)
	assert.Contains(t, reason, "human review required")
}

func TestLimiter_StreakResetsDailyWhenConfigured(t *testing.T) {
	cfg := testSessionConfig()
	cfg.StreakResetsDaily = true
	limiter := newTestLimiter(t, cfg)
	equity := decimal.NewFromInt(100000)

	day1 := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	limiter.RecordOutcome(loss(10), day1)
	limiter.RecordOutcome(loss(10), day1)
	ok, _ := limiter.Admissible(equity, day1)
	require.False(t, ok)

	day2 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	ok, _ = limiter.Admissible(equity, day2)
	assert.True(t, ok, "streak and review latch reset at the boundary")
}

func TestLimiter_TimezoneBoundary(t *testing.T) {
	cfg := testSessionConfig()
	cfg.Timezone = "America/New_York"
	limiter := newTestLimiter(t, cfg)
	equity := decimal.NewFromInt(10000)

	// 03:00 UTC is still the previous day in New York, 23:00 UTC is not:
	// the counters reset between the two even though the UTC day matches
	first := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		limiter.RecordOutcome(win(10), first)
	}
	ok, _ := limiter.Admissible(equity, first)
	require.False(t, ok)

	later := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	ok, _ = limiter.Admissible(equity, later)
	assert.True(t, ok)
}

func TestLimiter_ManualBlock(t *testing.T) {
	limiter := newTestLimiter(t, testSessionConfig())
	equity := decimal.NewFromInt(10000)
	now := time.Now()

	limiter.Block("exchange maintenance")
	ok, reason := limiter.Admissible(equity, now)
	require.False(t, ok)
	assert.Contains(t, reason, "manually blocked: exchange maintenance")

	limiter.Unblock()
	ok, _ = limiter.Admissible(equity, now)
	assert.True(t, ok)
}
