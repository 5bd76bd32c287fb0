package halt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCancelExecutor struct {
	mu      sync.Mutex
	cancels int
	closes  int
}

func (f *fakeCancelExecutor) CancelAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeCancelExecutor) CloseAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeCancelExecutor) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels, f.closes
}

func TestKillSwitch_Trip(t *testing.T) {
	exec := &fakeCancelExecutor{}
	k := New(exec, zap.NewNop())

	require.False(t, k.IsTripped())

	k.Trip("manual halt")
	assert.True(t, k.IsTripped())

	tripped, reason := k.Reason()
	assert.True(t, tripped)
	assert.Equal(t, "manual halt", reason)

	require.Eventually(t, func() bool {
		cancels, closes := exec.counts()
		return cancels == 1 && closes == 1
	}, time.Second, 5*time.Millisecond, "trip requests cancel-all and close-all")
}

func TestKillSwitch_TripIsIdempotent(t *testing.T) {
	exec := &fakeCancelExecutor{}
	k := New(exec, zap.NewNop())

	k.Trip("first")
	k.Trip("second")
	k.Trip("third")

	_, reason := k.Reason()
	assert.Equal(t, "first", reason, "subsequent trips do not overwrite the reason")
	assert.Len(t, k.History(), 1)

	require.Eventually(t, func() bool {
		cancels, _ := exec.counts()
		return cancels == 1
	}, time.Second, 5*time.Millisecond)

	// still exactly one request after a settling period
	time.Sleep(20 * time.Millisecond)
	cancels, closes := exec.counts()
	assert.Equal(t, 1, cancels)
	assert.Equal(t, 1, closes)
}

func TestKillSwitch_ClearRequiresAck(t *testing.T) {
	k := New(nil, zap.NewNop())
	k.Trip("incident")

	err := k.Clear("")
	require.Error(t, err)
	assert.True(t, k.IsTripped(), "halt survives a clear without acknowledgment")

	require.NoError(t, k.Clear("operator: incident reviewed"))
	assert.False(t, k.IsTripped())
}

func TestKillSwitch_ClearWhenNotTripped(t *testing.T) {
	k := New(nil, zap.NewNop())
	assert.NoError(t, k.Clear("ack"))
	assert.False(t, k.IsTripped())
}

func TestKillSwitch_NilExecutor(t *testing.T) {
	k := New(nil, zap.NewNop())
	k.Trip("no execution layer wired")

	assert.True(t, k.IsTripped())
	history := k.History()
	require.Len(t, history, 1)
	assert.False(t, history[0].CancelRequested)
}

func TestKillSwitch_HistoryAccumulates(t *testing.T) {
	k := New(nil, zap.NewNop())

	k.Trip("first incident")
	require.NoError(t, k.Clear("reviewed"))
	k.Trip("second incident")

	history := k.History()
	require.Len(t, history, 2)
	assert.Equal(t, "first incident", history[0].Reason)
	assert.Equal(t, "second incident", history[1].Reason)
}
