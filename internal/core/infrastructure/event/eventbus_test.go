package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ztomic/v1/pkg/types"
)

func TestSyncPublish(t *testing.T) {
	bus := New(nil)

	var got types.SwapStateChanged
	handler := func(ev types.SwapStateChanged) { got = ev }
	require.NoError(t, bus.Subscribe(TopicSwapStateChanged, handler))
	require.True(t, bus.HasCallback(TopicSwapStateChanged))

	bus.Publish(TopicSwapStateChanged, types.SwapStateChanged{
		SwapID: "s1",
		Role:   types.RoleInitiator,
		From:   types.StateAwaitingDeposits,
		To:     types.StateInitiatorDeposited,
	})
	require.Equal(t, "s1", got.SwapID)
	require.Equal(t, types.StateInitiatorDeposited, got.To)

	require.NoError(t, bus.Unsubscribe(TopicSwapStateChanged, handler))
	require.False(t, bus.HasCallback(TopicSwapStateChanged))

	got = types.SwapStateChanged{}
	bus.Publish(TopicSwapStateChanged, types.SwapStateChanged{SwapID: "s2"})
	require.Empty(t, got.SwapID, "取消订阅后不再接收")
}

func TestAsyncPublish(t *testing.T) {
	bus := New(nil)

	var (
		mu    sync.Mutex
		roots []uint64
	)
	require.NoError(t, bus.SubscribeAsync(TopicLedgerRootChanged, func(ev types.LedgerRootChanged) {
		mu.Lock()
		defer mu.Unlock()
		roots = append(roots, ev.Leaves)
	}, true))

	for i := uint64(1); i <= 3; i++ {
		bus.Publish(TopicLedgerRootChanged, types.LedgerRootChanged{Leaves: i})
	}
	bus.WaitAsync()

	mu.Lock()
	defer mu.Unlock()
	// transactional 订阅按发布顺序串行执行
	require.Equal(t, []uint64{1, 2, 3}, roots)
}

func TestSubscribeOnce(t *testing.T) {
	bus := New(nil)
	calls := 0
	require.NoError(t, bus.SubscribeOnce(TopicSwapProofFailed, func(types.SwapProofFailed) { calls++ }))

	bus.Publish(TopicSwapProofFailed, types.SwapProofFailed{})
	bus.Publish(TopicSwapProofFailed, types.SwapProofFailed{})
	require.Equal(t, 1, calls)
}

func TestHandlerPanicDoesNotEscape(t *testing.T) {
	bus := New(nil)
	require.NoError(t, bus.Subscribe(TopicSwapProofFailed, func(types.SwapProofFailed) { panic("boom") }))

	require.NotPanics(t, func() {
		bus.Publish(TopicSwapProofFailed, types.SwapProofFailed{SwapID: "x"})
	})
	published, panics := bus.Stats()
	require.Equal(t, uint64(1), published)
	require.Equal(t, uint64(1), panics)
}

func TestSubscribeRejectsNonFunc(t *testing.T) {
	bus := New(nil)
	require.Error(t, bus.Subscribe(TopicSwapProofFailed, "not a func"))
}
