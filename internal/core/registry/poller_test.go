package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	eventbus "github.com/ztomic/v1/internal/core/infrastructure/event"
	"github.com/ztomic/v1/pkg/types"
)

type changeLog struct {
	mu      sync.Mutex
	changes []types.OrderStatusChanged
}

func (l *changeLog) add(c types.OrderStatusChanged) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

func (l *changeLog) all() []types.OrderStatusChanged {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.OrderStatusChanged(nil), l.changes...)
}

func newTestPoller(t *testing.T, reg *fakeRegistry, opts PollerOptions) (*Poller, *changeLog) {
	t.Helper()
	bus := eventbus.New(nil)
	log := &changeLog{}
	require.NoError(t, bus.Subscribe(eventbus.TopicOrderStatusChanged, log.add))
	return NewPoller(newTestClient(t, reg), opts, bus, nil), log
}

func TestPollerSyncPublishesChanges(t *testing.T) {
	reg := newFakeRegistry()
	p, changes := newTestPoller(t, reg, PollerOptions{MinInterval: time.Hour, MaxRetries: 3})
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }
	ctx := t.Context()

	synced, err := p.Sync(ctx)
	require.NoError(t, err)
	require.True(t, synced)
	require.Len(t, p.Orders(), 1)
	require.Empty(t, changes.all(), "首次同步不算状态变化")

	reg.setStatus("7", types.OrderCancelled)

	// 间隔不足时跳过
	synced, err = p.Sync(ctx)
	require.NoError(t, err)
	require.False(t, synced)
	require.Equal(t, int32(1), reg.lists.Load())

	now = now.Add(2 * time.Hour)
	synced, err = p.Sync(ctx)
	require.NoError(t, err)
	require.True(t, synced)
	require.Equal(t, []types.OrderStatusChanged{{OrderID: "7", From: types.OrderPending, To: types.OrderCancelled}}, changes.all())
}

func TestPollerOrderLookup(t *testing.T) {
	t.Run("缓存命中", func(t *testing.T) {
		reg := newFakeRegistry()
		p, _ := newTestPoller(t, reg, PollerOptions{MaxRetries: 3})
		_, err := p.Sync(t.Context())
		require.NoError(t, err)

		o, err := p.Order(t.Context(), "7")
		require.NoError(t, err)
		require.Equal(t, "alice", o.Initiator)
		require.Equal(t, int32(0), reg.gets.Load())
	})

	t.Run("重试用尽后直接拉取", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.intents["9"] = map[string]interface{}{"id": "9", "initiator": "carol", "status": "active"}
		reg.hideFromList["9"] = true
		p, _ := newTestPoller(t, reg, PollerOptions{MinInterval: time.Hour, MaxRetries: 3})

		o, err := p.Order(t.Context(), "9")
		require.NoError(t, err)
		require.Equal(t, types.OrderActive, o.Status)
		require.Equal(t, int32(3), reg.lists.Load())
		require.Equal(t, int32(1), reg.gets.Load())

		// 直接拉取的结果进入缓存
		_, err = p.Order(t.Context(), "9")
		require.NoError(t, err)
		require.Equal(t, int32(1), reg.gets.Load())
	})

	t.Run("订单不存在", func(t *testing.T) {
		reg := newFakeRegistry()
		p, _ := newTestPoller(t, reg, PollerOptions{MaxRetries: 1})
		_, err := p.Order(t.Context(), "404")
		require.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("ctx 已取消", func(t *testing.T) {
		reg := newFakeRegistry()
		p, _ := newTestPoller(t, reg, PollerOptions{MaxRetries: 3})
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := p.Order(ctx, "7")
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, int32(0), reg.lists.Load())
	})
}

func TestPollerUpdateOrderStatus(t *testing.T) {
	reg := newFakeRegistry()
	p, changes := newTestPoller(t, reg, PollerOptions{MaxRetries: 3})
	ctx := t.Context()
	_, err := p.Sync(ctx)
	require.NoError(t, err)

	require.NoError(t, p.UpdateOrderStatus(ctx, "7", types.OrderCompleted))
	o, err := p.Order(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, types.OrderCompleted, o.Status)
	require.Equal(t, []types.OrderStatusChanged{{OrderID: "7", From: types.OrderPending, To: types.OrderCompleted}}, changes.all())

	require.ErrorIs(t, p.UpdateOrderStatus(ctx, "404", types.OrderCompleted), types.ErrNotFound)
}

func TestPollerRun(t *testing.T) {
	reg := newFakeRegistry()
	p, _ := newTestPoller(t, reg, PollerOptions{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	require.Eventually(t, func() bool { return reg.lists.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPollerRunSurvivesErrors(t *testing.T) {
	reg := newFakeRegistry()
	reg.failing.Store(true)
	p, _ := newTestPoller(t, reg, PollerOptions{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go p.Run(ctx)

	time.Sleep(20 * time.Millisecond)
	reg.failing.Store(false)
	require.Eventually(t, func() bool { return len(p.Orders()) == 1 }, 2*time.Second, 5*time.Millisecond)
}
