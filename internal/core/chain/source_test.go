package chain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/ztomic/v1/pkg/types"
)

type fakeSub struct {
	errs chan error
	once sync.Once
}

func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errs) }) }
func (s *fakeSub) Err() <-chan error { return s.errs }

type fakeLogClient struct {
	mu      sync.Mutex
	head    uint64
	logs    []ethtypes.Log
	filters int
	subErr  error
	live    chan<- ethtypes.Log
	sub     *fakeSub
}

func (c *fakeLogClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters++
	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	var out []ethtypes.Log
	for _, lg := range c.logs {
		if lg.BlockNumber < from || lg.BlockNumber > to {
			continue
		}
		if len(q.Topics) > 0 && !containsTopic(q.Topics[0], lg.Topics[0]) {
			continue
		}
		out = append(out, lg)
	}
	// 节点返回顺序不保证
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (c *fakeLogClient) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subErr != nil {
		return nil, c.subErr
	}
	c.live = ch
	c.sub = &fakeSub{errs: make(chan error, 1)}
	return c.sub, nil
}

func (c *fakeLogClient) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *fakeLogClient) add(head uint64, logs ...ethtypes.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, logs...)
	c.head = head
}

func (c *fakeLogClient) liveChan() chan<- ethtypes.Log {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func containsTopic(set []common.Hash, h common.Hash) bool {
	for _, s := range set {
		if s == h {
			return true
		}
	}
	return false
}

func recv(t *testing.T, events <-chan types.ChainEvent) types.ChainEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return types.ChainEvent{}
}

func TestFetchDepositsSortedByLeaf(t *testing.T) {
	client := &fakeLogClient{head: 12000}
	client.add(12000,
		depositLog(t, 11000, 0, 12, [32]byte{}, 2, [32]byte{}),
		depositLog(t, 10, 1, 10, [32]byte{1}, 0, word(5)),
		responderWithdrawalLog(t, 20, 99),
		depositLog(t, 6000, 0, 11, [32]byte{}, 1, [32]byte{}),
		depositLog(t, 11999, 0, 13, [32]byte{}, 3, [32]byte{}),
	)
	src, err := NewEthSource(client, SourceOptions{Confirmations: 1}, nil)
	require.NoError(t, err)

	deposits, err := src.FetchDeposits(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, deposits, 4)
	for i, d := range deposits {
		require.Equal(t, uint64(i), d.LeafIndex)
	}
	// 11999 块: 0..4999, 5000..9999, 10000..11999
	require.Equal(t, 3, client.filters)

	withdrawals, err := src.FetchWithdrawals(context.Background(), 15)
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	require.True(t, withdrawals[0].Nullifier.Equal(types.FieldElementFromUint64(99)))
}

func TestFetchRespectsConfirmations(t *testing.T) {
	client := &fakeLogClient{}
	client.add(100,
		depositLog(t, 90, 0, 1, [32]byte{}, 0, [32]byte{}),
		depositLog(t, 99, 0, 2, [32]byte{}, 1, [32]byte{}),
	)
	src, err := NewEthSource(client, SourceOptions{Confirmations: 5}, nil)
	require.NoError(t, err)

	deposits, err := src.FetchDeposits(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	require.Equal(t, uint64(90), deposits[0].BlockNumber)
}

func TestSubscribePolling(t *testing.T) {
	client := &fakeLogClient{}
	client.add(50,
		depositLog(t, 30, 1, 2, [32]byte{}, 1, [32]byte{}),
		depositLog(t, 30, 0, 1, [32]byte{3}, 0, word(8)),
		depositLog(t, 5, 0, 9, [32]byte{}, 9, [32]byte{}),
	)
	src, err := NewEthSource(client, SourceOptions{Confirmations: 1, PollInterval: 5 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errs := src.Subscribe(ctx, 10)

	first := recv(t, events)
	second := recv(t, events)
	require.Equal(t, uint(0), first.Ref().LogIndex)
	require.Equal(t, uint(1), second.Ref().LogIndex)

	client.add(61, responderWithdrawalLog(t, 60, 7))
	live := recv(t, events)
	require.Equal(t, types.EventWithdrawal, live.Kind)
	require.Equal(t, uint64(60), live.Ref().BlockNumber)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	select {
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	default:
	}
}

func TestSubscribeLive(t *testing.T) {
	t.Run("订阅推送新日志", func(t *testing.T) {
		client := &fakeLogClient{}
		client.add(5, depositLog(t, 3, 0, 1, [32]byte{}, 0, [32]byte{}))
		src, err := NewEthSource(client, SourceOptions{}, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		events, _ := src.Subscribe(ctx, 0)
		require.Equal(t, uint64(3), recv(t, events).Ref().BlockNumber)

		require.Eventually(t, func() bool { return client.liveChan() != nil }, 2*time.Second, 5*time.Millisecond)
		client.liveChan() <- depositLog(t, 6, 0, 2, [32]byte{}, 1, [32]byte{})
		require.Equal(t, uint64(6), recv(t, events).Ref().BlockNumber)
	})

	t.Run("日志被撤销", func(t *testing.T) {
		client := &fakeLogClient{}
		src, err := NewEthSource(client, SourceOptions{}, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_, errs := src.Subscribe(ctx, 0)

		require.Eventually(t, func() bool { return client.liveChan() != nil }, 2*time.Second, 5*time.Millisecond)
		removed := depositLog(t, 6, 0, 2, [32]byte{}, 1, [32]byte{})
		removed.Removed = true
		client.liveChan() <- removed

		select {
		case err := <-errs:
			require.True(t, errors.Is(err, ErrLogRemoved))
		case <-time.After(2 * time.Second):
			t.Fatal("expected ErrLogRemoved")
		}
	})

	t.Run("不支持订阅时轮询", func(t *testing.T) {
		client := &fakeLogClient{subErr: errors.New("notifications not supported")}
		client.add(1)
		src, err := NewEthSource(client, SourceOptions{PollInterval: 5 * time.Millisecond}, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		events, _ := src.Subscribe(ctx, 0)

		client.add(4, depositLog(t, 3, 0, 1, [32]byte{}, 0, [32]byte{}))
		require.Equal(t, uint64(3), recv(t, events).Ref().BlockNumber)
	})
}
