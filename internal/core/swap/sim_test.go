package swap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ztomic/v1/internal/core/chain"
	"github.com/ztomic/v1/internal/core/ledger"
	"github.com/ztomic/v1/internal/core/zkproof"
	"github.com/ztomic/v1/pkg/types"
)

const simRecipient = "0x00000000000000000000000000000000000000c3"

// 双方共享同一条模拟链，各自订阅日志推进状态
func TestSwapOverSimChain(t *testing.T) {
	w := newWorld(t)
	sim := chain.NewSimChain()

	newOrchestrator := func() *Orchestrator {
		l, err := ledger.New(nil, w.hasher, 3, nil, nil)
		require.NoError(t, err)
		o, err := New(Deps{
			Ledger:     l,
			Scheme:     w.scheme,
			Keys:       w.keys,
			Codec:      w.codec,
			Prover:     zkproof.NewGenerator(nil, w.scheme, w.keys, w.codec, &fakeBackend{}),
			Submitter:  sim,
			Source:     sim,
			RetryDelay: time.Millisecond,
		})
		require.NoError(t, err)
		return o
	}
	alice, bob := newOrchestrator(), newOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	aliceID, err := alice.Open(ctx, OpenParams{
		Role: types.RoleInitiator, OrderID: testOrderID, Secret: w.alice, CounterpartyPK: w.bobPK, Nonce: w.nonce,
	})
	require.NoError(t, err)
	bobID, err := bob.Open(ctx, OpenParams{
		Role: types.RoleResponder, OrderID: testOrderID, Secret: w.bob, CounterpartyPK: w.alicePK,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, o := range []*Orchestrator{alice, bob} {
		wg.Add(1)
		go func(o *Orchestrator) {
			defer wg.Done()
			_ = o.Follow(ctx, 0)
		}(o)
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	waitState := func(o *Orchestrator, id string, want types.SwapState) {
		t.Helper()
		require.Eventually(t, func() bool {
			st, err := o.Status(id)
			return err == nil && st.State == want
		}, 5*time.Second, 5*time.Millisecond, "want %s", want)
	}

	_, err = alice.Deposit(ctx, aliceID)
	require.NoError(t, err)
	waitState(bob, bobID, types.StateInitiatorDeposited)

	_, err = bob.Deposit(ctx, bobID)
	require.NoError(t, err)
	waitState(alice, aliceID, types.StateWithdrawalReady)
	waitState(bob, bobID, types.StateBothDeposited)

	_, err = alice.Withdraw(ctx, aliceID, simRecipient)
	require.NoError(t, err)
	waitState(alice, aliceID, types.StateCompleted)
	waitState(bob, bobID, types.StateWithdrawalReady)

	_, err = bob.Withdraw(ctx, bobID, simRecipient)
	require.NoError(t, err)
	waitState(bob, bobID, types.StateCompleted)

	stA, err := alice.Status(aliceID)
	require.NoError(t, err)
	stB, err := bob.Status(bobID)
	require.NoError(t, err)
	require.True(t, stA.Root.Equal(stB.Root))
	require.Equal(t, 6, stA.Transitions)
	require.Equal(t, 6, stB.Transitions)
	require.Len(t, sim.Events(), 4)
}
