package correlator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ztomic/v1/pkg/types"
)

func fe(v uint64) types.FieldElement { return types.FieldElementFromUint64(v) }

var orderHash = [32]byte{0x01, 0x02}

func initiatorDeposit(tx string, hashlock uint64) types.ChainEvent {
	return types.ChainEvent{Kind: types.EventDeposit, Deposit: &types.DepositEvent{
		EventRef:    types.EventRef{TxHash: tx},
		Commitment:  types.Commitment{FieldElement: fe(10)},
		OrderIDHash: orderHash,
		Hashlock:    types.Hashlock{FieldElement: fe(hashlock)},
	}}
}

func responderDeposit(tx string, commitment uint64) types.ChainEvent {
	return types.ChainEvent{Kind: types.EventDeposit, Deposit: &types.DepositEvent{
		EventRef:   types.EventRef{TxHash: tx},
		Commitment: types.Commitment{FieldElement: fe(commitment)},
		LeafIndex:  1,
	}}
}

func withdrawalEvent(tx string, role types.Role, nullifier uint64, oh [32]byte) types.ChainEvent {
	return types.ChainEvent{Kind: types.EventWithdrawal, Withdrawal: &types.WithdrawalEvent{
		EventRef:    types.EventRef{TxHash: tx},
		Role:        role,
		Nullifier:   types.Nullifier{FieldElement: fe(nullifier)},
		OrderIDHash: oh,
		Nonce:       types.HashlockNonce{FieldElement: fe(42)},
	}}
}

func TestCorrelate(t *testing.T) {
	c := New()
	require.NoError(t, c.Watch(Watch{
		SwapID:              "s1",
		OrderIDHash:         orderHash,
		ResponderCommitment: types.Commitment{FieldElement: fe(20)},
		InitiatorNullifier:  types.Nullifier{FieldElement: fe(30)},
		ResponderNullifier:  types.Nullifier{FieldElement: fe(31)},
	}))

	cases := []struct {
		name string
		ev   types.ChainEvent
		kind MatchKind
	}{
		{"发起方存款按订单哈希", initiatorDeposit("0x1", 5), MatchInitiatorDeposit},
		{"响应方存款按承诺", responderDeposit("0x2", 20), MatchResponderDeposit},
		{"发起方提款按nullifier", withdrawalEvent("0x3", types.RoleInitiator, 30, [32]byte{}), MatchInitiatorWithdrawal},
		{"发起方提款按订单哈希", withdrawalEvent("0x4", types.RoleInitiator, 99, orderHash), MatchInitiatorWithdrawal},
		{"响应方提款按nullifier", withdrawalEvent("0x5", types.RoleResponder, 31, [32]byte{}), MatchResponderWithdrawal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matches := c.Correlate(tc.ev)
			require.Len(t, matches, 1)
			require.Equal(t, "s1", matches[0].SwapID)
			require.Equal(t, tc.kind, matches[0].Kind)
		})
	}
}

func TestExtractsHashlockAndNonce(t *testing.T) {
	c := New()
	require.NoError(t, c.Watch(Watch{SwapID: "s", OrderIDHash: orderHash}))

	m := c.Correlate(initiatorDeposit("0xa", 77))
	require.Len(t, m, 1)
	require.True(t, m[0].Hashlock.Equal(fe(77)))

	m = c.Correlate(withdrawalEvent("0xb", types.RoleInitiator, 1, orderHash))
	require.Len(t, m, 1)
	require.True(t, m[0].Nonce.Equal(fe(42)))
}

func TestNoMatch(t *testing.T) {
	c := New()
	require.NoError(t, c.Watch(Watch{SwapID: "s", OrderIDHash: orderHash}))

	cases := []struct {
		name string
		ev   types.ChainEvent
	}{
		{"其他订单的存款", func() types.ChainEvent {
			ev := initiatorDeposit("0x1", 5)
			ev.Deposit.OrderIDHash = [32]byte{0xff}
			return ev
		}()},
		{"响应方承诺未知", responderDeposit("0x2", 20)},
		{"未知nullifier", withdrawalEvent("0x3", types.RoleResponder, 30, [32]byte{})},
		{"响应方提款不按订单哈希匹配", withdrawalEvent("0x4", types.RoleResponder, 30, orderHash)},
		{"空事件", types.ChainEvent{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Empty(t, c.Correlate(tc.ev))
		})
	}
}

func TestDedupeAndLateWatch(t *testing.T) {
	c := New()
	ev := responderDeposit("0xdup", 20)

	// 未命中的日志不记入去重表
	require.Empty(t, c.Correlate(ev))

	require.NoError(t, c.Watch(Watch{SwapID: "s", OrderIDHash: orderHash}))
	require.Empty(t, c.Correlate(ev))

	require.NoError(t, c.Update("s", func(w *Watch) {
		w.ResponderCommitment = types.Commitment{FieldElement: fe(20)}
	}))
	require.Len(t, c.Correlate(ev), 1)
	require.Empty(t, c.Correlate(ev), "重复送达只匹配一次")
}

func TestWatchManagement(t *testing.T) {
	c := New()
	require.Error(t, c.Watch(Watch{}))
	require.ErrorIs(t, c.Update("missing", func(*Watch) {}), types.ErrNotFound)

	require.NoError(t, c.Watch(Watch{SwapID: "s", OrderIDHash: orderHash}))
	c.Unwatch("s")
	require.Empty(t, c.Correlate(initiatorDeposit("0x1", 1)))
}

func TestInitiatorCommitmentFallback(t *testing.T) {
	c := New()
	require.NoError(t, c.Watch(Watch{
		SwapID:              "s",
		InitiatorCommitment: types.Commitment{FieldElement: fe(10)},
	}))
	ev := initiatorDeposit("0x1", 5)
	ev.Deposit.OrderIDHash = [32]byte{}
	m := c.Correlate(ev)
	require.Len(t, m, 1)
	require.Equal(t, MatchInitiatorDeposit, m[0].Kind)
	require.Equal(t, "initiator_deposit", m[0].Kind.String())
}

func TestMatchWatchIgnoresDedupe(t *testing.T) {
	c := New()
	require.NoError(t, c.Watch(Watch{SwapID: "s1", OrderIDHash: orderHash}))
	ev := initiatorDeposit("0x1", 5)
	require.Len(t, c.Correlate(ev), 1)
	require.Empty(t, c.Correlate(ev))

	require.NoError(t, c.Watch(Watch{SwapID: "s2", OrderIDHash: orderHash}))
	m, ok := c.MatchWatch("s2", ev)
	require.True(t, ok, "已去重的日志仍可回放给新会话")
	require.Equal(t, MatchInitiatorDeposit, m.Kind)
	require.True(t, m.Hashlock.Equal(fe(5)))

	_, ok = c.MatchWatch("missing", ev)
	require.False(t, ok)
}
