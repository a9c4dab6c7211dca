// Package storagetest 提供 EventStore 实现共用的一致性测试
package storagetest

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

// Deposit 构造测试用存款事件
func Deposit(leaf uint64, commitment uint64) types.DepositEvent {
	return types.DepositEvent{
		EventRef: types.EventRef{
			BlockNumber: 100 + leaf,
			TxHash:      "0xAB" + string(rune('a'+leaf%26)),
			LogIndex:    uint(leaf),
		},
		Commitment: types.Commitment{FieldElement: types.FieldElementFromUint64(commitment)},
		Hashlock:   types.Hashlock{FieldElement: types.FieldElementFromUint64(commitment + 1)},
		LeafIndex:  leaf,
	}
}

// Withdrawal 构造测试用提款事件
func Withdrawal(block uint64, logIndex uint, nullifier uint64) types.WithdrawalEvent {
	return types.WithdrawalEvent{
		EventRef: types.EventRef{
			BlockNumber: block,
			TxHash:      "0xcafe",
			LogIndex:    logIndex,
		},
		Role:      types.RoleInitiator,
		Nullifier: types.Nullifier{FieldElement: types.FieldElementFromUint64(nullifier)},
		Nonce:     types.HashlockNonce{FieldElement: types.FieldElementFromUint64(7)},
	}
}

// Run 对 newStore 创建的存储执行一致性测试
//
// 每个子测试使用独立的新实例。
func Run(t *testing.T, newStore func(t *testing.T) swapintf.EventStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("空存储", func(t *testing.T) {
		s := newStore(t)
		deposits, err := s.Deposits(ctx)
		require.NoError(t, err)
		require.Empty(t, deposits)

		withdrawals, err := s.Withdrawals(ctx)
		require.NoError(t, err)
		require.Empty(t, withdrawals)

		cp, err := s.Checkpoint(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(0), cp)
	})

	t.Run("存款按叶子下标排序", func(t *testing.T) {
		s := newStore(t)
		// 乱序写入，跨越一个字节边界
		for _, leaf := range []uint64{3, 0, 256, 2, 1} {
			require.NoError(t, s.PutDeposit(ctx, Deposit(leaf, 1000+leaf)))
		}

		deposits, err := s.Deposits(ctx)
		require.NoError(t, err)
		require.Len(t, deposits, 5)
		want := []uint64{0, 1, 2, 3, 256}
		for i, ev := range deposits {
			require.Equal(t, want[i], ev.LeafIndex)
			require.True(t, ev.Commitment.Equal(types.FieldElementFromUint64(1000+want[i])))
			require.True(t, ev.Hashlock.Equal(types.FieldElementFromUint64(1001+want[i])))
			require.Equal(t, 100+want[i], ev.BlockNumber)
		}
	})

	t.Run("同一叶子重复写入覆盖", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutDeposit(ctx, Deposit(0, 1)))
		require.NoError(t, s.PutDeposit(ctx, Deposit(0, 1)))

		deposits, err := s.Deposits(ctx)
		require.NoError(t, err)
		require.Len(t, deposits, 1)
	})

	t.Run("提款与进度", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutWithdrawal(ctx, Withdrawal(12, 1, 9)))
		require.NoError(t, s.PutWithdrawal(ctx, Withdrawal(10, 4, 8)))
		require.NoError(t, s.PutWithdrawal(ctx, Withdrawal(10, 4, 8)))

		withdrawals, err := s.Withdrawals(ctx)
		require.NoError(t, err)
		require.Len(t, withdrawals, 2)
		require.Equal(t, uint64(10), withdrawals[0].BlockNumber)
		require.True(t, withdrawals[0].Nullifier.Equal(types.FieldElementFromUint64(8)))
		require.Equal(t, types.RoleInitiator, withdrawals[1].Role)

		require.NoError(t, s.SetCheckpoint(ctx, 42))
		cp, err := s.Checkpoint(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(42), cp)
	})

	t.Run("重置清空全部数据", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutDeposit(ctx, Deposit(0, 1)))
		require.NoError(t, s.PutWithdrawal(ctx, Withdrawal(1, 0, 2)))
		require.NoError(t, s.SetCheckpoint(ctx, 9))

		require.NoError(t, s.Reset(ctx))

		deposits, err := s.Deposits(ctx)
		require.NoError(t, err)
		require.Empty(t, deposits)
		withdrawals, err := s.Withdrawals(ctx)
		require.NoError(t, err)
		require.Empty(t, withdrawals)
		cp, err := s.Checkpoint(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(0), cp)
	})

	t.Run("nonce按订单读写", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.Nonce(ctx, "order-1")
		require.NoError(t, err)
		require.False(t, ok)

		large := types.ReduceFieldElement(new(big.Int).Lsh(big.NewInt(1), 250))
		cases := []struct {
			name  string
			order string
			nonce types.FieldElement
		}{
			{"小值", "order-1", types.FieldElementFromUint64(7)},
			{"接近模数的大值", "order-2", large},
			{"覆盖旧值", "order-1", types.FieldElementFromUint64(8)},
		}
		for _, tc := range cases {
			require.NoError(t, s.PutNonce(ctx, tc.order, types.HashlockNonce{FieldElement: tc.nonce}), tc.name)
			got, ok, err := s.Nonce(ctx, tc.order)
			require.NoError(t, err, tc.name)
			require.True(t, ok, tc.name)
			require.True(t, got.Equal(tc.nonce), tc.name)
		}

		require.Error(t, s.PutNonce(ctx, "order-3", types.HashlockNonce{}))
	})

	t.Run("重置保留nonce", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.PutDeposit(ctx, Deposit(0, 1)))
		require.NoError(t, s.PutNonce(ctx, "order-1", types.HashlockNonce{FieldElement: types.FieldElementFromUint64(5)}))

		require.NoError(t, s.Reset(ctx))

		deposits, err := s.Deposits(ctx)
		require.NoError(t, err)
		require.Empty(t, deposits)
		got, ok, err := s.Nonce(ctx, "order-1")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, got.Equal(types.FieldElementFromUint64(5)))
	})

	t.Run("拒绝未设置的承诺", func(t *testing.T) {
		s := newStore(t)
		ev := Deposit(0, 1)
		ev.Commitment = types.Commitment{}
		require.Error(t, s.PutDeposit(ctx, ev))
	})
}
