package swap

import (
	"context"

	"github.com/ztomic/v1/pkg/types"
)

// EventStore 已应用链上事件的持久化
//
// 事件部分只是加速重启的缓存，链始终是权威来源，丢失后可从链上全量重放。
// nonce 例外，见 NonceStore。
type EventStore interface {
	// PutDeposit 按叶子下标保存存款事件
	PutDeposit(ctx context.Context, ev types.DepositEvent) error

	// Deposits 按叶子下标升序返回全部存款事件
	Deposits(ctx context.Context) ([]types.DepositEvent, error)

	// PutWithdrawal 保存提款事件
	PutWithdrawal(ctx context.Context, ev types.WithdrawalEvent) error

	// Withdrawals 返回全部提款事件
	Withdrawals(ctx context.Context) ([]types.WithdrawalEvent, error)

	// Checkpoint / SetCheckpoint 已处理到的区块高度
	Checkpoint(ctx context.Context) (uint64, error)
	SetCheckpoint(ctx context.Context, block uint64) error

	// Reset 清空全部事件，Rebuild 之前调用；nonce 不受影响
	Reset(ctx context.Context) error

	NonceStore

	Close() error
}

// NonceStore 发起方哈希锁 nonce 的持久化
//
// nonce 只存在于发起方本地，提款前丢失就再也无法重建哈希锁与承诺。
type NonceStore interface {
	// PutNonce 保存订单的 nonce，已存在时覆盖
	PutNonce(ctx context.Context, orderID string, nonce types.HashlockNonce) error

	// Nonce 读取订单的 nonce，不存在时 ok 为 false
	Nonce(ctx context.Context, orderID string) (nonce types.HashlockNonce, ok bool, err error)
}

// Ledger 可重放的存款历史与由其构建的 Merkle 树
type Ledger interface {
	TreeView

	// Apply 幂等地应用一个链上事件，返回是否产生了新状态
	Apply(ctx context.Context, ev types.ChainEvent) (bool, error)

	// Rebuild 丢弃本地状态，用完整的存款历史重建
	Rebuild(ctx context.Context, deposits []types.DepositEvent) error

	// CurrentRoot 当前根
	CurrentRoot() types.FieldElement

	// LeafIndexOf 承诺的叶子下标
	LeafIndexOf(c types.Commitment) (uint64, error)

	// Leaves 已插入叶子
	Leaves() []types.FieldElement

	// Pending 等待补齐空缺的存款数量
	Pending() int

	// Deposits 已插入树的存款，按叶子下标排序
	Deposits() []types.DepositEvent

	// Withdrawals 已记录的提款
	Withdrawals() []types.WithdrawalEvent
}
