package swap

import (
	"context"

	"github.com/ztomic/v1/pkg/types"
)

// EventSource 链上日志来源
type EventSource interface {
	// FetchDeposits 拉取 fromBlock 起的全部存款日志，按叶子下标排序
	FetchDeposits(ctx context.Context, fromBlock uint64) ([]types.DepositEvent, error)

	// FetchWithdrawals 拉取 fromBlock 起的全部提款日志
	FetchWithdrawals(ctx context.Context, fromBlock uint64) ([]types.WithdrawalEvent, error)

	// Subscribe 先回放历史再推送新日志，channel 在 ctx 取消后关闭
	Subscribe(ctx context.Context, fromBlock uint64) (<-chan types.ChainEvent, <-chan error)
}

// DepositCall deposit_initiator / deposit_responder 参数
type DepositCall struct {
	Role        types.Role
	Commitment  types.Commitment
	OrderIDHash [32]byte // 仅发起方
	Hashlock    types.Hashlock
	Flag        bool
}

// WithdrawCall withdraw_initiator / withdraw_responder 参数
type WithdrawCall struct {
	Role        types.Role
	Proof       types.Proof
	OrderIDHash [32]byte // 仅发起方
	Recipient   string
}

// Submitter 合约调用
type Submitter interface {
	Deposit(ctx context.Context, call DepositCall) (txHash string, err error)
	Withdraw(ctx context.Context, call WithdrawCall) (txHash string, err error)
}
