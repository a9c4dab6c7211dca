package chain

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

var (
	_ swapintf.EventSource = (*SimChain)(nil)
	_ swapintf.Submitter   = (*SimChain)(nil)
)

// SimChain 进程内模拟链，同时充当日志来源与合约调用器
//
// 每笔调用单独出一个区块，存款叶子下标按调用顺序分配。
// 与合约一致，已使用的 nullifier 不能再次提款。
type SimChain struct {
	mu         sync.Mutex
	events     []types.ChainEvent
	leaves     uint64
	block      uint64
	nullifiers map[string]struct{}
	wake       chan struct{}
}

// NewSimChain 创建模拟链
func NewSimChain() *SimChain {
	return &SimChain{
		nullifiers: make(map[string]struct{}),
		wake:       make(chan struct{}),
	}
}

// Deposit 实现 swapintf.Submitter
func (c *SimChain) Deposit(_ context.Context, call swapintf.DepositCall) (string, error) {
	if _, _, err := DepositArgs(call, common.Address{}); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := c.nextRefLocked()
	ev := &types.DepositEvent{
		EventRef:   ref,
		Commitment: call.Commitment,
		LeafIndex:  c.leaves,
	}
	if call.Role == types.RoleInitiator {
		ev.OrderIDHash = call.OrderIDHash
		ev.Hashlock = call.Hashlock
	}
	c.leaves++
	c.appendLocked(types.ChainEvent{Kind: types.EventDeposit, Deposit: ev})
	return ref.TxHash, nil
}

// Withdraw 实现 swapintf.Submitter
func (c *SimChain) Withdraw(_ context.Context, call swapintf.WithdrawCall) (string, error) {
	if _, _, err := WithdrawArgs(call); err != nil {
		return "", err
	}
	nullifier := call.Proof.PublicInputs[0]

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, spent := c.nullifiers[nullifier.Hex()]; spent {
		return "", fmt.Errorf("nullifier %s already spent", nullifier.Hex())
	}
	c.nullifiers[nullifier.Hex()] = struct{}{}

	ref := c.nextRefLocked()
	ev := &types.WithdrawalEvent{
		EventRef:  ref,
		Role:      call.Role,
		Nullifier: types.Nullifier{FieldElement: nullifier},
	}
	if call.Role == types.RoleInitiator {
		ev.OrderIDHash = call.OrderIDHash
		ev.Nonce = types.HashlockNonce{FieldElement: call.Proof.PublicInputs[2]}
	}
	c.appendLocked(types.ChainEvent{Kind: types.EventWithdrawal, Withdrawal: ev})
	return ref.TxHash, nil
}

func (c *SimChain) nextRefLocked() types.EventRef {
	c.block++
	return types.EventRef{
		BlockNumber: c.block,
		TxHash:      fmt.Sprintf("0x%064x", c.block),
		LogIndex:    0,
	}
}

func (c *SimChain) appendLocked(ev types.ChainEvent) {
	c.events = append(c.events, ev)
	close(c.wake)
	c.wake = make(chan struct{})
}

// FetchDeposits 实现 swapintf.EventSource
func (c *SimChain) FetchDeposits(_ context.Context, fromBlock uint64) ([]types.DepositEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.DepositEvent
	for _, ev := range c.events {
		if ev.Deposit != nil && ev.Deposit.BlockNumber >= fromBlock {
			out = append(out, *ev.Deposit)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeafIndex < out[j].LeafIndex })
	return out, nil
}

// FetchWithdrawals 实现 swapintf.EventSource
func (c *SimChain) FetchWithdrawals(_ context.Context, fromBlock uint64) ([]types.WithdrawalEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.WithdrawalEvent
	for _, ev := range c.events {
		if ev.Withdrawal != nil && ev.Withdrawal.BlockNumber >= fromBlock {
			out = append(out, *ev.Withdrawal)
		}
	}
	return out, nil
}

// Subscribe 实现 swapintf.EventSource
func (c *SimChain) Subscribe(ctx context.Context, fromBlock uint64) (<-chan types.ChainEvent, <-chan error) {
	events := make(chan types.ChainEvent, defaultEventBuffer)
	errs := make(chan error, 1)
	go func() {
		defer close(events)
		cursor := 0
		for {
			c.mu.Lock()
			pending := append([]types.ChainEvent(nil), c.events[cursor:]...)
			cursor = len(c.events)
			wake := c.wake
			c.mu.Unlock()

			for _, ev := range pending {
				if ev.Ref().BlockNumber < fromBlock {
					continue
				}
				if !emit(ctx, events, ev) {
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-wake:
			}
		}
	}()
	return events, errs
}

// Events 全部已出块的日志
func (c *SimChain) Events() []types.ChainEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.ChainEvent(nil), c.events...)
}

// Head 最新区块高度
func (c *SimChain) Head() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}
