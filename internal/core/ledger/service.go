// Package ledger 维护可重放的存款历史以及由其构建的 Merkle 树
//
// 叶子只按链上 leafIndex 顺序插入：
//   - 下标等于当前长度的存款立即插入，随后补齐缓冲中连续的后继；
//   - 下标超前的存款进入缓冲，等待空缺补齐；
//   - 下标落后的存款若承诺一致视为重复，否则报 ErrLeafConflict。
//
// 事件先写入 EventStore 再改内存状态，持久化失败时账本保持不变。
//
// 每插入一个叶子发布一条 ledger.root.changed，携带插入后的根与叶子数。
// 发布在锁外进行，一次 Apply 补齐多个叶子时，订阅者处理较早的事件时
// CurrentRoot() 可能已是之后的根，应以事件中的 Root 为准。
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ztomic/v1/internal/core/infrastructure/crypto/merkle"
	eventbus "github.com/ztomic/v1/internal/core/infrastructure/event"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/internal/core/infrastructure/metrics"
	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/event"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

var _ swapintf.Ledger = (*Service)(nil)

// Service 实现 swapintf.Ledger
type Service struct {
	mu     sync.RWMutex
	logger log.Logger
	store  swapintf.EventStore
	bus    event.EventBus
	tree   *merkle.Tree

	deposits    []types.DepositEvent             // 已插入的存款，下标即叶子下标
	pending     map[uint64]types.DepositEvent    // 等待补齐空缺的存款
	seen        map[string]struct{}              // 已处理日志 txHash:logIndex
	withdrawals map[string]types.WithdrawalEvent // nullifier -> 提款事件

	rootChanges []types.LedgerRootChanged // 待锁外发布的根变化
	checkpoint  uint64
}

// New 创建账本
//
// store 与 bus 可以为 nil：无持久化、无事件通知。
func New(logger log.Logger, hasher cryptointf.Hasher, depth int, store swapintf.EventStore, bus event.EventBus) (*Service, error) {
	tree, err := merkle.New(depth, hasher)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logimpl.NewNop()
	}
	return &Service{
		logger:      logger,
		store:       store,
		bus:         bus,
		tree:        tree,
		pending:     make(map[uint64]types.DepositEvent),
		seen:        make(map[string]struct{}),
		withdrawals: make(map[string]types.WithdrawalEvent),
	}, nil
}

// Load 从 EventStore 恢复状态，返回已同步的区块高度
func (s *Service) Load(ctx context.Context) (uint64, error) {
	if s.store == nil {
		return 0, nil
	}
	deposits, err := s.store.Deposits(ctx)
	if err != nil {
		return 0, fmt.Errorf("load deposits: %w", err)
	}
	withdrawals, err := s.store.Withdrawals(ctx)
	if err != nil {
		return 0, fmt.Errorf("load withdrawals: %w", err)
	}
	checkpoint, err := s.store.Checkpoint(ctx)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rebuildLocked(deposits); err != nil {
		return 0, err
	}
	for _, ev := range withdrawals {
		s.seen[ev.Key()] = struct{}{}
		s.withdrawals[ev.Nullifier.Hex()] = ev
	}
	s.checkpoint = checkpoint
	s.logger.Infof("账本已从存储恢复: leaves=%d pending=%d withdrawals=%d checkpoint=%d",
		s.tree.Len(), len(s.pending), len(withdrawals), checkpoint)
	return checkpoint, nil
}

// Apply 实现 swapintf.Ledger
func (s *Service) Apply(ctx context.Context, ev types.ChainEvent) (bool, error) {
	switch {
	case ev.Deposit != nil:
		return s.applyDeposit(ctx, *ev.Deposit)
	case ev.Withdrawal != nil:
		return s.applyWithdrawal(ctx, *ev.Withdrawal)
	default:
		return false, fmt.Errorf("empty chain event (kind %d)", ev.Kind)
	}
}

func (s *Service) applyDeposit(ctx context.Context, ev types.DepositEvent) (bool, error) {
	if !ev.Commitment.IsSet() {
		return false, types.WrapInvalidWitnessInputError("commitment", "deposit without commitment")
	}

	s.mu.Lock()
	changed, err := s.applyDepositLocked(ctx, ev)
	roots := s.rootChanges
	s.rootChanges = nil
	s.mu.Unlock()

	// 锁外发布，订阅者可以回读账本
	s.publish(roots)
	return changed, err
}

func (s *Service) applyDepositLocked(ctx context.Context, ev types.DepositEvent) (bool, error) {

	if _, ok := s.seen[ev.Key()]; ok {
		metrics.IncEvent("deposit", "duplicate")
		return false, nil
	}

	next := s.tree.Len()
	switch {
	case ev.LeafIndex < next:
		have := s.deposits[ev.LeafIndex].Commitment
		if !have.Equal(ev.Commitment.FieldElement) {
			metrics.IncEvent("deposit", "conflict")
			return false, types.WrapLeafConflictError(ev.LeafIndex, have, ev.Commitment)
		}
		// 同一叶子从另一条日志重复送达（例如重组后的新交易哈希）
		s.seen[ev.Key()] = struct{}{}
		metrics.IncEvent("deposit", "duplicate")
		return false, nil

	case ev.LeafIndex > next:
		if parked, ok := s.pending[ev.LeafIndex]; ok {
			if !parked.Commitment.Equal(ev.Commitment.FieldElement) {
				metrics.IncEvent("deposit", "conflict")
				return false, types.WrapLeafConflictError(ev.LeafIndex, parked.Commitment, ev.Commitment)
			}
			metrics.IncEvent("deposit", "duplicate")
			return false, nil
		}
		if ev.LeafIndex >= s.tree.Capacity() {
			return false, types.WrapTreeFullError(s.tree.Depth(), ev.LeafIndex)
		}
		if err := s.persistDeposit(ctx, ev); err != nil {
			return false, err
		}
		s.pending[ev.LeafIndex] = ev
		s.seen[ev.Key()] = struct{}{}
		metrics.IncEvent("deposit", "buffered")
		metrics.SetPendingDeposits(len(s.pending))
		s.logger.Debugf("存款下标超前，进入缓冲: leaf=%d next=%d", ev.LeafIndex, next)
		return false, nil
	}

	if err := s.persistDeposit(ctx, ev); err != nil {
		return false, err
	}
	if err := s.insertLocked(ev); err != nil {
		return false, err
	}
	s.seen[ev.Key()] = struct{}{}
	metrics.IncEvent("deposit", "applied")

	// 补齐缓冲中连续的后继
	for {
		parked, ok := s.pending[s.tree.Len()]
		if !ok {
			break
		}
		delete(s.pending, parked.LeafIndex)
		if err := s.insertLocked(parked); err != nil {
			return true, err
		}
	}
	metrics.SetPendingDeposits(len(s.pending))
	return true, nil
}

func (s *Service) persistDeposit(ctx context.Context, ev types.DepositEvent) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.PutDeposit(ctx, ev); err != nil {
		return fmt.Errorf("persist deposit leaf %d: %w", ev.LeafIndex, err)
	}
	return nil
}

// insertLocked 插入下一个叶子并发布根变化
func (s *Service) insertLocked(ev types.DepositEvent) error {
	idx, err := s.tree.Insert(ev.Commitment.FieldElement)
	if err != nil {
		return err
	}
	if idx != ev.LeafIndex {
		return fmt.Errorf("ledger out of sync: inserted at %d, event leaf %d", idx, ev.LeafIndex)
	}
	s.deposits = append(s.deposits, ev)
	s.seen[ev.Key()] = struct{}{}

	root := s.tree.Root()
	metrics.SetTreeLeaves(s.tree.Len())
	s.logger.Debugf("插入叶子: leaf=%d root=%s", idx, root.Hex())
	s.rootChanges = append(s.rootChanges, types.LedgerRootChanged{
		Root:      root,
		Leaves:    s.tree.Len(),
		LeafIndex: idx,
	})
	return nil
}

func (s *Service) publish(changes []types.LedgerRootChanged) {
	if s.bus == nil {
		return
	}
	for _, c := range changes {
		s.bus.Publish(eventbus.TopicLedgerRootChanged, c)
	}
}

func (s *Service) applyWithdrawal(ctx context.Context, ev types.WithdrawalEvent) (bool, error) {
	if !ev.Nullifier.IsSet() {
		return false, types.WrapInvalidWitnessInputError("nullifier", "withdrawal without nullifier")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[ev.Key()]; ok {
		metrics.IncEvent("withdrawal", "duplicate")
		return false, nil
	}
	if _, ok := s.withdrawals[ev.Nullifier.Hex()]; ok {
		s.seen[ev.Key()] = struct{}{}
		metrics.IncEvent("withdrawal", "duplicate")
		return false, nil
	}
	if s.store != nil {
		if err := s.store.PutWithdrawal(ctx, ev); err != nil {
			return false, fmt.Errorf("persist withdrawal: %w", err)
		}
	}
	s.seen[ev.Key()] = struct{}{}
	s.withdrawals[ev.Nullifier.Hex()] = ev
	metrics.IncEvent("withdrawal", "applied")
	return true, nil
}

// Rebuild 实现 swapintf.Ledger
//
// 清空存储后写入完整历史；同一叶子出现多次时承诺必须一致。
// 成功后发布一次根变化。
func (s *Service) Rebuild(ctx context.Context, deposits []types.DepositEvent) error {
	if err := s.rebuild(ctx, deposits); err != nil {
		return err
	}
	n := s.tree.Len()
	change := types.LedgerRootChanged{Root: s.tree.Root(), Leaves: n}
	if n > 0 {
		change.LeafIndex = n - 1
	}
	s.publish([]types.LedgerRootChanged{change})
	return nil
}

func (s *Service) rebuild(ctx context.Context, deposits []types.DepositEvent) error {
	sorted := append([]types.DepositEvent(nil), deposits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LeafIndex < sorted[j].LeafIndex })

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Reset(ctx); err != nil {
			return fmt.Errorf("reset event store: %w", err)
		}
		for _, ev := range sorted {
			if err := s.store.PutDeposit(ctx, ev); err != nil {
				return fmt.Errorf("persist deposit leaf %d: %w", ev.LeafIndex, err)
			}
		}
		// 提款历史与存款无关，重建后保留
		for _, ev := range s.withdrawals {
			if err := s.store.PutWithdrawal(ctx, ev); err != nil {
				return fmt.Errorf("persist withdrawal: %w", err)
			}
		}
	}
	if err := s.rebuildLocked(sorted); err != nil {
		return err
	}
	for _, ev := range s.withdrawals {
		s.seen[ev.Key()] = struct{}{}
	}
	metrics.IncRebuild()
	s.logger.Infof("账本已重建: leaves=%d pending=%d root=%s", s.tree.Len(), len(s.pending), s.tree.Root().Hex())
	return nil
}

// rebuildLocked 由按下标排序的存款重建内存状态
func (s *Service) rebuildLocked(sorted []types.DepositEvent) error {
	var (
		contiguous []types.DepositEvent
		pending    = make(map[uint64]types.DepositEvent)
		seen       = make(map[string]struct{}, len(sorted))
	)
	for _, ev := range sorted {
		if !ev.Commitment.IsSet() {
			return types.WrapInvalidWitnessInputError("commitment", fmt.Sprintf("deposit leaf %d without commitment", ev.LeafIndex))
		}
		seen[ev.Key()] = struct{}{}
		next := uint64(len(contiguous))
		switch {
		case ev.LeafIndex < next:
			have := contiguous[ev.LeafIndex].Commitment
			if !have.Equal(ev.Commitment.FieldElement) {
				return types.WrapLeafConflictError(ev.LeafIndex, have, ev.Commitment)
			}
		case ev.LeafIndex == next && len(pending) == 0:
			contiguous = append(contiguous, ev)
		default:
			if parked, ok := pending[ev.LeafIndex]; ok && !parked.Commitment.Equal(ev.Commitment.FieldElement) {
				return types.WrapLeafConflictError(ev.LeafIndex, parked.Commitment, ev.Commitment)
			}
			pending[ev.LeafIndex] = ev
		}
	}

	leaves := make([]types.FieldElement, len(contiguous))
	for i, ev := range contiguous {
		leaves[i] = ev.Commitment.FieldElement
	}
	if err := s.tree.Init(leaves); err != nil {
		return err
	}

	s.deposits = contiguous
	s.pending = pending
	s.seen = seen
	metrics.SetTreeLeaves(s.tree.Len())
	metrics.SetPendingDeposits(len(pending))
	return nil
}

// SetCheckpoint 记录已同步的区块高度
func (s *Service) SetCheckpoint(ctx context.Context, block uint64) error {
	s.mu.Lock()
	if block > s.checkpoint {
		s.checkpoint = block
	}
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.SetCheckpoint(ctx, block)
}

// Checkpoint 已同步的区块高度
func (s *Service) Checkpoint() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoint
}

// CurrentRoot 实现 swapintf.Ledger
func (s *Service) CurrentRoot() types.FieldElement {
	return s.tree.Root()
}

// LeafIndexOf 实现 swapintf.Ledger
func (s *Service) LeafIndexOf(c types.Commitment) (uint64, error) {
	return s.tree.IndexOf(c.FieldElement)
}

// Leaves 实现 swapintf.Ledger
func (s *Service) Leaves() []types.FieldElement {
	return s.tree.Leaves()
}

// Pending 实现 swapintf.Ledger
func (s *Service) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// IndexOf 实现 swapintf.TreeView
func (s *Service) IndexOf(leaf types.FieldElement) (uint64, error) {
	return s.tree.IndexOf(leaf)
}

// Proof 实现 swapintf.TreeView
func (s *Service) Proof(index uint64) (types.MerkleProof, error) {
	return s.tree.Proof(index)
}

// Len 实现 swapintf.TreeView
func (s *Service) Len() uint64 {
	return s.tree.Len()
}

// Deposit 按叶子下标查询已插入的存款
func (s *Service) Deposit(leafIndex uint64) (types.DepositEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if leafIndex >= uint64(len(s.deposits)) {
		return types.DepositEvent{}, false
	}
	return s.deposits[leafIndex], true
}

// Withdrawal 按 nullifier 查询提款
func (s *Service) Withdrawal(n types.Nullifier) (types.WithdrawalEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.withdrawals[n.Hex()]
	return ev, ok
}

// Deposits 实现 swapintf.Ledger
func (s *Service) Deposits() []types.DepositEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.DepositEvent(nil), s.deposits...)
}

// Withdrawals 实现 swapintf.Ledger
func (s *Service) Withdrawals() []types.WithdrawalEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.WithdrawalEvent, 0, len(s.withdrawals))
	for _, ev := range s.withdrawals {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out
}
