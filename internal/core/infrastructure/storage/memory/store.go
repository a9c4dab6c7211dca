// Package memory 提供进程内事件日志存储，用于测试与一次性运行
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ztomic/v1/internal/core/infrastructure/storage/codec"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

var _ swapintf.EventStore = (*Store)(nil)

// Store 基于 map 的 EventStore
//
// 值以编码后的字节保存，与持久化实现走同一条编解码路径。
type Store struct {
	mu          sync.RWMutex
	logger      log.Logger
	deposits    map[uint64][]byte
	withdrawals map[string][]byte
	nonces      map[string][]byte
	checkpoint  uint64
	closed      bool
}

// New 创建内存存储
func New(logger log.Logger) *Store {
	return &Store{
		logger:      logger,
		deposits:    make(map[uint64][]byte),
		withdrawals: make(map[string][]byte),
		nonces:      make(map[string][]byte),
	}
}

func (s *Store) checkOpen() error {
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	return nil
}

// PutDeposit 实现 swapintf.EventStore
func (s *Store) PutDeposit(_ context.Context, ev types.DepositEvent) error {
	data, err := codec.EncodeDeposit(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.deposits[ev.LeafIndex] = data
	return nil
}

// Deposits 实现 swapintf.EventStore
func (s *Store) Deposits(_ context.Context) ([]types.DepositEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	out := make([]types.DepositEvent, 0, len(s.deposits))
	for _, data := range s.deposits {
		ev, err := codec.DecodeDeposit(data)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	codec.SortDeposits(out)
	return out, nil
}

// PutWithdrawal 实现 swapintf.EventStore
func (s *Store) PutWithdrawal(_ context.Context, ev types.WithdrawalEvent) error {
	data, err := codec.EncodeWithdrawal(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.withdrawals[ev.Key()] = data
	return nil
}

// Withdrawals 实现 swapintf.EventStore
func (s *Store) Withdrawals(_ context.Context) ([]types.WithdrawalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	out := make([]types.WithdrawalEvent, 0, len(s.withdrawals))
	for _, data := range s.withdrawals {
		ev, err := codec.DecodeWithdrawal(data)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	codec.SortWithdrawals(out)
	return out, nil
}

// Checkpoint 实现 swapintf.EventStore
func (s *Store) Checkpoint(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoint, s.checkOpen()
}

// SetCheckpoint 实现 swapintf.EventStore
func (s *Store) SetCheckpoint(_ context.Context, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.checkpoint = block
	return nil
}

// PutNonce 实现 swapintf.NonceStore
func (s *Store) PutNonce(_ context.Context, orderID string, nonce types.HashlockNonce) error {
	data, err := codec.EncodeNonce(nonce)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.nonces[orderID] = data
	return nil
}

// Nonce 实现 swapintf.NonceStore
func (s *Store) Nonce(_ context.Context, orderID string) (types.HashlockNonce, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return types.HashlockNonce{}, false, err
	}
	data, ok := s.nonces[orderID]
	if !ok {
		return types.HashlockNonce{}, false, nil
	}
	nonce, err := codec.DecodeNonce(data)
	if err != nil {
		return types.HashlockNonce{}, false, err
	}
	return nonce, true, nil
}

// Reset 实现 swapintf.EventStore
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.deposits = make(map[uint64][]byte)
	s.withdrawals = make(map[string][]byte)
	s.checkpoint = 0
	return nil
}

// Close 实现 swapintf.EventStore
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.logger != nil {
		s.logger.Info("内存事件存储已关闭")
	}
	return nil
}
