// Package redis 提供基于Redis的事件日志存储，供多个进程共享同一份链上历史
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redisconfig "github.com/ztomic/v1/internal/config/storage/redis"
	"github.com/ztomic/v1/internal/core/infrastructure/storage/codec"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

var _ swapintf.EventStore = (*Store)(nil)

// Store 实现 swapintf.EventStore
//
// 所有键都带 KeyPrefix，Reset 只删除本前缀下的事件键，nonce 保留。
type Store struct {
	client redisClient
	prefix string
	logger log.Logger
}

// New 连接 Redis 并创建存储
func New(opts *redisconfig.RedisOptions, logger log.Logger) (*Store, error) {
	client, err := newGoRedisClient(opts)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Infof("Redis事件存储已连接: addr=%s prefix=%s", opts.Addr, opts.KeyPrefix)
	}
	return newWithClient(client, opts.KeyPrefix, logger), nil
}

// newWithClient 使用给定客户端创建存储
func newWithClient(client redisClient, prefix string, logger log.Logger) *Store {
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) key(raw []byte) string {
	return s.prefix + string(raw)
}

// loadPrefix 读取前缀下全部值，KEYS 的返回顺序不固定
func (s *Store) loadPrefix(ctx context.Context, prefix []byte) ([][]byte, error) {
	keys, err := s.client.Keys(ctx, s.key(prefix)+"*")
	if err != nil {
		return nil, err
	}
	values := make([][]byte, 0, len(keys))
	for _, k := range keys {
		data, err := s.client.Get(ctx, k)
		if err != nil {
			// 并发 Reset 删除了该键
			if errors.Is(err, errKeyNotFound) {
				continue
			}
			return nil, err
		}
		values = append(values, data)
	}
	return values, nil
}

// PutDeposit 实现 swapintf.EventStore
func (s *Store) PutDeposit(ctx context.Context, ev types.DepositEvent) error {
	data, err := codec.EncodeDeposit(ev)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(codec.DepositKey(ev.LeafIndex)), data); err != nil {
		return fmt.Errorf("redis写入存款事件失败: %w", err)
	}
	return nil
}

// Deposits 实现 swapintf.EventStore
func (s *Store) Deposits(ctx context.Context) ([]types.DepositEvent, error) {
	values, err := s.loadPrefix(ctx, codec.DepositPrefix)
	if err != nil {
		return nil, fmt.Errorf("redis读取存款事件失败: %w", err)
	}
	out := make([]types.DepositEvent, 0, len(values))
	for _, data := range values {
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
func (s *Store) PutWithdrawal(ctx context.Context, ev types.WithdrawalEvent) error {
	data, err := codec.EncodeWithdrawal(ev)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(codec.WithdrawalKey(ev.EventRef)), data); err != nil {
		return fmt.Errorf("redis写入提款事件失败: %w", err)
	}
	return nil
}

// Withdrawals 实现 swapintf.EventStore
func (s *Store) Withdrawals(ctx context.Context) ([]types.WithdrawalEvent, error) {
	values, err := s.loadPrefix(ctx, codec.WithdrawalPrefix)
	if err != nil {
		return nil, fmt.Errorf("redis读取提款事件失败: %w", err)
	}
	out := make([]types.WithdrawalEvent, 0, len(values))
	for _, data := range values {
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
func (s *Store) Checkpoint(ctx context.Context) (uint64, error) {
	data, err := s.client.Get(ctx, s.key(codec.CheckpointKey))
	if err != nil {
		if errors.Is(err, errKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis读取同步进度失败: %w", err)
	}
	return codec.DecodeCheckpoint(data)
}

// SetCheckpoint 实现 swapintf.EventStore
func (s *Store) SetCheckpoint(ctx context.Context, block uint64) error {
	return s.client.Set(ctx, s.key(codec.CheckpointKey), codec.EncodeCheckpoint(block))
}

// PutNonce 实现 swapintf.NonceStore
func (s *Store) PutNonce(ctx context.Context, orderID string, nonce types.HashlockNonce) error {
	data, err := codec.EncodeNonce(nonce)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(codec.NonceKey(orderID)), data); err != nil {
		return fmt.Errorf("redis写入nonce失败: %w", err)
	}
	return nil
}

// Nonce 实现 swapintf.NonceStore
func (s *Store) Nonce(ctx context.Context, orderID string) (types.HashlockNonce, bool, error) {
	data, err := s.client.Get(ctx, s.key(codec.NonceKey(orderID)))
	if err != nil {
		if errors.Is(err, errKeyNotFound) {
			return types.HashlockNonce{}, false, nil
		}
		return types.HashlockNonce{}, false, fmt.Errorf("redis读取nonce失败: %w", err)
	}
	nonce, err := codec.DecodeNonce(data)
	if err != nil {
		return types.HashlockNonce{}, false, err
	}
	return nonce, true, nil
}

// Reset 实现 swapintf.EventStore
func (s *Store) Reset(ctx context.Context) error {
	all, err := s.client.Keys(ctx, s.prefix+"*")
	if err != nil {
		return fmt.Errorf("redis列举键失败: %w", err)
	}
	nonceKeys := s.key(codec.NoncePrefix)
	keys := all[:0]
	for _, k := range all {
		if !strings.HasPrefix(k, nonceKeys) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.client.Del(ctx, keys...); err != nil {
		return fmt.Errorf("redis清空失败: %w", err)
	}
	return nil
}

// Close 实现 swapintf.EventStore
func (s *Store) Close() error {
	return s.client.Close()
}
