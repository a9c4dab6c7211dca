package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

const (
	// maxBlockRange 单次 eth_getLogs 的区块跨度
	maxBlockRange = 5000
	// defaultEventBuffer 订阅通道缓冲
	defaultEventBuffer = 256
)

var _ swapintf.EventSource = (*EthSource)(nil)

// LogClient ethclient.Client 中用到的部分
type LogClient interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// SourceOptions EthSource 参数
type SourceOptions struct {
	Contract      common.Address
	Confirmations uint64
	PollInterval  time.Duration
	BufferSize    int
}

// EthSource 基于 eth_getLogs / eth_subscribe 的日志来源
//
// 有确认数要求时只轮询，已确认的日志不会再被撤销；
// 确认数为 0 时优先使用订阅，节点不支持时退回轮询。
type EthSource struct {
	client  LogClient
	decoder *Decoder
	opts    SourceOptions
	logger  log.Logger
}

// NewEthSource 创建日志来源
func NewEthSource(client LogClient, opts SourceOptions, logger log.Logger) (*EthSource, error) {
	if client == nil {
		return nil, fmt.Errorf("chain source: nil client")
	}
	decoder, err := NewDecoder()
	if err != nil {
		return nil, err
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 4 * time.Second
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultEventBuffer
	}
	return &EthSource{
		client:  client,
		decoder: decoder,
		opts:    opts,
		logger:  logimpl.NewModuleLogger(logger, "chain"),
	}, nil
}

// FetchDeposits 实现 swapintf.EventSource
func (s *EthSource) FetchDeposits(ctx context.Context, fromBlock uint64) ([]types.DepositEvent, error) {
	head, err := s.safeHead(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.fetch(ctx, fromBlock, head, []common.Hash{s.decoder.ids.deposited})
	if err != nil {
		return nil, err
	}
	out := make([]types.DepositEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, *ev.Deposit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeafIndex < out[j].LeafIndex })
	return out, nil
}

// FetchWithdrawals 实现 swapintf.EventSource
func (s *EthSource) FetchWithdrawals(ctx context.Context, fromBlock uint64) ([]types.WithdrawalEvent, error) {
	head, err := s.safeHead(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.fetch(ctx, fromBlock, head, []common.Hash{s.decoder.ids.withdrawalInitiator, s.decoder.ids.withdrawalResponder})
	if err != nil {
		return nil, err
	}
	out := make([]types.WithdrawalEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, *ev.Withdrawal)
	}
	return out, nil
}

// Subscribe 实现 swapintf.EventSource
//
// 先按 (区块, 日志下标) 顺序回放 fromBlock 之后的历史，再推送新日志。
// 出错时把错误写入 errs 后停止推送；ctx 取消后关闭 events。
func (s *EthSource) Subscribe(ctx context.Context, fromBlock uint64) (<-chan types.ChainEvent, <-chan error) {
	events := make(chan types.ChainEvent, s.opts.BufferSize)
	errs := make(chan error, 1)

	go func() {
		fail := func(err error) {
			if ctx.Err() == nil {
				errs <- err
			}
		}

		head, err := s.safeHead(ctx)
		if err != nil {
			fail(err)
			return
		}
		next := fromBlock
		if head >= next {
			history, err := s.fetch(ctx, next, head, s.decoder.ids.all())
			if err != nil {
				fail(err)
				return
			}
			for _, ev := range history {
				if !emit(ctx, events, ev) {
					close(events)
					return
				}
			}
			next = head + 1
		}
		s.logger.Infof("链上历史回放完成: from=%d to=%d", fromBlock, next)

		if s.opts.Confirmations == 0 {
			err = s.follow(ctx, next, events)
			if errors.Is(err, errSubscriptionUnavailable) {
				s.logger.Info("节点不支持日志订阅，改为轮询")
				err = s.poll(ctx, next, events)
			}
		} else {
			err = s.poll(ctx, next, events)
		}
		if err != nil {
			fail(err)
			return
		}
		close(events)
	}()
	return events, errs
}

var errSubscriptionUnavailable = errors.New("log subscription unavailable")

// follow 使用 eth_subscribe 推送新日志，ctx 取消时返回 nil
func (s *EthSource) follow(ctx context.Context, from uint64, events chan<- types.ChainEvent) error {
	ch := make(chan ethtypes.Log, s.opts.BufferSize)
	sub, err := s.client.SubscribeFilterLogs(ctx, s.query(from, nil, s.decoder.ids.all()), ch)
	if err != nil {
		s.logger.Debugf("日志订阅失败: %v", err)
		return errSubscriptionUnavailable
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err == nil {
				return fmt.Errorf("log subscription closed")
			}
			return err
		case lg := <-ch:
			if lg.Removed {
				return fmt.Errorf("%w: tx=%s index=%d", ErrLogRemoved, lg.TxHash.Hex(), lg.Index)
			}
			ev, err := s.decoder.Decode(lg)
			if err != nil {
				if errors.Is(err, ErrUnknownLog) {
					continue
				}
				return err
			}
			if !emit(ctx, events, ev) {
				return nil
			}
		}
	}
}

// poll 周期性拉取 [next, safeHead] 区间的日志
func (s *EthSource) poll(ctx context.Context, next uint64, events chan<- types.ChainEvent) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		head, err := s.safeHead(ctx)
		if err != nil {
			return err
		}
		if head < next {
			continue
		}
		batch, err := s.fetch(ctx, next, head, s.decoder.ids.all())
		if err != nil {
			return err
		}
		for _, ev := range batch {
			if !emit(ctx, events, ev) {
				return nil
			}
		}
		next = head + 1
	}
}

// safeHead 扣除确认数后的最新区块
func (s *EthSource) safeHead(ctx context.Context) (uint64, error) {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	if head < s.opts.Confirmations {
		return 0, nil
	}
	return head - s.opts.Confirmations, nil
}

// fetch 分段拉取并解码 [from, to] 区间的日志，按 (区块, 日志下标) 排序
func (s *EthSource) fetch(ctx context.Context, from, to uint64, topics []common.Hash) ([]types.ChainEvent, error) {
	var logs []ethtypes.Log
	for start := from; start <= to; start += maxBlockRange {
		end := start + maxBlockRange - 1
		if end > to {
			end = to
		}
		batch, err := s.client.FilterLogs(ctx, s.query(start, new(big.Int).SetUint64(end), topics))
		if err != nil {
			return nil, fmt.Errorf("filter logs [%d, %d]: %w", start, end, err)
		}
		logs = append(logs, batch...)
		if end == to {
			break
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	out := make([]types.ChainEvent, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ev, err := s.decoder.Decode(lg)
		if err != nil {
			if errors.Is(err, ErrUnknownLog) {
				continue
			}
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *EthSource) query(from uint64, to *big.Int, topics []common.Hash) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   to,
		Addresses: []common.Address{s.opts.Contract},
		Topics:    [][]common.Hash{topics},
	}
}

func emit(ctx context.Context, events chan<- types.ChainEvent, ev types.ChainEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
