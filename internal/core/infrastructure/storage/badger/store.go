// Package badger 提供基于BadgerDB的事件日志存储实现
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	badgerconfig "github.com/ztomic/v1/internal/config/storage/badger"
	"github.com/ztomic/v1/internal/core/infrastructure/storage/codec"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

var _ swapintf.EventStore = (*Store)(nil)

// resetBatchSize 单个删除事务的键数量上限，避免 ErrTxnTooBig
const resetBatchSize = 1000

// Store 实现 swapintf.EventStore
type Store struct {
	db     *badgerdb.DB
	path   string
	logger log.Logger

	// Close 过程中拒绝新写入，等待 in-flight 写完成后再关闭 db
	closing int32
	writeWg sync.WaitGroup
}

// New 打开BadgerDB
//
// InMemory 为真时忽略路径，数据不落盘。
func New(options *badgerconfig.BadgerOptions, logger log.Logger) (*Store, error) {
	if options == nil {
		return nil, fmt.Errorf("badger options cannot be nil")
	}
	if logger == nil {
		logger = nopLogger{}
	}

	var opts badgerdb.Options
	if options.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
		logger.Info("初始化BadgerDB事件存储（内存模式）")
	} else {
		if options.Path == "" {
			return nil, fmt.Errorf("badger path cannot be empty")
		}
		if err := os.MkdirAll(options.Path, 0700); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", options.Path, err)
		}
		opts = badgerdb.DefaultOptions(options.Path)
		opts.SyncWrites = options.SyncWrites
		logger.Infof("初始化BadgerDB事件存储，数据目录: %s", options.Path)
	}
	if options.MemTableSize > 0 {
		opts.MemTableSize = options.MemTableSize
	}

	// 事件日志体量很小，缩小缓存与 value log 占用
	opts.ValueLogFileSize = 64 << 20
	opts.BlockCacheSize = 16 << 20
	opts.IndexCacheSize = 8 << 20
	opts.NumMemtables = 2
	opts.NumCompactors = 2
	opts.Logger = newBadgerLogger(logger)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Store{
		db:     db,
		path:   options.Path,
		logger: logger,
	}, nil
}

func (s *Store) beginWrite() (func(), error) {
	if atomic.LoadInt32(&s.closing) == 1 {
		return nil, fmt.Errorf("badger store is closing")
	}
	s.writeWg.Add(1)
	// double-check，避免在 Add 之后进入 closing
	if atomic.LoadInt32(&s.closing) == 1 {
		s.writeWg.Done()
		return nil, fmt.Errorf("badger store is closing")
	}
	return s.writeWg.Done, nil
}

func (s *Store) set(key, value []byte) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key, value)
	})
}

// scan 按前缀顺序遍历，fn 收到的值在回调返回后失效
func (s *Store) scan(ctx context.Context, prefix []byte, fn func(val []byte) error) error {
	return s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutDeposit 实现 swapintf.EventStore
func (s *Store) PutDeposit(_ context.Context, ev types.DepositEvent) error {
	data, err := codec.EncodeDeposit(ev)
	if err != nil {
		return err
	}
	if err := s.set(codec.DepositKey(ev.LeafIndex), data); err != nil {
		return fmt.Errorf("badger写入存款事件失败: %w", err)
	}
	return nil
}

// Deposits 实现 swapintf.EventStore
//
// 键为大端叶子下标，迭代顺序即叶子顺序。
func (s *Store) Deposits(ctx context.Context) ([]types.DepositEvent, error) {
	var out []types.DepositEvent
	err := s.scan(ctx, codec.DepositPrefix, func(val []byte) error {
		ev, err := codec.DecodeDeposit(val)
		if err != nil {
			return err
		}
		out = append(out, ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger读取存款事件失败: %w", err)
	}
	return out, nil
}

// PutWithdrawal 实现 swapintf.EventStore
func (s *Store) PutWithdrawal(_ context.Context, ev types.WithdrawalEvent) error {
	data, err := codec.EncodeWithdrawal(ev)
	if err != nil {
		return err
	}
	if err := s.set(codec.WithdrawalKey(ev.EventRef), data); err != nil {
		return fmt.Errorf("badger写入提款事件失败: %w", err)
	}
	return nil
}

// Withdrawals 实现 swapintf.EventStore
func (s *Store) Withdrawals(ctx context.Context) ([]types.WithdrawalEvent, error) {
	var out []types.WithdrawalEvent
	err := s.scan(ctx, codec.WithdrawalPrefix, func(val []byte) error {
		ev, err := codec.DecodeWithdrawal(val)
		if err != nil {
			return err
		}
		out = append(out, ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger读取提款事件失败: %w", err)
	}
	codec.SortWithdrawals(out)
	return out, nil
}

// Checkpoint 实现 swapintf.EventStore
func (s *Store) Checkpoint(_ context.Context) (uint64, error) {
	var block uint64
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(codec.CheckpointKey)
		if err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			block, err = codec.DecodeCheckpoint(val)
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("badger读取同步进度失败: %w", err)
	}
	return block, nil
}

// SetCheckpoint 实现 swapintf.EventStore
func (s *Store) SetCheckpoint(_ context.Context, block uint64) error {
	return s.set(codec.CheckpointKey, codec.EncodeCheckpoint(block))
}

// PutNonce 实现 swapintf.NonceStore
func (s *Store) PutNonce(_ context.Context, orderID string, nonce types.HashlockNonce) error {
	data, err := codec.EncodeNonce(nonce)
	if err != nil {
		return err
	}
	if err := s.set(codec.NonceKey(orderID), data); err != nil {
		return fmt.Errorf("badger写入nonce失败: %w", err)
	}
	return nil
}

// Nonce 实现 swapintf.NonceStore
func (s *Store) Nonce(_ context.Context, orderID string) (types.HashlockNonce, bool, error) {
	var (
		nonce types.HashlockNonce
		found bool
	)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(codec.NonceKey(orderID))
		if err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			nonce, err = codec.DecodeNonce(val)
			return err
		})
	})
	if err != nil {
		return types.HashlockNonce{}, false, fmt.Errorf("badger读取nonce失败: %w", err)
	}
	return nonce, found, nil
}

// Reset 实现 swapintf.EventStore
func (s *Store) Reset(ctx context.Context) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()

	var keys [][]byte
	err = s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if codec.IsNonceKey(it.Item().Key()) {
				continue
			}
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger列举键失败: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for start := 0; start < len(keys); start += resetBatchSize {
		end := min(start+resetBatchSize, len(keys))
		err := s.db.Update(func(txn *badgerdb.Txn) error {
			for _, key := range keys[start:end] {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("badger清空失败: %w", err)
		}
	}
	return nil
}

// Close 关闭存储并释放资源
func (s *Store) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closing, 0, 1) {
		return nil
	}

	waitCh := make(chan struct{})
	go func() {
		s.writeWg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(30 * time.Second):
		s.logger.Warn("等待 in-flight 写事务超时（30s），仍继续关闭 BadgerDB")
	}

	if err := s.db.Close(); err != nil {
		if strings.Contains(err.Error(), "LOCK: no such file or directory") {
			s.logger.Warn("BadgerDB LOCK文件已不存在，这通常是正常的关闭过程")
			return nil
		}
		return fmt.Errorf("关闭BadgerDB失败: %w", err)
	}
	s.logger.Info("BadgerDB事件存储已关闭")
	return nil
}

// badgerLogger 把BadgerDB日志转接到模块日志
type badgerLogger struct {
	logger log.Logger
}

func newBadgerLogger(logger log.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}

type nopLogger struct{}

func (nopLogger) Debug(string)                   {}
func (nopLogger) Debugf(string, ...interface{})  {}
func (nopLogger) Info(string)                    {}
func (nopLogger) Infof(string, ...interface{})   {}
func (nopLogger) Warn(string)                    {}
func (nopLogger) Warnf(string, ...interface{})   {}
func (nopLogger) Error(string)                   {}
func (nopLogger) Errorf(string, ...interface{})  {}
func (nopLogger) Fatal(string)                   {}
func (nopLogger) Fatalf(string, ...interface{})  {}
func (nopLogger) With(...interface{}) log.Logger { return nopLogger{} }
func (nopLogger) Sync() error                    { return nil }
func (nopLogger) GetZapLogger() *zap.Logger      { return zap.NewNop() }
