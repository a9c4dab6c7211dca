// Package codec 定义事件日志在键值存储中的键布局与编码
//
// 键布局：
//
//	deposit/<leafIndex 8 字节大端>   -> DepositEvent JSON
//	withdrawal/<txHash:logIndex>      -> WithdrawalEvent JSON
//	checkpoint                        -> 区块高度 8 字节大端
//	nonce/<orderID>                   -> 发起方 nonce 32 字节大端
//
// 叶子下标使用大端编码，按字节序迭代即按叶子下标升序。
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ztomic/v1/pkg/types"
)

var (
	// DepositPrefix 存款事件键前缀
	DepositPrefix = []byte("deposit/")
	// WithdrawalPrefix 提款事件键前缀
	WithdrawalPrefix = []byte("withdrawal/")
	// CheckpointKey 同步进度键
	CheckpointKey = []byte("checkpoint")
	// NoncePrefix 发起方哈希锁 nonce 键前缀，Reset 不清除
	NoncePrefix = []byte("nonce/")
)

// NonceKey 按订单号的 nonce 键
func NonceKey(orderID string) []byte {
	return append(append([]byte(nil), NoncePrefix...), orderID...)
}

// IsNonceKey 是否为 nonce 键
func IsNonceKey(key []byte) bool {
	return bytes.HasPrefix(key, NoncePrefix)
}

// EncodeNonce 32 字节大端
func EncodeNonce(nonce types.HashlockNonce) ([]byte, error) {
	if !nonce.IsSet() {
		return nil, fmt.Errorf("nonce is not set")
	}
	b := nonce.Bytes32()
	return b[:], nil
}

// DecodeNonce 解码 nonce
func DecodeNonce(data []byte) (types.HashlockNonce, error) {
	if len(data) != 32 {
		return types.HashlockNonce{}, fmt.Errorf("nonce value has %d bytes, want 32", len(data))
	}
	var b [32]byte
	copy(b[:], data)
	fe, err := types.FieldElementFromBytes32(b)
	if err != nil {
		return types.HashlockNonce{}, fmt.Errorf("decode nonce: %w", err)
	}
	return types.HashlockNonce{FieldElement: fe}, nil
}

// DepositKey 存款事件键
func DepositKey(leafIndex uint64) []byte {
	key := make([]byte, len(DepositPrefix)+8)
	copy(key, DepositPrefix)
	binary.BigEndian.PutUint64(key[len(DepositPrefix):], leafIndex)
	return key
}

// WithdrawalKey 提款事件键
func WithdrawalKey(ref types.EventRef) []byte {
	return append(append([]byte(nil), WithdrawalPrefix...), ref.Key()...)
}

// EncodeDeposit 编码存款事件
func EncodeDeposit(ev types.DepositEvent) ([]byte, error) {
	if !ev.Commitment.IsSet() {
		return nil, fmt.Errorf("deposit %s has no commitment", ev.Key())
	}
	return json.Marshal(ev)
}

// DecodeDeposit 解码存款事件
func DecodeDeposit(data []byte) (types.DepositEvent, error) {
	var ev types.DepositEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return types.DepositEvent{}, fmt.Errorf("decode deposit: %w", err)
	}
	return ev, nil
}

// EncodeWithdrawal 编码提款事件
func EncodeWithdrawal(ev types.WithdrawalEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeWithdrawal 解码提款事件
func DecodeWithdrawal(data []byte) (types.WithdrawalEvent, error) {
	var ev types.WithdrawalEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return types.WithdrawalEvent{}, fmt.Errorf("decode withdrawal: %w", err)
	}
	return ev, nil
}

// EncodeCheckpoint 编码区块高度
func EncodeCheckpoint(block uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, block)
	return buf
}

// DecodeCheckpoint 解码区块高度
func DecodeCheckpoint(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("checkpoint value has %d bytes, want 8", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// SortDeposits 按叶子下标升序排序
func SortDeposits(evs []types.DepositEvent) {
	sort.Slice(evs, func(i, j int) bool { return evs[i].LeafIndex < evs[j].LeafIndex })
}

// SortWithdrawals 按区块与日志下标排序
func SortWithdrawals(evs []types.WithdrawalEvent) {
	sort.Slice(evs, func(i, j int) bool {
		if evs[i].BlockNumber != evs[j].BlockNumber {
			return evs[i].BlockNumber < evs[j].BlockNumber
		}
		return evs[i].LogIndex < evs[j].LogIndex
	})
}
