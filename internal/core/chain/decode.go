package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/ztomic/v1/pkg/types"
)

var (
	// ErrUnknownLog 不是交换合约的三种日志
	ErrUnknownLog = errors.New("unknown contract log")
	// ErrLogRemoved 链重组撤销了已推送的日志，需要全量重放
	ErrLogRemoved = errors.New("log removed by chain reorganisation")
)

// Decoder 把合约日志解码成 types.ChainEvent
type Decoder struct {
	abi abi.ABI
	ids eventIDs
}

// NewDecoder 创建日志解码器
func NewDecoder() (*Decoder, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	ids, err := loadEventIDs(parsed)
	if err != nil {
		return nil, err
	}
	return &Decoder{abi: parsed, ids: ids}, nil
}

// Decode 解码单条日志
func (d *Decoder) Decode(lg ethtypes.Log) (types.ChainEvent, error) {
	if len(lg.Topics) == 0 {
		return types.ChainEvent{}, ErrUnknownLog
	}
	ref := types.EventRef{
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash.Hex(),
		LogIndex:    lg.Index,
	}

	switch lg.Topics[0] {
	case d.ids.deposited:
		values, err := d.unpack(EventDeposited, lg.Data, 4)
		if err != nil {
			return types.ChainEvent{}, err
		}
		commitment, err := toField("_commitment", values[0])
		if err != nil {
			return types.ChainEvent{}, err
		}
		orderIDHash, ok := values[1].([32]byte)
		if !ok {
			return types.ChainEvent{}, fmt.Errorf("deposited: _order_id_hash has type %T", values[1])
		}
		leafIndex, ok := values[2].(uint32)
		if !ok {
			return types.ChainEvent{}, fmt.Errorf("deposited: leafIndex has type %T", values[2])
		}
		ev := &types.DepositEvent{
			EventRef:    ref,
			Commitment:  types.Commitment{FieldElement: commitment},
			OrderIDHash: orderIDHash,
			LeafIndex:   uint64(leafIndex),
		}
		// 响应方存款的 hashlock 为零
		if raw, ok := values[3].([32]byte); ok && raw != ([32]byte{}) {
			hashlock, err := types.FieldElementFromBytes32(raw)
			if err != nil {
				return types.ChainEvent{}, fmt.Errorf("deposited: hashlock: %w", err)
			}
			ev.Hashlock = types.Hashlock{FieldElement: hashlock}
		}
		return types.ChainEvent{Kind: types.EventDeposit, Deposit: ev}, nil

	case d.ids.withdrawalInitiator:
		if len(lg.Topics) < 2 {
			return types.ChainEvent{}, fmt.Errorf("withdrawal_initiator: missing indexed order id hash")
		}
		values, err := d.unpack(EventWithdrawalInitiator, lg.Data, 2)
		if err != nil {
			return types.ChainEvent{}, err
		}
		nullifier, err := toField("nullifier", values[0])
		if err != nil {
			return types.ChainEvent{}, err
		}
		nonce, err := toField("nonce", values[1])
		if err != nil {
			return types.ChainEvent{}, err
		}
		return types.ChainEvent{Kind: types.EventWithdrawal, Withdrawal: &types.WithdrawalEvent{
			EventRef:    ref,
			Role:        types.RoleInitiator,
			Nullifier:   types.Nullifier{FieldElement: nullifier},
			OrderIDHash: lg.Topics[1],
			Nonce:       types.HashlockNonce{FieldElement: nonce},
		}}, nil

	case d.ids.withdrawalResponder:
		values, err := d.unpack(EventWithdrawalResponder, lg.Data, 1)
		if err != nil {
			return types.ChainEvent{}, err
		}
		nullifier, err := toField("nullifier", values[0])
		if err != nil {
			return types.ChainEvent{}, err
		}
		return types.ChainEvent{Kind: types.EventWithdrawal, Withdrawal: &types.WithdrawalEvent{
			EventRef:  ref,
			Role:      types.RoleResponder,
			Nullifier: types.Nullifier{FieldElement: nullifier},
		}}, nil
	}
	return types.ChainEvent{}, ErrUnknownLog
}

func (d *Decoder) unpack(event string, data []byte, want int) ([]interface{}, error) {
	values, err := d.abi.Events[event].Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", event, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("%s: got %d values, want %d", event, len(values), want)
	}
	return values, nil
}

// toField bytes32 转域元素，超出模数的值拒绝
func toField(name string, v interface{}) (types.FieldElement, error) {
	raw, ok := v.([32]byte)
	if !ok {
		return types.FieldElement{}, fmt.Errorf("%s has type %T, want bytes32", name, v)
	}
	fe, err := types.FieldElementFromBytes32(raw)
	if err != nil {
		return types.FieldElement{}, fmt.Errorf("%s: %w", name, err)
	}
	return fe, nil
}
