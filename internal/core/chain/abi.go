// Package chain 连接部署在 EVM 链上的交换合约
//
// 读取 deposited / withdrawal_initiator / withdrawal_responder 三种日志，
// 并打包 deposit_* / withdraw_* 四个合约调用。
package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// 合约方法与事件名
const (
	MethodDepositInitiator  = "deposit_initiator"
	MethodDepositResponder  = "deposit_responder"
	MethodWithdrawInitiator = "withdraw_initiator"
	MethodWithdrawResponder = "withdraw_responder"

	EventDeposited           = "deposited"
	EventWithdrawalInitiator = "withdrawal_initiator"
	EventWithdrawalResponder = "withdrawal_responder"
)

// ContractABI 交换合约中本模块用到的部分
const ContractABI = `[
  {"type":"function","name":"deposit_initiator","stateMutability":"payable","inputs":[
    {"name":"_commitment","type":"bytes32"},
    {"name":"_order_id_hash","type":"bytes32"},
    {"name":"hashlock","type":"bytes32"},
    {"name":"flag","type":"bool"},
    {"name":"token","type":"address"}],"outputs":[]},
  {"type":"function","name":"deposit_responder","stateMutability":"payable","inputs":[
    {"name":"_commitment","type":"bytes32"},
    {"name":"flag","type":"bool"},
    {"name":"token","type":"address"}],"outputs":[]},
  {"type":"function","name":"withdraw_initiator","stateMutability":"nonpayable","inputs":[
    {"name":"proof","type":"bytes"},
    {"name":"nullifier","type":"bytes32"},
    {"name":"root","type":"bytes32"},
    {"name":"extraPublicInput","type":"bytes32"},
    {"name":"_order_id_hash","type":"bytes32"},
    {"name":"recipient","type":"address"}],"outputs":[]},
  {"type":"function","name":"withdraw_responder","stateMutability":"nonpayable","inputs":[
    {"name":"proof","type":"bytes"},
    {"name":"nullifier","type":"bytes32"},
    {"name":"root","type":"bytes32"},
    {"name":"recipient","type":"address"}],"outputs":[]},
  {"type":"event","name":"deposited","anonymous":false,"inputs":[
    {"name":"_commitment","type":"bytes32","indexed":false},
    {"name":"_order_id_hash","type":"bytes32","indexed":false},
    {"name":"leafIndex","type":"uint32","indexed":false},
    {"name":"hashlock","type":"bytes32","indexed":false}]},
  {"type":"event","name":"withdrawal_initiator","anonymous":false,"inputs":[
    {"name":"_order_id_hash","type":"bytes32","indexed":true},
    {"name":"nullifier","type":"bytes32","indexed":false},
    {"name":"nonce","type":"bytes32","indexed":false}]},
  {"type":"event","name":"withdrawal_responder","anonymous":false,"inputs":[
    {"name":"nullifier","type":"bytes32","indexed":false}]}
]`

var (
	parsedOnce sync.Once
	parsedABI  abi.ABI
	parsedErr  error
)

// ParsedABI 解析后的合约 ABI
func ParsedABI() (abi.ABI, error) {
	parsedOnce.Do(func() {
		parsedABI, parsedErr = abi.JSON(strings.NewReader(ContractABI))
	})
	return parsedABI, parsedErr
}

// eventIDs 三种日志的 topic0
type eventIDs struct {
	deposited, withdrawalInitiator, withdrawalResponder common.Hash
}

func loadEventIDs(parsed abi.ABI) (eventIDs, error) {
	var ids eventIDs
	for name, dst := range map[string]*common.Hash{
		EventDeposited:           &ids.deposited,
		EventWithdrawalInitiator: &ids.withdrawalInitiator,
		EventWithdrawalResponder: &ids.withdrawalResponder,
	} {
		ev, ok := parsed.Events[name]
		if !ok {
			return eventIDs{}, fmt.Errorf("contract abi has no event %q", name)
		}
		*dst = ev.ID
	}
	return ids, nil
}

func (ids eventIDs) all() []common.Hash {
	return []common.Hash{ids.deposited, ids.withdrawalInitiator, ids.withdrawalResponder}
}
