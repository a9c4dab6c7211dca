package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

var _ swapintf.Submitter = (*ContractSubmitter)(nil)

// SubmitterOptions 合约调用参数
type SubmitterOptions struct {
	Contract common.Address
	// Token 存款的代币地址，零地址表示原生币
	Token   common.Address
	Key     *ecdsa.PrivateKey
	ChainID *big.Int
}

// ContractSubmitter 通过 bind.BoundContract 发送四个合约调用
type ContractSubmitter struct {
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	token    common.Address
	logger   log.Logger
}

// NewSubmitter 创建合约调用器
func NewSubmitter(backend bind.ContractBackend, opts SubmitterOptions, logger log.Logger) (*ContractSubmitter, error) {
	if opts.Key == nil {
		return nil, fmt.Errorf("chain submitter: signing key is required")
	}
	if opts.ChainID == nil {
		return nil, fmt.Errorf("chain submitter: chain id is required")
	}
	parsed, err := ParsedABI()
	if err != nil {
		return nil, err
	}
	auth, err := bind.NewKeyedTransactorWithChainID(opts.Key, opts.ChainID)
	if err != nil {
		return nil, err
	}
	return &ContractSubmitter{
		contract: bind.NewBoundContract(opts.Contract, parsed, backend, backend, backend),
		auth:     auth,
		token:    opts.Token,
		logger:   logimpl.NewModuleLogger(logger, "chain"),
	}, nil
}

// Deposit 实现 swapintf.Submitter
func (s *ContractSubmitter) Deposit(ctx context.Context, call swapintf.DepositCall) (string, error) {
	method, args, err := DepositArgs(call, s.token)
	if err != nil {
		return "", err
	}
	return s.transact(ctx, method, args)
}

// Withdraw 实现 swapintf.Submitter
func (s *ContractSubmitter) Withdraw(ctx context.Context, call swapintf.WithdrawCall) (string, error) {
	method, args, err := WithdrawArgs(call)
	if err != nil {
		return "", err
	}
	return s.transact(ctx, method, args)
}

func (s *ContractSubmitter) transact(ctx context.Context, method string, args []interface{}) (string, error) {
	opts := *s.auth
	opts.Context = ctx
	tx, err := s.contract.Transact(&opts, method, args...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	s.logger.Infof("合约调用已发送: method=%s tx=%s", method, tx.Hash().Hex())
	return tx.Hash().Hex(), nil
}

// DepositArgs 按角色选择存款方法并排列参数
func DepositArgs(call swapintf.DepositCall, token common.Address) (string, []interface{}, error) {
	if !call.Commitment.IsSet() {
		return "", nil, types.WrapInvalidWitnessInputError("commitment", "empty")
	}
	switch call.Role {
	case types.RoleInitiator:
		if !call.Hashlock.IsSet() {
			return "", nil, types.WrapInvalidWitnessInputError("hashlock", "empty")
		}
		return MethodDepositInitiator, []interface{}{
			call.Commitment.Bytes32(),
			call.OrderIDHash,
			call.Hashlock.Bytes32(),
			call.Flag,
			token,
		}, nil
	case types.RoleResponder:
		return MethodDepositResponder, []interface{}{
			call.Commitment.Bytes32(),
			call.Flag,
			token,
		}, nil
	default:
		return "", nil, types.WrapInvalidWitnessInputError("role", call.Role.String())
	}
}

// WithdrawArgs 按角色选择提款方法并排列参数
//
// 公开输入顺序为 nullifier, root, extras…；发起方的 extra 是 nonce。
func WithdrawArgs(call swapintf.WithdrawCall) (string, []interface{}, error) {
	if !common.IsHexAddress(call.Recipient) {
		return "", nil, types.WrapInvalidWitnessInputError("recipient", "not a hex address")
	}
	recipient := common.HexToAddress(call.Recipient)
	inputs := call.Proof.PublicInputs

	switch call.Role {
	case types.RoleInitiator:
		if len(inputs) != 3 {
			return "", nil, types.WrapInvalidWitnessInputError("public_inputs", fmt.Sprintf("initiator proof has %d public inputs, want 3", len(inputs)))
		}
		return MethodWithdrawInitiator, []interface{}{
			call.Proof.Bytes,
			inputs[0].Bytes32(),
			inputs[1].Bytes32(),
			inputs[2].Bytes32(),
			call.OrderIDHash,
			recipient,
		}, nil
	case types.RoleResponder:
		if len(inputs) != 2 {
			return "", nil, types.WrapInvalidWitnessInputError("public_inputs", fmt.Sprintf("responder proof has %d public inputs, want 2", len(inputs)))
		}
		return MethodWithdrawResponder, []interface{}{
			call.Proof.Bytes,
			inputs[0].Bytes32(),
			inputs[1].Bytes32(),
			recipient,
		}, nil
	default:
		return "", nil, types.WrapInvalidWitnessInputError("role", call.Role.String())
	}
}
