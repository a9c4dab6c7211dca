package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              交换核心错误定义
// ============================================================================

var (
	// ErrInvalidWitnessInput 见证输入缺失或格式错误
	ErrInvalidWitnessInput = errors.New("invalid witness input")

	// ErrInvalidHashlock 哈希锁缺失、为零或不在域内
	ErrInvalidHashlock = errors.New("invalid hashlock")

	// ErrCommitmentNotFound 重新计算出的承诺不在 Merkle 树中
	ErrCommitmentNotFound = errors.New("commitment not found")

	// ErrTreeFull Merkle 树已满
	ErrTreeFull = errors.New("merkle tree is full")

	// ErrOutOfRange 数值超出域模数（reject 策略下）
	ErrOutOfRange = errors.New("value out of field range")

	// ErrProvingBackendFailure 证明后端失败，可由用户重试
	ErrProvingBackendFailure = errors.New("proving backend failure")

	// ErrNotFound 通用未找到
	ErrNotFound = errors.New("not found")

	// ErrProofInFlight 同一交换同一角色已有证明在生成中
	ErrProofInFlight = errors.New("busy: proof generation already in flight")

	// ErrInvalidTransition 当前状态不允许该操作
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrOrderCancelled 订单已取消
	ErrOrderCancelled = errors.New("order cancelled")

	// ErrLeafConflict 同一叶子下标出现不同承诺
	ErrLeafConflict = errors.New("leaf index conflict")
)

// ============================================================================
//                               错误包装函数
// ============================================================================

// WrapInvalidWitnessInputError 包装见证输入错误
func WrapInvalidWitnessInputError(field, reason string) error {
	return fmt.Errorf("%w: field=%s, reason=%s", ErrInvalidWitnessInput, field, reason)
}

// WrapCommitmentNotFoundError 包装承诺未找到错误
func WrapCommitmentNotFoundError(commitment Commitment, leaves int) error {
	return fmt.Errorf("%w: commitment=%s, leaves=%d", ErrCommitmentNotFound, commitment.Hex(), leaves)
}

// WrapTreeFullError 包装树满错误
func WrapTreeFullError(depth int, index uint64) error {
	return fmt.Errorf("%w: depth=%d, index=%d", ErrTreeFull, depth, index)
}

// WrapProvingBackendError 包装证明后端错误
func WrapProvingBackendError(backend string, role Role, err error) error {
	return fmt.Errorf("%w: backend=%s, role=%s, cause=%v", ErrProvingBackendFailure, backend, role, err)
}

// WrapInvalidTransitionError 包装非法状态迁移错误
func WrapInvalidTransitionError(swapID string, from SwapState, action string) error {
	return fmt.Errorf("%w: swap=%s, state=%s, action=%s", ErrInvalidTransition, swapID, from, action)
}

// WrapLeafConflictError 包装叶子冲突错误
func WrapLeafConflictError(index uint64, have, got Commitment) error {
	return fmt.Errorf("%w: index=%d, have=%s, got=%s", ErrLeafConflict, index, have.Hex(), got.Hex())
}
