// Package swap 定义私密原子交换核心的公共接口
//
// 实现位于 internal/core 下的同名子包，通过 fx 注入。
package swap

import "github.com/ztomic/v1/pkg/types"

// CommitmentScheme 双方承诺与 nullifier 计算
type CommitmentScheme interface {
	// SharedSecret ECDH 共享秘密的 x 坐标
	SharedSecret(counterparty types.PublicKey, secret types.FieldElement) (types.SharedSecret, error)

	// Hashlock H(counterpartyX, nonce)，响应方用它核对发起方公开的 nonce
	Hashlock(counterpartyX types.FieldElement, nonce types.HashlockNonce) (types.Hashlock, error)

	// InitiatorCommitment H(hashlock, sx)，响应方用它核对发起方的存款
	InitiatorCommitment(hashlock types.Hashlock, sx types.SharedSecret) (types.Commitment, error)

	// CommitAsInitiator hashlock = H(pk.X, nonce)，commitment = H(hashlock, sx)
	CommitAsInitiator(counterparty types.PublicKey, secret types.FieldElement, nonce types.HashlockNonce) (types.Hashlock, types.Commitment, error)

	// CommitAsResponder commitment = H(H(hashlock), sx)
	CommitAsResponder(counterparty types.PublicKey, secret types.FieldElement, hashlock types.Hashlock) (types.Commitment, error)

	// MirrorResponder 发起方用自己的 nonce 推导响应方承诺
	MirrorResponder(counterparty types.PublicKey, secret types.FieldElement, nonce types.HashlockNonce) (types.Commitment, error)

	// Nullifier H(sx, counterpartyX, orderID)
	Nullifier(sx types.SharedSecret, counterpartyX, orderID types.FieldElement) (types.Nullifier, error)
}
