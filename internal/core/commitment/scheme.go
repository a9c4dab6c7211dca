// Package commitment 实现交换双方的哈希锁、承诺与 nullifier 计算
//
// 两个角色共享同一个 ECDH 结果 sx：
//
//	发起方：hashlock = H(pkB.X, nonce)，C_A = H(hashlock, sx)
//	响应方：C_B = H(H(hashlock), sx)
//
// 响应方多出的一次哈希使两个承诺在链上不可关联，但双方都能各自算出对方的承诺。
package commitment

import (
	"fmt"

	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

var _ swapintf.CommitmentScheme = (*Scheme)(nil)

// Scheme 承诺计算，无状态
type Scheme struct {
	hasher cryptointf.Hasher
	keys   cryptointf.KeyManager
}

// NewScheme 创建承诺计算
func NewScheme(hasher cryptointf.Hasher, keys cryptointf.KeyManager) *Scheme {
	return &Scheme{hasher: hasher, keys: keys}
}

// Hasher 底层哈希
func (s *Scheme) Hasher() cryptointf.Hasher {
	return s.hasher
}

// SharedSecret 校验对端公钥和本方标量后计算 sx
func (s *Scheme) SharedSecret(counterparty types.PublicKey, secret types.FieldElement) (types.SharedSecret, error) {
	if !secret.IsSet() || secret.IsZero() {
		return types.SharedSecret{}, types.WrapInvalidWitnessInputError("secret", "empty")
	}
	if !counterparty.IsSet() {
		return types.SharedSecret{}, types.WrapInvalidWitnessInputError("counterparty_pk", "empty")
	}
	return s.keys.SharedSecret(counterparty, secret)
}

// Hashlock H(pkX, nonce)
func (s *Scheme) Hashlock(counterpartyX types.FieldElement, nonce types.HashlockNonce) (types.Hashlock, error) {
	if !nonce.IsSet() {
		return types.Hashlock{}, types.WrapInvalidWitnessInputError("nonce", "empty")
	}
	h, err := s.hasher.Hash(counterpartyX, nonce.FieldElement)
	if err != nil {
		return types.Hashlock{}, err
	}
	return types.Hashlock{FieldElement: h}, nil
}

// InitiatorCommitment H(hashlock, sx)
func (s *Scheme) InitiatorCommitment(hashlock types.Hashlock, sx types.SharedSecret) (types.Commitment, error) {
	c, err := s.hasher.Hash(hashlock.FieldElement, sx.FieldElement)
	if err != nil {
		return types.Commitment{}, err
	}
	return types.Commitment{FieldElement: c}, nil
}

// ResponderCommitment H(H(hashlock), sx)
func (s *Scheme) ResponderCommitment(hashlock types.Hashlock, sx types.SharedSecret) (types.Commitment, error) {
	if err := ValidateHashlock(hashlock); err != nil {
		return types.Commitment{}, err
	}
	hh, err := s.hasher.Hash(hashlock.FieldElement)
	if err != nil {
		return types.Commitment{}, err
	}
	c, err := s.hasher.Hash(hh, sx.FieldElement)
	if err != nil {
		return types.Commitment{}, err
	}
	return types.Commitment{FieldElement: c}, nil
}

// CommitAsInitiator 实现 swapintf.CommitmentScheme
func (s *Scheme) CommitAsInitiator(counterparty types.PublicKey, secret types.FieldElement, nonce types.HashlockNonce) (types.Hashlock, types.Commitment, error) {
	sx, err := s.SharedSecret(counterparty, secret)
	if err != nil {
		return types.Hashlock{}, types.Commitment{}, err
	}
	hashlock, err := s.Hashlock(counterparty.X, nonce)
	if err != nil {
		return types.Hashlock{}, types.Commitment{}, err
	}
	commitment, err := s.InitiatorCommitment(hashlock, sx)
	if err != nil {
		return types.Hashlock{}, types.Commitment{}, err
	}
	return hashlock, commitment, nil
}

// CommitAsResponder 实现 swapintf.CommitmentScheme
func (s *Scheme) CommitAsResponder(counterparty types.PublicKey, secret types.FieldElement, hashlock types.Hashlock) (types.Commitment, error) {
	// 哈希锁先于密钥校验，空哈希锁总是报 ErrInvalidHashlock
	if err := ValidateHashlock(hashlock); err != nil {
		return types.Commitment{}, err
	}
	sx, err := s.SharedSecret(counterparty, secret)
	if err != nil {
		return types.Commitment{}, err
	}
	return s.ResponderCommitment(hashlock, sx)
}

// MirrorResponder 实现 swapintf.CommitmentScheme
//
// 发起方没有响应方私钥，但 sx 对称、哈希锁由自己生成，可以直接算出 C_B。
func (s *Scheme) MirrorResponder(counterparty types.PublicKey, secret types.FieldElement, nonce types.HashlockNonce) (types.Commitment, error) {
	sx, err := s.SharedSecret(counterparty, secret)
	if err != nil {
		return types.Commitment{}, err
	}
	hashlock, err := s.Hashlock(counterparty.X, nonce)
	if err != nil {
		return types.Commitment{}, err
	}
	return s.ResponderCommitment(hashlock, sx)
}

// Nullifier 实现 swapintf.CommitmentScheme
func (s *Scheme) Nullifier(sx types.SharedSecret, counterpartyX, orderID types.FieldElement) (types.Nullifier, error) {
	if !sx.IsSet() {
		return types.Nullifier{}, types.WrapInvalidWitnessInputError("shared_secret", "empty")
	}
	if !counterpartyX.IsSet() {
		return types.Nullifier{}, types.WrapInvalidWitnessInputError("counterparty_x", "empty")
	}
	if !orderID.IsSet() {
		return types.Nullifier{}, types.WrapInvalidWitnessInputError("order_id", "empty")
	}
	n, err := s.hasher.Hash(sx.FieldElement, counterpartyX, orderID)
	if err != nil {
		return types.Nullifier{}, err
	}
	return types.Nullifier{FieldElement: n}, nil
}

// ValidateHashlock 哈希锁必须已设置且非零
func ValidateHashlock(h types.Hashlock) error {
	if !h.IsSet() {
		return fmt.Errorf("%w: empty", types.ErrInvalidHashlock)
	}
	if h.IsZero() {
		return fmt.Errorf("%w: zero", types.ErrInvalidHashlock)
	}
	return nil
}
