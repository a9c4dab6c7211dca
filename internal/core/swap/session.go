package swap

import (
	"github.com/ztomic/v1/internal/core/correlator"
	"github.com/ztomic/v1/pkg/types"
)

// OpenParams 打开会话所需的本方参数
type OpenParams struct {
	Role           types.Role
	OrderID        string
	Secret         types.FieldElement
	CounterpartyPK types.PublicKey
	// Nonce 仅发起方使用，未设置时随机生成
	Nonce types.HashlockNonce
}

// session 单个交换会话
//
// 所有字段由 Orchestrator.mu 保护。
type session struct {
	id          string
	role        types.Role
	orderID     string
	orderIDHash [32]byte

	secret         types.FieldElement
	ownPK          types.PublicKey
	counterpartyPK types.PublicKey
	sx             types.SharedSecret

	nonce    types.HashlockNonce
	hashlock types.Hashlock

	initiatorCommitment types.Commitment
	responderCommitment types.Commitment
	initiatorNullifier  types.Nullifier
	responderNullifier  types.Nullifier

	state       types.SwapState
	facts       facts
	transitions int
	lastError   string
	proving     bool
	depositing  bool

	depositTx  string
	withdrawTx string
}

// initiatorPK / responderPK 按角色取双方公钥
func (s *session) initiatorPK() types.PublicKey {
	if s.role == types.RoleInitiator {
		return s.ownPK
	}
	return s.counterpartyPK
}

func (s *session) responderPK() types.PublicKey {
	if s.role == types.RoleResponder {
		return s.ownPK
	}
	return s.counterpartyPK
}

// ownCommitment 本方存入的承诺
func (s *session) ownCommitment() types.Commitment {
	if s.role == types.RoleInitiator {
		return s.initiatorCommitment
	}
	return s.responderCommitment
}

func (s *session) watch() correlator.Watch {
	return correlator.Watch{
		SwapID:              s.id,
		OrderIDHash:         s.orderIDHash,
		InitiatorCommitment: s.initiatorCommitment,
		ResponderCommitment: s.responderCommitment,
		InitiatorNullifier:  s.initiatorNullifier,
		ResponderNullifier:  s.responderNullifier,
	}
}

func (s *session) status(root types.FieldElement) types.SwapStatus {
	return types.SwapStatus{
		ID:          s.id,
		Role:        s.role,
		OrderID:     s.orderID,
		State:       s.state,
		LastError:   s.lastError,
		Proving:     s.proving,
		Hashlock:    s.hashlock.FieldElement,
		Commitment:  s.ownCommitment().FieldElement,
		Root:        root,
		DepositTx:   s.depositTx,
		WithdrawTx:  s.withdrawTx,
		Transitions: s.transitions,
	}
}
