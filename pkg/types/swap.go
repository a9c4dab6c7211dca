package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Role 交换参与方角色
type Role uint8

const (
	// RoleUnknown 未指定
	RoleUnknown Role = iota
	// RoleInitiator 发起方（Alice），先存款并公开哈希锁
	RoleInitiator
	// RoleResponder 响应方（Bob），观察到哈希锁后存款
	RoleResponder
)

// String 实现 fmt.Stringer
func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// Counterparty 对手方角色
func (r Role) Counterparty() Role {
	switch r {
	case RoleInitiator:
		return RoleResponder
	case RoleResponder:
		return RoleInitiator
	default:
		return RoleUnknown
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (r *Role) UnmarshalText(text []byte) error {
	if string(text) == "unknown" || len(text) == 0 {
		*r = RoleUnknown
		return nil
	}
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole 解析角色名称，兼容 alice/bob 别名
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "initiator", "alice":
		return RoleInitiator, nil
	case "responder", "bob":
		return RoleResponder, nil
	default:
		return RoleUnknown, fmt.Errorf("%w: unknown role %q", ErrInvalidWitnessInput, s)
	}
}

// SwapState 单个交换会话的生命周期状态
type SwapState uint8

const (
	StateAwaitingDeposits SwapState = iota
	StateInitiatorDeposited
	StateResponderObserved
	StateBothDeposited
	StateWithdrawalReady
	StateWithdrawn
	StateCompleted
)

var swapStateNames = map[SwapState]string{
	StateAwaitingDeposits:   "awaiting_deposits",
	StateInitiatorDeposited: "initiator_deposited",
	StateResponderObserved:  "responder_observed",
	StateBothDeposited:      "both_deposited",
	StateWithdrawalReady:    "withdrawal_ready",
	StateWithdrawn:          "withdrawn",
	StateCompleted:          "completed",
}

// String 实现 fmt.Stringer
func (s SwapState) String() string {
	if name, ok := swapStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText 实现 encoding.TextMarshaler
func (s SwapState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (s *SwapState) UnmarshalText(text []byte) error {
	for state, name := range swapStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown swap state %q", text)
}

// Terminal 是否为终止状态
func (s SwapState) Terminal() bool {
	return s == StateCompleted
}

// SwapStatus 会话状态快照，供 API 与 CLI 展示
type SwapStatus struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	OrderID     string       `json:"orderId"`
	State       SwapState    `json:"state"`
	LastError   string       `json:"lastError,omitempty"`
	Proving     bool         `json:"proving"`
	Hashlock    FieldElement `json:"hashlock"`
	Commitment  FieldElement `json:"commitment"`
	Root        FieldElement `json:"root"`
	DepositTx   string       `json:"depositTx,omitempty"`
	WithdrawTx  string       `json:"withdrawTx,omitempty"`
	Transitions int          `json:"transitions"`
}

// OrderStatus 注册中心里的订单状态
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderActive    OrderStatus = "active"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// SwapOrder 注册中心中的交换订单（intent）
type SwapOrder struct {
	ID           string      `json:"id"`
	Initiator    string      `json:"userName"`
	Counterparty string      `json:"counterparty"`
	FromToken    string      `json:"fromToken"`
	ToToken      string      `json:"toToken"`
	Amount       string      `json:"amount"`
	Chain        string      `json:"chain"`
	Status       OrderStatus `json:"status"`
}

// UserRecord 注册中心中的用户公钥记录
type UserRecord struct {
	UserName string `json:"userName"`
	PubKeyX  string `json:"pubKeyX"`
	PubKeyY  string `json:"pubKeyY"`
}

// ============================================================================
//                              链上事件
// ============================================================================

// EventKind 链上日志种类
type EventKind uint8

const (
	EventDeposit EventKind = iota + 1
	EventWithdrawal
)

// EventRef 链上日志定位信息，(TxHash, LogIndex) 唯一标识一条日志
type EventRef struct {
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"txHash"`
	LogIndex    uint   `json:"logIndex"`
}

// Key 去重键
func (r EventRef) Key() string {
	return fmt.Sprintf("%s:%d", strings.ToLower(r.TxHash), r.LogIndex)
}

// DepositEvent deposited 日志
type DepositEvent struct {
	EventRef
	Commitment  Commitment `json:"commitment"`
	OrderIDHash [32]byte   `json:"orderIdHash"`
	Hashlock    Hashlock   `json:"hashlock"`
	LeafIndex   uint64     `json:"leafIndex"`
}

// WithdrawalEvent withdrawal_initiator / withdrawal_responder 日志
type WithdrawalEvent struct {
	EventRef
	Role        Role          `json:"role"`
	Nullifier   Nullifier     `json:"nullifier"`
	OrderIDHash [32]byte      `json:"orderIdHash"`
	Nonce       HashlockNonce `json:"nonce"`
}

// ChainEvent 单消费者通道中传递的链上事件
type ChainEvent struct {
	Kind       EventKind
	Deposit    *DepositEvent
	Withdrawal *WithdrawalEvent
}

// Ref 返回事件定位信息
func (e ChainEvent) Ref() EventRef {
	switch {
	case e.Deposit != nil:
		return e.Deposit.EventRef
	case e.Withdrawal != nil:
		return e.Withdrawal.EventRef
	default:
		return EventRef{}
	}
}

// ============================================================================
//                              Merkle 与证明
// ============================================================================

// MerkleProof 叶子到根的认证路径
type MerkleProof struct {
	LeafIndex    uint64         `json:"leafIndex"`
	PathElements []FieldElement `json:"pathElements"`
	// PathIndices 0 表示当前节点在左，1 表示在右
	PathIndices []uint8      `json:"pathIndices"`
	Root        FieldElement `json:"root"`
}

// Depth 路径长度
func (p MerkleProof) Depth() int {
	return len(p.PathElements)
}

// Proof 证明后端产出，链上 verifier 消费
type Proof struct {
	Backend      string         `json:"backend"`
	Role         Role           `json:"role"`
	Bytes        []byte         `json:"-"`
	PublicInputs []FieldElement `json:"publicInputs"`
}

// Hex 0x 前缀的证明字节
func (p Proof) Hex() string {
	return "0x" + hex.EncodeToString(p.Bytes)
}

// Witness 证明后端的完整见证记录
type Witness struct {
	Role Role

	// 私有输入
	OwnSecret      FieldElement
	SharedSecret   SharedSecret
	CounterpartyX  FieldElement
	Nonce          HashlockNonce
	OrderID        FieldElement
	Commitment     Commitment
	MerkleProof    MerkleProof
	CounterpartyPK PublicKey
	OwnPK          PublicKey

	// 公开输入
	Nullifier Nullifier
	Root      FieldElement
	Hashlock  Hashlock
}

// PublicInputs 按链上 verifier 的顺序排列：nullifier, root, extras…
//
// 发起方额外公开 nonce（withdraw_initiator 的 extraPublicInput）。
func (w *Witness) PublicInputs() []FieldElement {
	out := []FieldElement{w.Nullifier.FieldElement, w.Root}
	if w.Role == RoleInitiator {
		out = append(out, w.Nonce.FieldElement)
	}
	return out
}

// IsEven 路径方向转换成 Noir 电路使用的 is_even 布尔数组
func (w *Witness) IsEven() []bool {
	out := make([]bool, len(w.MerkleProof.PathIndices))
	for i, bit := range w.MerkleProof.PathIndices {
		out[i] = bit == 0
	}
	return out
}
