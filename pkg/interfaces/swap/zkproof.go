package swap

import (
	"context"

	"github.com/ztomic/v1/pkg/types"
)

// ProvingBackend 外部证明后端
//
// 失败时不保留任何中间状态，调用方从头重试。
type ProvingBackend interface {
	// Name 后端名称（groth16 | noir）
	Name() string

	// Prove 由完整见证生成证明，公开输入顺序为 nullifier, root, extras…
	Prove(ctx context.Context, witness *types.Witness) (types.Proof, error)
}

// TreeView 证明生成所需的只读 Merkle 视图
type TreeView interface {
	IndexOf(leaf types.FieldElement) (uint64, error)
	Proof(index uint64) (types.MerkleProof, error)
	Len() uint64
}

// InitiatorRequest 发起方提款证明请求
type InitiatorRequest struct {
	Secret         types.FieldElement  // 发起方私钥标量 a
	CounterpartyPK types.PublicKey     // 响应方公钥 B
	Nonce          types.HashlockNonce // 发起方选择的 nonce
	OrderID        string              // 十进制订单号
}

// ResponderRequest 响应方提款证明请求
type ResponderRequest struct {
	Secret         types.FieldElement  // 响应方私钥标量 b
	CounterpartyPK types.PublicKey     // 发起方公钥 A
	Nonce          types.HashlockNonce // 发起方提款时公开的 nonce
	OrderID        string
}

// ProofGenerator 两个角色的提款证明生成
type ProofGenerator interface {
	ProveAsInitiator(ctx context.Context, tree TreeView, req InitiatorRequest) (types.Proof, *types.Witness, error)
	ProveAsResponder(ctx context.Context, tree TreeView, req ResponderRequest) (types.Proof, *types.Witness, error)
}
