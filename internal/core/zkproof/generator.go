// Package zkproof 负责提款证明的见证准备与证明生成
//
// 两个角色证明的都是发起方存入的叶子 C_A = H(H(pkB.X, nonce), sx)：
//
//	发起方：pkB 为对方公钥，公开输入 [nullifier, root, nonce]
//	响应方：pkB = b·G，公开输入 [nullifier, root]
//
// 见证必须与实际存入的承诺完全一致，否则外部电路无法满足。
// 后端返回的公开输入须已是上述顺序（电路自身的参数顺序由后端转换）。
package zkproof

import (
	"context"
	"fmt"
	"time"

	"github.com/ztomic/v1/internal/core/commitment"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/internal/core/infrastructure/metrics"
	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

var _ swapintf.ProofGenerator = (*Generator)(nil)

// Generator 提款证明生成器
type Generator struct {
	logger  log.Logger
	scheme  *commitment.Scheme
	keys    cryptointf.KeyManager
	codec   cryptointf.FieldCodec
	backend swapintf.ProvingBackend
}

// NewGenerator 创建证明生成器
func NewGenerator(
	logger log.Logger,
	scheme *commitment.Scheme,
	keys cryptointf.KeyManager,
	codec cryptointf.FieldCodec,
	backend swapintf.ProvingBackend,
) *Generator {
	return &Generator{
		logger:  logimpl.NewModuleLogger(logger, "zkproof"),
		scheme:  scheme,
		keys:    keys,
		codec:   codec,
		backend: backend,
	}
}

// Backend 当前证明后端
func (g *Generator) Backend() swapintf.ProvingBackend {
	return g.backend
}

// ProveAsInitiator 实现 swapintf.ProofGenerator
func (g *Generator) ProveAsInitiator(ctx context.Context, tree swapintf.TreeView, req swapintf.InitiatorRequest) (types.Proof, *types.Witness, error) {
	w, err := g.InitiatorWitness(tree, req)
	if err != nil {
		return types.Proof{}, nil, err
	}
	proof, err := g.prove(ctx, w)
	if err != nil {
		return types.Proof{}, nil, err
	}
	return proof, w, nil
}

// ProveAsResponder 实现 swapintf.ProofGenerator
func (g *Generator) ProveAsResponder(ctx context.Context, tree swapintf.TreeView, req swapintf.ResponderRequest) (types.Proof, *types.Witness, error) {
	w, err := g.ResponderWitness(tree, req)
	if err != nil {
		return types.Proof{}, nil, err
	}
	proof, err := g.prove(ctx, w)
	if err != nil {
		return types.Proof{}, nil, err
	}
	return proof, w, nil
}

// InitiatorWitness 组装发起方见证，不调用后端
func (g *Generator) InitiatorWitness(tree swapintf.TreeView, req swapintf.InitiatorRequest) (*types.Witness, error) {
	if err := validateCommon(tree, req.Secret, req.CounterpartyPK, req.Nonce, req.OrderID); err != nil {
		return nil, err
	}
	orderID, err := g.codec.ParseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}

	ownPK, err := g.keys.DerivePublicKey(req.Secret)
	if err != nil {
		return nil, err
	}
	sx, err := g.scheme.SharedSecret(req.CounterpartyPK, req.Secret)
	if err != nil {
		return nil, err
	}
	hashlock, err := g.scheme.Hashlock(req.CounterpartyPK.X, req.Nonce)
	if err != nil {
		return nil, err
	}
	leaf, err := g.scheme.InitiatorCommitment(hashlock, sx)
	if err != nil {
		return nil, err
	}
	nullifier, err := g.scheme.Nullifier(sx, req.CounterpartyPK.X, orderID)
	if err != nil {
		return nil, err
	}

	w := &types.Witness{
		Role:           types.RoleInitiator,
		OwnSecret:      req.Secret,
		SharedSecret:   sx,
		CounterpartyX:  req.CounterpartyPK.X,
		Nonce:          req.Nonce,
		OrderID:        orderID,
		Commitment:     leaf,
		CounterpartyPK: req.CounterpartyPK,
		OwnPK:          ownPK,
		Nullifier:      nullifier,
		Hashlock:       hashlock,
	}
	if err := g.attachPath(tree, w); err != nil {
		return nil, err
	}
	return w, nil
}

// ResponderWitness 组装响应方见证，不调用后端
func (g *Generator) ResponderWitness(tree swapintf.TreeView, req swapintf.ResponderRequest) (*types.Witness, error) {
	if err := validateCommon(tree, req.Secret, req.CounterpartyPK, req.Nonce, req.OrderID); err != nil {
		return nil, err
	}
	orderID, err := g.codec.ParseOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}

	ownPK, err := g.keys.DerivePublicKey(req.Secret)
	if err != nil {
		return nil, err
	}
	sx, err := g.scheme.SharedSecret(req.CounterpartyPK, req.Secret)
	if err != nil {
		return nil, err
	}
	// 发起方的哈希锁绑定的是响应方自己的公钥
	hashlock, err := g.scheme.Hashlock(ownPK.X, req.Nonce)
	if err != nil {
		return nil, err
	}
	leaf, err := g.scheme.InitiatorCommitment(hashlock, sx)
	if err != nil {
		return nil, err
	}
	nullifier, err := g.scheme.Nullifier(sx, req.CounterpartyPK.X, orderID)
	if err != nil {
		return nil, err
	}

	w := &types.Witness{
		Role:           types.RoleResponder,
		OwnSecret:      req.Secret,
		SharedSecret:   sx,
		CounterpartyX:  req.CounterpartyPK.X,
		Nonce:          req.Nonce,
		OrderID:        orderID,
		Commitment:     leaf,
		CounterpartyPK: req.CounterpartyPK,
		OwnPK:          ownPK,
		Nullifier:      nullifier,
		Hashlock:       hashlock,
	}
	if err := g.attachPath(tree, w); err != nil {
		return nil, err
	}
	return w, nil
}

// attachPath 定位承诺并填入路径与根
func (g *Generator) attachPath(tree swapintf.TreeView, w *types.Witness) error {
	index, err := tree.IndexOf(w.Commitment.FieldElement)
	if err != nil {
		return types.WrapCommitmentNotFoundError(w.Commitment, int(tree.Len()))
	}
	proof, err := tree.Proof(index)
	if err != nil {
		return fmt.Errorf("merkle proof for leaf %d: %w", index, err)
	}
	w.MerkleProof = proof
	w.Root = proof.Root

	g.logger.Debugf("见证已组装: role=%s leaf=%d root=%s", w.Role, index, proof.Root.Hex())
	return nil
}

// prove 调用后端，失败时不保留任何结果
func (g *Generator) prove(ctx context.Context, w *types.Witness) (types.Proof, error) {
	if g.backend == nil {
		return types.Proof{}, types.WrapProvingBackendError("none", w.Role, fmt.Errorf("no proving backend configured"))
	}

	start := time.Now()
	proof, err := g.backend.Prove(ctx, w)
	metrics.ObserveProof(w.Role.String(), g.backend.Name(), time.Since(start), err)
	if err != nil {
		g.logger.Warnf("证明生成失败: role=%s backend=%s err=%v", w.Role, g.backend.Name(), err)
		return types.Proof{}, types.WrapProvingBackendError(g.backend.Name(), w.Role, err)
	}

	// 后端可能只返回证明字节，公开输入统一按见证顺序给出
	expected := w.PublicInputs()
	if len(proof.PublicInputs) == 0 {
		proof.PublicInputs = expected
	} else if err := checkPublicInputs(expected, proof.PublicInputs); err != nil {
		return types.Proof{}, types.WrapProvingBackendError(g.backend.Name(), w.Role, err)
	}
	proof.Role = w.Role
	if proof.Backend == "" {
		proof.Backend = g.backend.Name()
	}

	g.logger.Infof("证明生成完成: role=%s backend=%s size=%d elapsed=%v",
		w.Role, proof.Backend, len(proof.Bytes), time.Since(start))
	return proof, nil
}

func validateCommon(tree swapintf.TreeView, secret types.FieldElement, pk types.PublicKey, nonce types.HashlockNonce, orderID string) error {
	switch {
	case !secret.IsSet() || secret.IsZero():
		return types.WrapInvalidWitnessInputError("secret", "empty")
	case !pk.IsSet():
		return types.WrapInvalidWitnessInputError("counterparty_pk", "empty")
	case !nonce.IsSet():
		return types.WrapInvalidWitnessInputError("nonce", "empty")
	case orderID == "":
		return types.WrapInvalidWitnessInputError("order_id", "empty")
	case tree == nil || tree.Len() == 0:
		return types.WrapInvalidWitnessInputError("leaves", "empty leaf set")
	}
	return nil
}

// checkPublicInputs 后端返回的公开输入必须以 nullifier, root 开头，
// 额外输入由电路决定，只比较双方都有的部分
func checkPublicInputs(expected, got []types.FieldElement) error {
	if len(got) < 2 {
		return fmt.Errorf("backend returned %d public inputs, want at least 2", len(got))
	}
	for i := 0; i < min(len(expected), len(got)); i++ {
		if !expected[i].Equal(got[i]) {
			return fmt.Errorf("public input %d mismatch: want %s, got %s", i, expected[i].Hex(), got[i].Hex())
		}
	}
	return nil
}
