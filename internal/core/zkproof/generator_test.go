package zkproof

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoconfig "github.com/ztomic/v1/internal/config/crypto"
	proverconfig "github.com/ztomic/v1/internal/config/prover"
	"github.com/ztomic/v1/internal/core/commitment"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/field"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/hash"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/key"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/merkle"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

// 超过域模数 r 的订单号：r + 5
const bigOrderID = "21888242871839275222246405745257275088548364400416034343698204186575808495622"

type recordingBackend struct {
	calls   int
	last    *types.Witness
	err     error
	inputs  []types.FieldElement
	noInput bool
}

func (b *recordingBackend) Name() string { return "recording" }

func (b *recordingBackend) Prove(_ context.Context, w *types.Witness) (types.Proof, error) {
	b.calls++
	b.last = w
	if b.err != nil {
		return types.Proof{}, b.err
	}
	p := types.Proof{Bytes: []byte{0xde, 0xad}}
	switch {
	case b.inputs != nil:
		p.PublicInputs = b.inputs
	case !b.noInput:
		p.PublicInputs = w.PublicInputs()
	}
	return p, nil
}

type env struct {
	gen     *Generator
	backend *recordingBackend
	scheme  *commitment.Scheme
	tree    *merkle.Tree
	alice   types.FieldElement
	bob     types.FieldElement
	alicePK types.PublicKey
	bobPK   types.PublicKey
	nonce   types.HashlockNonce
	cA      types.Commitment
	cB      types.Commitment
}

func newEnv(t *testing.T, policy string) *env {
	t.Helper()
	h, err := hash.New(cryptoconfig.HashPoseidon2)
	require.NoError(t, err)
	keys := key.NewKeyService()
	opts := cryptoconfig.New(nil).GetOptions()
	opts.OrderIDPolicy = policy
	codec, err := field.NewCodec(opts)
	require.NoError(t, err)

	e := &env{
		backend: &recordingBackend{},
		scheme:  commitment.NewScheme(h, keys),
		alice:   types.FieldElementFromUint64(111),
		bob:     types.FieldElementFromUint64(222),
		nonce:   types.HashlockNonce{FieldElement: types.FieldElementFromUint64(42)},
	}
	e.gen = NewGenerator(logimpl.NewNop(), e.scheme, keys, codec, e.backend)
	e.alicePK, err = keys.DerivePublicKey(e.alice)
	require.NoError(t, err)
	e.bobPK, err = keys.DerivePublicKey(e.bob)
	require.NoError(t, err)

	var hashlock types.Hashlock
	hashlock, e.cA, err = e.scheme.CommitAsInitiator(e.bobPK, e.alice, e.nonce)
	require.NoError(t, err)
	e.cB, err = e.scheme.CommitAsResponder(e.alicePK, e.bob, hashlock)
	require.NoError(t, err)

	e.tree, err = merkle.NewFromLeaves(3, h, []types.FieldElement{e.cA.FieldElement, e.cB.FieldElement})
	require.NoError(t, err)
	return e
}

func (e *env) initiatorReq(orderID string) swapintf.InitiatorRequest {
	return swapintf.InitiatorRequest{Secret: e.alice, CounterpartyPK: e.bobPK, Nonce: e.nonce, OrderID: orderID}
}

func (e *env) responderReq(orderID string) swapintf.ResponderRequest {
	return swapintf.ResponderRequest{Secret: e.bob, CounterpartyPK: e.alicePK, Nonce: e.nonce, OrderID: orderID}
}

func TestProveAsInitiator(t *testing.T) {
	e := newEnv(t, cryptoconfig.OrderIDPolicyReduce)

	proof, w, err := e.gen.ProveAsInitiator(context.Background(), e.tree, e.initiatorReq("7"))
	require.NoError(t, err)
	require.Equal(t, 1, e.backend.calls)
	require.Equal(t, types.RoleInitiator, proof.Role)
	require.Equal(t, "recording", proof.Backend)
	require.Equal(t, "0xdead", proof.Hex())

	// 发起方证明的是自己存入的 C_A
	require.True(t, w.Commitment.Equal(e.cA.FieldElement))
	require.Equal(t, uint64(0), w.MerkleProof.LeafIndex)
	require.True(t, w.Root.Equal(e.tree.Root()))
	require.True(t, e.tree.Verify(w.Commitment.FieldElement, w.MerkleProof))

	require.Len(t, proof.PublicInputs, 3)
	require.True(t, proof.PublicInputs[0].Equal(w.Nullifier.FieldElement))
	require.True(t, proof.PublicInputs[1].Equal(e.tree.Root()))
	require.True(t, proof.PublicInputs[2].Equal(e.nonce.FieldElement))

	sx, err := e.scheme.SharedSecret(e.bobPK, e.alice)
	require.NoError(t, err)
	want, err := e.scheme.Nullifier(sx, e.bobPK.X, types.FieldElementFromUint64(7))
	require.NoError(t, err)
	require.True(t, w.Nullifier.Equal(want.FieldElement))
}

func TestProveAsResponder(t *testing.T) {
	e := newEnv(t, cryptoconfig.OrderIDPolicyReduce)

	proof, w, err := e.gen.ProveAsResponder(context.Background(), e.tree, e.responderReq("7"))
	require.NoError(t, err)
	require.True(t, w.Commitment.Equal(e.cA.FieldElement), "响应方证明的是发起方存款")
	require.Equal(t, uint64(0), w.MerkleProof.LeafIndex)
	require.Len(t, proof.PublicInputs, 2)
	require.True(t, w.OwnPK.Equal(e.bobPK))

	// 两个角色的见证落在同一个叶子上
	_, wi0, err := e.gen.ProveAsInitiator(context.Background(), e.tree, e.initiatorReq("7"))
	require.NoError(t, err)
	require.True(t, wi0.Commitment.Equal(w.Commitment.FieldElement))
	require.True(t, wi0.Hashlock.Equal(w.Hashlock.FieldElement))

	// 双方 nullifier 绑定不同的对端公钥，不相同
	_, wi, err := e.gen.ProveAsInitiator(context.Background(), e.tree, e.initiatorReq("7"))
	require.NoError(t, err)
	require.False(t, wi.Nullifier.Equal(w.Nullifier.FieldElement))
	require.True(t, wi.SharedSecret.Equal(w.SharedSecret.FieldElement), "ECDH 对称")
}

func TestOrderIDAboveModulus(t *testing.T) {
	t.Run("reduce 策略两个角色一致归约", func(t *testing.T) {
		e := newEnv(t, cryptoconfig.OrderIDPolicyReduce)
		wi, err := e.gen.InitiatorWitness(e.tree, e.initiatorReq(bigOrderID))
		require.NoError(t, err)
		wr, err := e.gen.ResponderWitness(e.tree, e.responderReq(bigOrderID))
		require.NoError(t, err)

		five := types.FieldElementFromUint64(5)
		require.True(t, wi.OrderID.Equal(five))
		require.True(t, wr.OrderID.Equal(five))

		// 与直接使用归约后订单号的结果相同
		wi5, err := e.gen.InitiatorWitness(e.tree, e.initiatorReq("5"))
		require.NoError(t, err)
		require.True(t, wi.Nullifier.Equal(wi5.Nullifier.FieldElement))
	})

	t.Run("reject 策略两个角色一致拒绝", func(t *testing.T) {
		e := newEnv(t, cryptoconfig.OrderIDPolicyReject)
		_, _, err := e.gen.ProveAsInitiator(context.Background(), e.tree, e.initiatorReq(bigOrderID))
		require.ErrorIs(t, err, types.ErrOutOfRange)
		_, _, err = e.gen.ProveAsResponder(context.Background(), e.tree, e.responderReq(bigOrderID))
		require.ErrorIs(t, err, types.ErrOutOfRange)
		require.Equal(t, 0, e.backend.calls)
	})
}

func TestCommitmentNotFound(t *testing.T) {
	e := newEnv(t, cryptoconfig.OrderIDPolicyReduce)
	h, err := hash.New(cryptoconfig.HashPoseidon2)
	require.NoError(t, err)

	// 只含发起方自己存款的树即可生成发起方见证
	own, err := merkle.NewFromLeaves(3, h, []types.FieldElement{e.cA.FieldElement})
	require.NoError(t, err)
	w, err := e.gen.InitiatorWitness(own, e.initiatorReq("7"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), w.MerkleProof.LeafIndex)

	// 只含响应方存款的树：找不到 C_A
	partial, err := merkle.NewFromLeaves(3, h, []types.FieldElement{e.cB.FieldElement})
	require.NoError(t, err)
	_, _, err = e.gen.ProveAsInitiator(context.Background(), partial, e.initiatorReq("7"))
	require.ErrorIs(t, err, types.ErrCommitmentNotFound)

	// 错误的 nonce 推导出不存在的承诺
	req := e.responderReq("7")
	req.Nonce = types.HashlockNonce{FieldElement: types.FieldElementFromUint64(43)}
	_, _, err = e.gen.ProveAsResponder(context.Background(), e.tree, req)
	require.ErrorIs(t, err, types.ErrCommitmentNotFound)
	require.Equal(t, 0, e.backend.calls)
}

func TestInvalidWitnessInput(t *testing.T) {
	e := newEnv(t, cryptoconfig.OrderIDPolicyReduce)
	h, err := hash.New(cryptoconfig.HashPoseidon2)
	require.NoError(t, err)
	empty, err := merkle.New(3, h)
	require.NoError(t, err)

	cases := []struct {
		name   string
		tree   swapintf.TreeView
		mutate func(r *swapintf.InitiatorRequest)
	}{
		{"空私钥", e.tree, func(r *swapintf.InitiatorRequest) { r.Secret = types.FieldElement{} }},
		{"空公钥", e.tree, func(r *swapintf.InitiatorRequest) { r.CounterpartyPK = types.PublicKey{} }},
		{"空 nonce", e.tree, func(r *swapintf.InitiatorRequest) { r.Nonce = types.HashlockNonce{} }},
		{"空订单号", e.tree, func(r *swapintf.InitiatorRequest) { r.OrderID = "" }},
		{"空叶子集合", empty, func(r *swapintf.InitiatorRequest) {}},
		{"nil 树", nil, func(r *swapintf.InitiatorRequest) {}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := e.initiatorReq("7")
			tc.mutate(&req)
			_, _, err := e.gen.ProveAsInitiator(context.Background(), tc.tree, req)
			require.ErrorIs(t, err, types.ErrInvalidWitnessInput)
		})
	}
	require.Equal(t, 0, e.backend.calls)
}

func TestBackendFailure(t *testing.T) {
	e := newEnv(t, cryptoconfig.OrderIDPolicyReduce)
	e.backend.err = errors.New("out of memory")

	_, w, err := e.gen.ProveAsInitiator(context.Background(), e.tree, e.initiatorReq("7"))
	require.ErrorIs(t, err, types.ErrProvingBackendFailure)
	require.Contains(t, err.Error(), "out of memory")
	require.Nil(t, w)

	// 重试从头开始，重新调用后端
	e.backend.err = nil
	_, _, err = e.gen.ProveAsInitiator(context.Background(), e.tree, e.initiatorReq("7"))
	require.NoError(t, err)
	require.Equal(t, 2, e.backend.calls)
}

func TestBackendPublicInputs(t *testing.T) {
	e := newEnv(t, cryptoconfig.OrderIDPolicyReduce)

	t.Run("后端未返回时按见证补齐", func(t *testing.T) {
		e.backend.noInput = true
		defer func() { e.backend.noInput = false }()
		proof, w, err := e.gen.ProveAsResponder(context.Background(), e.tree, e.responderReq("7"))
		require.NoError(t, err)
		require.Equal(t, w.PublicInputs(), proof.PublicInputs)
	})

	t.Run("未按规范顺序返回时报错", func(t *testing.T) {
		w, err := e.gen.InitiatorWitness(e.tree, e.initiatorReq("7"))
		require.NoError(t, err)
		// 电路参数顺序 [nonce, nullifier, root] 必须由后端转换
		e.backend.inputs = []types.FieldElement{w.Nonce.FieldElement, w.Nullifier.FieldElement, w.Root}
		defer func() { e.backend.inputs = nil }()
		_, _, err = e.gen.ProveAsInitiator(context.Background(), e.tree, e.initiatorReq("7"))
		require.ErrorIs(t, err, types.ErrProvingBackendFailure)
	})

	t.Run("不一致时报错", func(t *testing.T) {
		e.backend.inputs = []types.FieldElement{types.FieldElementFromUint64(1), types.FieldElementFromUint64(2)}
		defer func() { e.backend.inputs = nil }()
		_, _, err := e.gen.ProveAsResponder(context.Background(), e.tree, e.responderReq("7"))
		require.ErrorIs(t, err, types.ErrProvingBackendFailure)
	})
}

func TestNewBackend(t *testing.T) {
	opts := proverconfig.New(nil).GetOptions()

	b, err := NewBackend(logimpl.NewNop(), opts, cryptoconfig.HashPoseidon2)
	require.NoError(t, err)
	require.Equal(t, "groth16", b.Name())

	_, err = NewBackend(logimpl.NewNop(), opts, cryptoconfig.HashPoseidon)
	require.Error(t, err, "参考电路只支持 poseidon2")

	opts.Backend = proverconfig.BackendNoir
	b, err = NewBackend(logimpl.NewNop(), opts, cryptoconfig.HashPoseidon)
	require.NoError(t, err)
	require.Equal(t, "noir", b.Name())

	opts.Backend = "plonk"
	_, err = NewBackend(logimpl.NewNop(), opts, cryptoconfig.HashPoseidon2)
	require.Error(t, err)
}
