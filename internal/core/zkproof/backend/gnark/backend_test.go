package gnark_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoconfig "github.com/ztomic/v1/internal/config/crypto"
	"github.com/ztomic/v1/internal/core/commitment"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/field"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/hash"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/key"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/merkle"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/internal/core/zkproof"
	"github.com/ztomic/v1/internal/core/zkproof/backend/gnark"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

type fixture struct {
	backend   *gnark.Backend
	generator *zkproof.Generator
	tree      *merkle.Tree
	alice     types.FieldElement
	bob       types.FieldElement
	alicePK   types.PublicKey
	bobPK     types.PublicKey
	nonce     types.HashlockNonce
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h, err := hash.New(cryptoconfig.HashPoseidon2)
	require.NoError(t, err)
	keys := key.NewKeyService()
	codec, err := field.NewCodec(cryptoconfig.New(nil).GetOptions())
	require.NoError(t, err)
	scheme := commitment.NewScheme(h, keys)

	backend, err := gnark.New(logimpl.NewNop(), cryptoconfig.HashPoseidon2)
	require.NoError(t, err)

	f := &fixture{
		backend:   backend,
		generator: zkproof.NewGenerator(logimpl.NewNop(), scheme, keys, codec, backend),
		alice:     types.FieldElementFromUint64(111),
		bob:       types.FieldElementFromUint64(222),
		nonce:     types.HashlockNonce{FieldElement: types.FieldElementFromUint64(42)},
	}
	f.alicePK, err = keys.DerivePublicKey(f.alice)
	require.NoError(t, err)
	f.bobPK, err = keys.DerivePublicKey(f.bob)
	require.NoError(t, err)

	hashlock, cA, err := scheme.CommitAsInitiator(f.bobPK, f.alice, f.nonce)
	require.NoError(t, err)
	cB, err := scheme.CommitAsResponder(f.alicePK, f.bob, hashlock)
	require.NoError(t, err)

	// 前后各放一个无关叶子，路径方向不全为 0
	f.tree, err = merkle.NewFromLeaves(3, h, []types.FieldElement{
		types.FieldElementFromUint64(5),
		cA.FieldElement,
		types.FieldElementFromUint64(6),
		cB.FieldElement,
	})
	require.NoError(t, err)
	return f
}

func TestProveAndVerifyBothRoles(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	f := newFixture(t)
	ctx := context.Background()

	t.Run("发起方", func(t *testing.T) {
		proof, w, err := f.generator.ProveAsInitiator(ctx, f.tree, swapintf.InitiatorRequest{
			Secret:         f.alice,
			CounterpartyPK: f.bobPK,
			Nonce:          f.nonce,
			OrderID:        "7",
		})
		require.NoError(t, err)
		require.Equal(t, gnark.BackendName, proof.Backend)
		require.Len(t, proof.PublicInputs, 3)
		require.True(t, proof.PublicInputs[2].Equal(f.nonce.FieldElement))
		require.Equal(t, uint64(1), w.MerkleProof.LeafIndex, "发起方证明自己存入的 C_A")

		require.NoError(t, f.backend.Verify(types.RoleInitiator, 3, proof.Bytes, proof.PublicInputs))

		// 篡改公开输入后验证失败
		bad := append([]types.FieldElement(nil), proof.PublicInputs...)
		bad[0] = types.FieldElementFromUint64(1)
		require.ErrorIs(t, f.backend.Verify(types.RoleInitiator, 3, proof.Bytes, bad), gnark.ErrProofVerificationFailed)
	})

	t.Run("响应方", func(t *testing.T) {
		proof, w, err := f.generator.ProveAsResponder(ctx, f.tree, swapintf.ResponderRequest{
			Secret:         f.bob,
			CounterpartyPK: f.alicePK,
			Nonce:          f.nonce,
			OrderID:        "7",
		})
		require.NoError(t, err)
		require.Len(t, proof.PublicInputs, 2)
		require.Equal(t, uint64(1), w.MerkleProof.LeafIndex)
		require.NoError(t, f.backend.Verify(types.RoleResponder, 3, proof.Bytes, proof.PublicInputs))
	})
}

func TestProveRejectsInconsistentWitness(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	f := newFixture(t)

	w, err := f.generator.InitiatorWitness(f.tree, swapintf.InitiatorRequest{
		Secret:         f.alice,
		CounterpartyPK: f.bobPK,
		Nonce:          f.nonce,
		OrderID:        "7",
	})
	require.NoError(t, err)

	w.Nullifier = types.Nullifier{FieldElement: types.FieldElementFromUint64(9)}
	_, err = f.backend.Prove(context.Background(), w)
	require.Error(t, err)
}

func TestProveHonoursCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.generator.ProveAsInitiator(ctx, f.tree, swapintf.InitiatorRequest{
		Secret:         f.alice,
		CounterpartyPK: f.bobPK,
		Nonce:          f.nonce,
		OrderID:        "7",
	})
	require.ErrorIs(t, err, types.ErrProvingBackendFailure)
}

func TestNewRejectsPoseidon(t *testing.T) {
	_, err := gnark.New(logimpl.NewNop(), cryptoconfig.HashPoseidon)
	require.ErrorIs(t, err, gnark.ErrUnsupportedHash)
}

func TestCircuitFactories(t *testing.T) {
	_, err := gnark.NewCircuit(types.RoleInitiator, 0)
	require.Error(t, err)
	_, err = gnark.NewCircuit(types.RoleUnknown, 3)
	require.Error(t, err)

	c, err := gnark.NewInitiatorCircuit(3)
	require.NoError(t, err)
	require.Len(t, c.Path, 3)
	require.Len(t, c.Directions, 3)
}

func TestExportSolidityVerifier(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	backend, err := gnark.New(logimpl.NewNop(), cryptoconfig.HashPoseidon2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, backend.Manager().ExportSolidityVerifier(types.RoleResponder, 3, &buf))
	require.Contains(t, buf.String(), "pragma solidity")
}
