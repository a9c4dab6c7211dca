package commitment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ztomic/v1/internal/core/infrastructure/crypto/hash"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/key"
	"github.com/ztomic/v1/pkg/types"
)

type party struct {
	secret types.FieldElement
	pk     types.PublicKey
}

func newParty(t *testing.T, keys *key.KeyService, secret uint64) party {
	t.Helper()
	s := types.FieldElementFromUint64(secret)
	pk, err := keys.DerivePublicKey(s)
	require.NoError(t, err)
	return party{secret: s, pk: pk}
}

func newScheme(t *testing.T, name string) (*Scheme, *key.KeyService) {
	t.Helper()
	h, err := hash.New(name)
	require.NoError(t, err)
	keys := key.NewKeyService()
	return NewScheme(h, keys), keys
}

func nonce(x uint64) types.HashlockNonce {
	return types.HashlockNonce{FieldElement: types.FieldElementFromUint64(x)}
}

func TestCommitAsInitiatorDeterministic(t *testing.T) {
	for _, name := range []string{"poseidon2", "poseidon"} {
		t.Run(name, func(t *testing.T) {
			s, keys := newScheme(t, name)
			alice := newParty(t, keys, 111)
			bob := newParty(t, keys, 222)

			hl1, c1, err := s.CommitAsInitiator(bob.pk, alice.secret, nonce(42))
			require.NoError(t, err)
			hl2, c2, err := s.CommitAsInitiator(bob.pk, alice.secret, nonce(42))
			require.NoError(t, err)
			require.True(t, hl1.Equal(hl2.FieldElement))
			require.True(t, c1.Equal(c2.FieldElement))

			// hashlock = H(pkB.X, nonce)
			want, err := s.Hasher().Hash(bob.pk.X, types.FieldElementFromUint64(42))
			require.NoError(t, err)
			require.True(t, hl1.Equal(want))

			// commitment = H(hashlock, sx)
			sx, err := keys.SharedSecret(bob.pk, alice.secret)
			require.NoError(t, err)
			wantC, err := s.Hasher().Hash(hl1.FieldElement, sx.FieldElement)
			require.NoError(t, err)
			require.True(t, c1.Equal(wantC))
		})
	}
}

func TestResponderMatchesInitiatorMirror(t *testing.T) {
	for _, name := range []string{"poseidon2", "poseidon"} {
		t.Run(name, func(t *testing.T) {
			s, keys := newScheme(t, name)
			alice := newParty(t, keys, 111)
			bob := newParty(t, keys, 222)

			hashlock, cA, err := s.CommitAsInitiator(bob.pk, alice.secret, nonce(42))
			require.NoError(t, err)

			cB, err := s.CommitAsResponder(alice.pk, bob.secret, hashlock)
			require.NoError(t, err)

			mirrored, err := s.MirrorResponder(bob.pk, alice.secret, nonce(42))
			require.NoError(t, err)
			require.True(t, cB.Equal(mirrored.FieldElement), "发起方推导的响应方承诺必须一致")
			require.False(t, cA.Equal(cB.FieldElement), "两个角色的承诺不相同")

			// 响应方用 pkB 与公开的 nonce 也能还原出发起方承诺
			bobHashlock, err := s.Hashlock(bob.pk.X, nonce(42))
			require.NoError(t, err)
			sx, err := s.SharedSecret(alice.pk, bob.secret)
			require.NoError(t, err)
			cA2, err := s.InitiatorCommitment(bobHashlock, sx)
			require.NoError(t, err)
			require.True(t, cA.Equal(cA2.FieldElement))
		})
	}
}

func TestCommitAsResponderInvalidHashlock(t *testing.T) {
	s, keys := newScheme(t, "poseidon2")
	alice := newParty(t, keys, 111)
	bob := newParty(t, keys, 222)

	cases := []struct {
		name     string
		hashlock types.Hashlock
	}{
		{"未设置", types.Hashlock{}},
		{"零值", types.Hashlock{FieldElement: types.FieldElementFromUint64(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CommitAsResponder(alice.pk, bob.secret, tc.hashlock)
			require.ErrorIs(t, err, types.ErrInvalidHashlock)
		})
	}
}

func TestInvalidInputs(t *testing.T) {
	s, keys := newScheme(t, "poseidon2")
	bob := newParty(t, keys, 222)

	_, _, err := s.CommitAsInitiator(bob.pk, types.FieldElement{}, nonce(1))
	require.ErrorIs(t, err, types.ErrInvalidWitnessInput)

	_, _, err = s.CommitAsInitiator(types.PublicKey{}, types.FieldElementFromUint64(1), nonce(1))
	require.ErrorIs(t, err, types.ErrInvalidWitnessInput)

	_, _, err = s.CommitAsInitiator(bob.pk, types.FieldElementFromUint64(1), types.HashlockNonce{})
	require.ErrorIs(t, err, types.ErrInvalidWitnessInput)

	offCurve := types.PublicKey{X: types.FieldElementFromUint64(1), Y: types.FieldElementFromUint64(2)}
	_, _, err = s.CommitAsInitiator(offCurve, types.FieldElementFromUint64(1), nonce(1))
	require.ErrorIs(t, err, types.ErrInvalidWitnessInput)
}

func TestNullifierSensitivity(t *testing.T) {
	s, keys := newScheme(t, "poseidon2")
	alice := newParty(t, keys, 111)
	bob := newParty(t, keys, 222)

	sx, err := s.SharedSecret(bob.pk, alice.secret)
	require.NoError(t, err)
	oid := types.FieldElementFromUint64(7)

	base, err := s.Nullifier(sx, bob.pk.X, oid)
	require.NoError(t, err)
	again, err := s.Nullifier(sx, bob.pk.X, oid)
	require.NoError(t, err)
	require.True(t, base.Equal(again.FieldElement))

	otherSX := types.SharedSecret{FieldElement: types.FieldElementFromUint64(9)}
	cases := []struct {
		name string
		sx   types.SharedSecret
		x    types.FieldElement
		oid  types.FieldElement
	}{
		{"共享秘密不同", otherSX, bob.pk.X, oid},
		{"对端公钥不同", sx, alice.pk.X, oid},
		{"订单号不同", sx, bob.pk.X, types.FieldElementFromUint64(8)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := s.Nullifier(tc.sx, tc.x, tc.oid)
			require.NoError(t, err)
			require.False(t, base.Equal(n.FieldElement))
		})
	}

	_, err = s.Nullifier(sx, bob.pk.X, types.FieldElement{})
	require.ErrorIs(t, err, types.ErrInvalidWitnessInput)
}
