package noir

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"

	proverconfig "github.com/ztomic/v1/internal/config/prover"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/types"
)

// 假 nargo：把输入文件复制到 $CAPTURE，生成空见证
const fakeNargo = `#!/bin/sh
set -e
dir=""; prover=""; name=""
while [ $# -gt 0 ]; do
  case "$1" in
    execute) ;;
    --program-dir) dir="$2"; shift ;;
    --prover-name) prover="$2"; shift ;;
    *) name="$1" ;;
  esac
  shift
done
cp "$dir/$prover.toml" "$CAPTURE"
mkdir -p "$dir/target"
printf 'w' > "$dir/target/$name.gz"
`

// 假 bb：写出固定证明，公开输入来自 $FAKE_PI
const fakeBB = `#!/bin/sh
set -e
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
  esac
  shift
done
printf 'PROOF' > "$out/proof"
if [ -n "$FAKE_PI" ]; then cp "$FAKE_PI" "$out/public_inputs"; fi
`

const failingBB = `#!/bin/sh
echo "bb: unsatisfied constraint" >&2
exit 3
`

func fe(x uint64) types.FieldElement {
	return types.FieldElementFromUint64(x)
}

func testWitness(role types.Role) *types.Witness {
	return &types.Witness{
		Role:           role,
		OwnSecret:      fe(111),
		SharedSecret:   types.SharedSecret{FieldElement: fe(9)},
		CounterpartyX:  fe(21),
		Nonce:          types.HashlockNonce{FieldElement: fe(42)},
		OrderID:        fe(7),
		CounterpartyPK: types.PublicKey{X: fe(21), Y: fe(22)},
		OwnPK:          types.PublicKey{X: fe(31), Y: fe(32)},
		Nullifier:      types.Nullifier{FieldElement: fe(1000)},
		Root:           fe(2000),
		MerkleProof: types.MerkleProof{
			LeafIndex:    1,
			PathElements: []types.FieldElement{fe(1), fe(2), fe(3)},
			PathIndices:  []uint8{1, 0, 0},
			Root:         fe(2000),
		},
	}
}

func requireSameInputs(t *testing.T, want, got []types.FieldElement) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, want[i].Equal(got[i]), "public input %d: want %s, got %s", i, want[i].Hex(), got[i].Hex())
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o755))
	return p
}

func setup(t *testing.T, bb string) (*Backend, string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	root := t.TempDir()
	circuit := filepath.Join(root, "circuit_alice")
	require.NoError(t, os.MkdirAll(filepath.Join(circuit, "target"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(circuit, "Nargo.toml"),
		[]byte("[package]\nname = \"circuit_alice\"\ntype = \"bin\"\n"), 0o644))

	opts := proverconfig.New(nil).GetOptions()
	opts.Backend = proverconfig.BackendNoir
	opts.WorkDir = filepath.Join(root, "work")
	opts.InitiatorCircuitDir = circuit
	opts.ResponderCircuitDir = circuit
	opts.NargoPath = writeScript(t, root, "nargo", fakeNargo)
	opts.BBPath = writeScript(t, root, "bb", bb)

	capture := filepath.Join(root, "captured.toml")
	t.Setenv("CAPTURE", capture)
	return New(logimpl.NewNop(), opts), circuit, capture
}

// writePublicInputs 按 bb 的格式写出 32 字节大端字
func writePublicInputs(t *testing.T, values ...types.FieldElement) string {
	t.Helper()
	pi := filepath.Join(t.TempDir(), "pi")
	var raw []byte
	for _, v := range values {
		b := v.Bytes32()
		raw = append(raw, b[:]...)
	}
	require.NoError(t, os.WriteFile(pi, raw, 0o644))
	return pi
}

func TestProveWritesProverTOML(t *testing.T) {
	backend, circuit, capture := setup(t, fakeBB)

	w := testWitness(types.RoleInitiator)
	// circuit_alice 的 pub 参数顺序：hash_lock_nonce, nullifier_hash, root
	t.Setenv("FAKE_PI", writePublicInputs(t, fe(42), fe(1000), fe(2000)))

	proof, err := backend.Prove(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, []byte("PROOF"), proof.Bytes)
	require.Equal(t, BackendName, proof.Backend)
	requireSameInputs(t, w.PublicInputs(), proof.PublicInputs)

	var got initiatorInputs
	_, err = toml.DecodeFile(capture, &got)
	require.NoError(t, err)
	require.Equal(t, "111", got.AlicePrivKey)
	require.Equal(t, "21", got.BobPubKeyX)
	require.Equal(t, "22", got.BobPubKeyY)
	require.Equal(t, "7", got.OrderID)
	require.Equal(t, "42", got.HashLockNonce)
	require.Equal(t, "1000", got.NullifierHash)
	require.Equal(t, "2000", got.Root)
	require.Equal(t, []string{"1", "2", "3"}, got.MerkleProof)
	require.Equal(t, []bool{false, true, true}, got.IsEven)

	// 临时文件全部清理
	entries, err := os.ReadDir(circuit)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), "ztomic_")
	}
	targets, err := os.ReadDir(filepath.Join(circuit, "target"))
	require.NoError(t, err)
	require.Empty(t, targets)
}

func TestProveResponderInputs(t *testing.T) {
	backend, _, capture := setup(t, fakeBB)
	t.Setenv("FAKE_PI", "")

	proof, err := backend.Prove(context.Background(), testWitness(types.RoleResponder))
	require.NoError(t, err)
	require.Empty(t, proof.PublicInputs, "缺少 public_inputs 时由生成器补齐")

	var got responderInputs
	_, err = toml.DecodeFile(capture, &got)
	require.NoError(t, err)
	require.Equal(t, "111", got.BobPrivKey)
	require.Equal(t, "21", got.AlicePubKeyX)
}

func TestCanonicalPublicInputs(t *testing.T) {
	cases := []struct {
		name    string
		role    types.Role
		got     []types.FieldElement
		want    []types.FieldElement
		wantErr bool
	}{
		{name: "发起方电路顺序重排", role: types.RoleInitiator, got: []types.FieldElement{fe(42), fe(1000), fe(2000)}, want: []types.FieldElement{fe(1000), fe(2000), fe(42)}},
		{name: "响应方电路顺序不变", role: types.RoleResponder, got: []types.FieldElement{fe(1000), fe(2000)}, want: []types.FieldElement{fe(1000), fe(2000)}},
		{name: "未输出公开输入", role: types.RoleInitiator, got: nil, want: nil},
		{name: "数量不符", role: types.RoleInitiator, got: []types.FieldElement{fe(1000), fe(2000)}, wantErr: true},
		{name: "未知角色", role: types.RoleUnknown, got: []types.FieldElement{fe(1)}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := canonicalPublicInputs(tc.role, tc.got)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, out)
		})
	}
}

func TestProveResponderPublicInputs(t *testing.T) {
	backend, _, _ := setup(t, fakeBB)
	w := testWitness(types.RoleResponder)
	t.Setenv("FAKE_PI", writePublicInputs(t, fe(1000), fe(2000)))

	proof, err := backend.Prove(context.Background(), w)
	require.NoError(t, err)
	requireSameInputs(t, w.PublicInputs(), proof.PublicInputs)
}

func TestProveSurfacesBackendError(t *testing.T) {
	backend, _, _ := setup(t, failingBB)

	_, err := backend.Prove(context.Background(), testWitness(types.RoleInitiator))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsatisfied constraint")
}

func TestProveMissingManifest(t *testing.T) {
	backend, circuit, _ := setup(t, fakeBB)
	require.NoError(t, os.Remove(filepath.Join(circuit, "Nargo.toml")))

	_, err := backend.Prove(context.Background(), testWitness(types.RoleInitiator))
	require.Error(t, err)
}

func TestReadPublicInputsRejectsPartialWord(t *testing.T) {
	p := filepath.Join(t.TempDir(), "pi")
	require.NoError(t, os.WriteFile(p, make([]byte, 33), 0o644))
	_, err := readPublicInputs(p)
	require.Error(t, err)
}
