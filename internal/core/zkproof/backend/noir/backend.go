// Package noir 通过 nargo 与 bb 命令行调用已部署的 Noir 电路
//
// 流程：写入 Prover_<id>.toml → nargo execute 生成见证 → bb prove 生成 UltraHonk 证明。
// 每次尝试使用独立的文件名，结束后删除，失败不留下中间文件。
package noir

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	proverconfig "github.com/ztomic/v1/internal/config/prover"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

// BackendName 后端名称
const BackendName = "noir"

var _ swapintf.ProvingBackend = (*Backend)(nil)

// Backend Noir / Barretenberg 证明后端
type Backend struct {
	logger log.Logger
	opts   *proverconfig.ProverOptions
}

// New 创建后端
func New(logger log.Logger, opts *proverconfig.ProverOptions) *Backend {
	if opts == nil {
		opts = proverconfig.New(nil).GetOptions()
	}
	return &Backend{
		logger: logimpl.NewModuleLogger(logger, "zkproof"),
		opts:   opts,
	}
}

// Name 实现 swapintf.ProvingBackend
func (b *Backend) Name() string {
	return BackendName
}

// initiatorInputs circuit_alice 的 main 参数
type initiatorInputs struct {
	AlicePrivKey  string   `toml:"alice_priv_key"`
	BobPubKeyX    string   `toml:"bob_pub_key_x"`
	BobPubKeyY    string   `toml:"bob_pub_key_y"`
	OrderID       string   `toml:"order_id"`
	MerkleProof   []string `toml:"merkle_proof"`
	IsEven        []bool   `toml:"is_even"`
	HashLockNonce string   `toml:"hash_lock_nonce"`
	NullifierHash string   `toml:"nullifier_hash"`
	Root          string   `toml:"root"`
}

// responderInputs circuit_bob 的 main 参数
type responderInputs struct {
	BobPrivKey    string   `toml:"bob_priv_key"`
	AlicePubKeyX  string   `toml:"alice_pub_key_x"`
	AlicePubKeyY  string   `toml:"alice_pub_key_y"`
	HashLockNonce string   `toml:"hash_lock_nonce"`
	OrderID       string   `toml:"order_id"`
	MerkleProof   []string `toml:"merkle_proof"`
	IsEven        []bool   `toml:"is_even"`
	NullifierHash string   `toml:"nullifier_hash"`
	Root          string   `toml:"root"`
}

// circuitPublicOrder bb 按 main 中 pub 参数的声明顺序输出公开输入，
// 每个位置的值是它在 [nullifier, root, extras...] 中的下标
var circuitPublicOrder = map[types.Role][]int{
	types.RoleInitiator: {2, 0, 1}, // hash_lock_nonce, nullifier_hash, root
	types.RoleResponder: {0, 1},    // nullifier_hash, root
}

// canonicalPublicInputs 把 bb 输出的公开输入重排为 nullifier, root, extras
func canonicalPublicInputs(role types.Role, got []types.FieldElement) ([]types.FieldElement, error) {
	if got == nil {
		return nil, nil
	}
	order, ok := circuitPublicOrder[role]
	if !ok {
		return nil, types.WrapInvalidWitnessInputError("role", role.String())
	}
	if len(got) != len(order) {
		return nil, fmt.Errorf("%s circuit returned %d public inputs, want %d", role, len(got), len(order))
	}
	out := make([]types.FieldElement, len(order))
	for i, pos := range order {
		out[pos] = got[i]
	}
	return out, nil
}

// nargoManifest Nargo.toml 中用到的字段
type nargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
}

// ProverInputs 见证对应的 Prover.toml 内容
func ProverInputs(w *types.Witness) (interface{}, error) {
	path := make([]string, len(w.MerkleProof.PathElements))
	for i, e := range w.MerkleProof.PathElements {
		path[i] = e.Decimal()
	}

	switch w.Role {
	case types.RoleInitiator:
		return initiatorInputs{
			AlicePrivKey:  w.OwnSecret.Decimal(),
			BobPubKeyX:    w.CounterpartyPK.X.Decimal(),
			BobPubKeyY:    w.CounterpartyPK.Y.Decimal(),
			OrderID:       w.OrderID.Decimal(),
			MerkleProof:   path,
			IsEven:        w.IsEven(),
			HashLockNonce: w.Nonce.Decimal(),
			NullifierHash: w.Nullifier.Decimal(),
			Root:          w.Root.Decimal(),
		}, nil
	case types.RoleResponder:
		return responderInputs{
			BobPrivKey:    w.OwnSecret.Decimal(),
			AlicePubKeyX:  w.CounterpartyPK.X.Decimal(),
			AlicePubKeyY:  w.CounterpartyPK.Y.Decimal(),
			HashLockNonce: w.Nonce.Decimal(),
			OrderID:       w.OrderID.Decimal(),
			MerkleProof:   path,
			IsEven:        w.IsEven(),
			NullifierHash: w.Nullifier.Decimal(),
			Root:          w.Root.Decimal(),
		}, nil
	default:
		return nil, types.WrapInvalidWitnessInputError("role", w.Role.String())
	}
}

// Prove 实现 swapintf.ProvingBackend
func (b *Backend) Prove(ctx context.Context, w *types.Witness) (types.Proof, error) {
	circuitDir, err := b.circuitDir(w.Role)
	if err != nil {
		return types.Proof{}, err
	}
	pkgName, err := packageName(circuitDir)
	if err != nil {
		return types.Proof{}, err
	}

	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	attempt := "ztomic_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	proverFile := filepath.Join(circuitDir, attempt+".toml")
	witnessFile := filepath.Join(circuitDir, "target", attempt+".gz")
	outDir := filepath.Join(b.opts.WorkDir, attempt)
	defer func() {
		_ = os.Remove(proverFile)
		_ = os.Remove(witnessFile)
		_ = os.RemoveAll(outDir)
	}()

	inputs, err := ProverInputs(w)
	if err != nil {
		return types.Proof{}, err
	}
	if err := writeTOML(proverFile, inputs); err != nil {
		return types.Proof{}, err
	}

	if _, err := b.run(ctx, b.opts.NargoPath,
		"execute", "--program-dir", circuitDir, "--prover-name", attempt, attempt); err != nil {
		return types.Proof{}, fmt.Errorf("nargo execute: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return types.Proof{}, fmt.Errorf("create output dir: %w", err)
	}
	bytecode := filepath.Join(circuitDir, "target", pkgName+".json")
	if _, err := b.run(ctx, b.opts.BBPath,
		"prove", "-b", bytecode, "-w", witnessFile, "-o", outDir, "--oracle_hash", "keccak"); err != nil {
		return types.Proof{}, fmt.Errorf("bb prove: %w", err)
	}

	proofBytes, err := os.ReadFile(filepath.Join(outDir, "proof"))
	if err != nil {
		return types.Proof{}, fmt.Errorf("read proof: %w", err)
	}
	raw, err := readPublicInputs(filepath.Join(outDir, "public_inputs"))
	if err != nil {
		return types.Proof{}, err
	}
	publicInputs, err := canonicalPublicInputs(w.Role, raw)
	if err != nil {
		return types.Proof{}, err
	}

	b.logger.Debugf("noir 证明完成: role=%s circuit=%s size=%d", w.Role, pkgName, len(proofBytes))
	return types.Proof{
		Backend:      BackendName,
		Role:         w.Role,
		Bytes:        proofBytes,
		PublicInputs: publicInputs,
	}, nil
}

func (b *Backend) circuitDir(role types.Role) (string, error) {
	switch role {
	case types.RoleInitiator:
		return b.opts.InitiatorCircuitDir, nil
	case types.RoleResponder:
		return b.opts.ResponderCircuitDir, nil
	default:
		return "", types.WrapInvalidWitnessInputError("role", role.String())
	}
}

// run 执行外部命令，错误中带上 stderr
func (b *Backend) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Debugf("执行: %s %s", name, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return nil, fmt.Errorf("%w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

func packageName(circuitDir string) (string, error) {
	var manifest nargoManifest
	if _, err := toml.DecodeFile(filepath.Join(circuitDir, "Nargo.toml"), &manifest); err != nil {
		return "", fmt.Errorf("read Nargo.toml: %w", err)
	}
	if manifest.Package.Name == "" {
		return "", errors.New("Nargo.toml: package name is empty")
	}
	return manifest.Package.Name, nil
}

func writeTOML(path string, v interface{}) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encode prover inputs: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write prover inputs: %w", err)
	}
	return nil
}

// readPublicInputs bb 输出的 public_inputs 为连续的 32 字节大端字
//
// 文件不存在时返回 nil，由调用方按见证补齐。
func readPublicInputs(path string) ([]types.FieldElement, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read public inputs: %w", err)
	}
	if len(raw)%32 != 0 {
		return nil, fmt.Errorf("public inputs length %d is not a multiple of 32", len(raw))
	}
	out := make([]types.FieldElement, 0, len(raw)/32)
	for i := 0; i < len(raw); i += 32 {
		var word [32]byte
		copy(word[:], raw[i:i+32])
		fe, err := types.FieldElementFromBytes32(word)
		if err != nil {
			return nil, fmt.Errorf("public input %d: %w", i/32, err)
		}
		out = append(out, fe)
	}
	return out, nil
}
