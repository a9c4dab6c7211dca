// Package gnark 提供基于 gnark Groth16 的参考证明后端
//
// 参考电路用于本地端到端测试与自建部署，哈希必须配置为 poseidon2。
package gnark

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"
	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	cryptoconfig "github.com/ztomic/v1/internal/config/crypto"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

// BackendName 后端名称
const BackendName = "groth16"

var _ swapintf.ProvingBackend = (*Backend)(nil)

// Backend Groth16 证明后端
type Backend struct {
	logger  log.Logger
	manager *CircuitManager
}

// New 创建后端，hashName 必须为 poseidon2
func New(logger log.Logger, hashName string) (*Backend, error) {
	if hashName != cryptoconfig.HashPoseidon2 {
		return nil, fmt.Errorf("%w: configured %q", ErrUnsupportedHash, hashName)
	}
	logger = logimpl.NewModuleLogger(logger, "zkproof")
	return &Backend{
		logger:  logger,
		manager: NewCircuitManager(logger),
	}, nil
}

// Name 实现 swapintf.ProvingBackend
func (b *Backend) Name() string {
	return BackendName
}

// Manager 电路管理器
func (b *Backend) Manager() *CircuitManager {
	return b.manager
}

// Prove 实现 swapintf.ProvingBackend
//
// groth16.Prove 本身不可取消，只在开始前检查 ctx。
func (b *Backend) Prove(ctx context.Context, w *types.Witness) (types.Proof, error) {
	if err := ctx.Err(); err != nil {
		return types.Proof{}, err
	}

	// gnark 使用 zerolog 输出大量编译与求解日志，执行期间丢弃
	oldGnarkLogger := gnarklogger.Logger()
	gnarklogger.Set(zerolog.New(io.Discard).Level(zerolog.Disabled))
	defer gnarklogger.Set(oldGnarkLogger)

	depth := w.MerkleProof.Depth()
	compiled, provingKey, verifyingKey, err := b.manager.GetTrustedSetup(w.Role, depth)
	if err != nil {
		return types.Proof{}, err
	}

	assignment, err := Assign(w)
	if err != nil {
		return types.Proof{}, err
	}
	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return types.Proof{}, fmt.Errorf("build witness: %w", err)
	}

	proof, err := groth16.Prove(compiled, provingKey, fullWitness)
	if err != nil {
		return types.Proof{}, fmt.Errorf("groth16 prove: %w", err)
	}

	publicWitness, err := fullWitness.Public()
	if err != nil {
		return types.Proof{}, fmt.Errorf("public witness: %w", err)
	}
	if err := groth16.Verify(proof, verifyingKey, publicWitness); err != nil {
		return types.Proof{}, fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return types.Proof{}, fmt.Errorf("serialize proof: %w", err)
	}

	b.logger.Debugf("groth16 证明完成: role=%s depth=%d size=%d", w.Role, depth, buf.Len())
	return types.Proof{
		Backend:      BackendName,
		Role:         w.Role,
		Bytes:        buf.Bytes(),
		PublicInputs: w.PublicInputs(),
	}, nil
}

// Verify 用缓存的 VerifyingKey 校验序列化证明
func (b *Backend) Verify(role types.Role, depth int, proofBytes []byte, publicInputs []types.FieldElement) error {
	_, _, verifyingKey, err := b.manager.GetTrustedSetup(role, depth)
	if err != nil {
		return err
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("decode proof: %w", err)
	}

	publicWitness, err := publicAssignment(role, depth, publicInputs)
	if err != nil {
		return err
	}
	if err := groth16.Verify(proof, verifyingKey, publicWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
	}
	return nil
}

// Assign 把见证映射到电路赋值
func Assign(w *types.Witness) (frontend.Circuit, error) {
	depth := w.MerkleProof.Depth()
	if depth == 0 || len(w.MerkleProof.PathIndices) != depth {
		return nil, types.WrapInvalidWitnessInputError("merkle_proof", "empty or inconsistent path")
	}
	path := make([]frontend.Variable, depth)
	dirs := make([]frontend.Variable, depth)
	for i := 0; i < depth; i++ {
		path[i] = w.MerkleProof.PathElements[i].BigInt()
		dirs[i] = int(w.MerkleProof.PathIndices[i])
	}

	switch w.Role {
	case types.RoleInitiator:
		return &InitiatorCircuit{
			Nullifier:     w.Nullifier.BigInt(),
			Root:          w.Root.BigInt(),
			Nonce:         w.Nonce.BigInt(),
			SharedX:       w.SharedSecret.BigInt(),
			CounterpartyX: w.CounterpartyX.BigInt(),
			OrderID:       w.OrderID.BigInt(),
			Path:          path,
			Directions:    dirs,
		}, nil
	case types.RoleResponder:
		return &ResponderCircuit{
			Nullifier:     w.Nullifier.BigInt(),
			Root:          w.Root.BigInt(),
			SharedX:       w.SharedSecret.BigInt(),
			CounterpartyX: w.CounterpartyX.BigInt(),
			OwnX:          w.OwnPK.X.BigInt(),
			Nonce:         w.Nonce.BigInt(),
			OrderID:       w.OrderID.BigInt(),
			Path:          path,
			Directions:    dirs,
		}, nil
	default:
		return nil, types.WrapInvalidWitnessInputError("role", w.Role.String())
	}
}

// publicAssignment 只含公开输入的赋值
func publicAssignment(role types.Role, depth int, inputs []types.FieldElement) (witness.Witness, error) {
	values := make([]*big.Int, len(inputs))
	for i, in := range inputs {
		values[i] = in.BigInt()
	}

	var assignment frontend.Circuit
	switch {
	case role == types.RoleInitiator && len(values) == 3:
		c, err := NewInitiatorCircuit(depth)
		if err != nil {
			return nil, err
		}
		c.Nullifier, c.Root, c.Nonce = values[0], values[1], values[2]
		assignment = c
	case role == types.RoleResponder && len(values) == 2:
		c, err := NewResponderCircuit(depth)
		if err != nil {
			return nil, err
		}
		c.Nullifier, c.Root = values[0], values[1]
		assignment = c
	default:
		return nil, fmt.Errorf("unexpected public inputs for %s: %d", role, len(values))
	}

	return frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
}
