// Package hash 提供 BN254 标量域上的 Poseidon 系列哈希
//
// 两种实现：
//   - poseidon2：gnark-crypto 的 Poseidon2 Merkle-Damgård 构造（IV=0，逐元素压缩），
//     与 gnark std/hash 在电路中的构造逐位一致
//   - poseidon：iden3 circomlib Poseidon（单次置换，宽度 = 输入数 + 1）
package hash

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	"github.com/iden3/go-iden3-crypto/poseidon"

	cryptoconfig "github.com/ztomic/v1/internal/config/crypto"
	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/types"
)

// maxInputs circomlib Poseidon 支持的最大输入数
const maxInputs = 16

// 确保实现了cryptointf.Hasher接口
var (
	_ cryptointf.Hasher = (*Poseidon2Hasher)(nil)
	_ cryptointf.Hasher = (*PoseidonHasher)(nil)
)

// New 按名称创建哈希器
func New(name string) (cryptointf.Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case cryptoconfig.HashPoseidon2, "":
		return NewPoseidon2Hasher(), nil
	case cryptoconfig.HashPoseidon:
		return NewPoseidonHasher(), nil
	default:
		return nil, fmt.Errorf("unsupported hash %q", name)
	}
}

func checkInputs(inputs []types.FieldElement) error {
	if len(inputs) == 0 || len(inputs) > maxInputs {
		return types.WrapInvalidWitnessInputError("hash_inputs", fmt.Sprintf("expected 1..%d inputs, got %d", maxInputs, len(inputs)))
	}
	for i, in := range inputs {
		if !in.IsSet() {
			return types.WrapInvalidWitnessInputError("hash_inputs", fmt.Sprintf("input %d is unset", i))
		}
	}
	return nil
}

// ============================================================================
//                               Poseidon2
// ============================================================================

// Poseidon2Hasher gnark-crypto BN254 Poseidon2
type Poseidon2Hasher struct{}

// NewPoseidon2Hasher 创建 Poseidon2 哈希器
func NewPoseidon2Hasher() *Poseidon2Hasher {
	return &Poseidon2Hasher{}
}

// Name 实现 cryptointf.Hasher
func (h *Poseidon2Hasher) Name() string {
	return cryptoconfig.HashPoseidon2
}

// Hash 实现 cryptointf.Hasher
func (h *Poseidon2Hasher) Hash(inputs ...types.FieldElement) (types.FieldElement, error) {
	if err := checkInputs(inputs); err != nil {
		return types.FieldElement{}, err
	}

	// 每次调用都需要新的hasher，hasher是有状态的
	hasher := poseidon2.NewMerkleDamgardHasher()
	for _, in := range inputs {
		b := in.Bytes32()
		if _, err := hasher.Write(b[:]); err != nil {
			return types.FieldElement{}, fmt.Errorf("poseidon2 write: %w", err)
		}
	}
	return types.NewFieldElement(new(big.Int).SetBytes(hasher.Sum(nil)))
}

// ============================================================================
//                               Poseidon (circomlib)
// ============================================================================

// PoseidonHasher iden3 circomlib Poseidon
type PoseidonHasher struct{}

// NewPoseidonHasher 创建 circomlib Poseidon 哈希器
func NewPoseidonHasher() *PoseidonHasher {
	return &PoseidonHasher{}
}

// Name 实现 cryptointf.Hasher
func (h *PoseidonHasher) Name() string {
	return cryptoconfig.HashPoseidon
}

// Hash 实现 cryptointf.Hasher
func (h *PoseidonHasher) Hash(inputs ...types.FieldElement) (types.FieldElement, error) {
	if err := checkInputs(inputs); err != nil {
		return types.FieldElement{}, err
	}

	bigs := make([]*big.Int, len(inputs))
	for i, in := range inputs {
		bigs[i] = in.BigInt()
	}
	out, err := poseidon.Hash(bigs)
	if err != nil {
		return types.FieldElement{}, fmt.Errorf("poseidon: %w", err)
	}
	return types.NewFieldElement(out)
}
