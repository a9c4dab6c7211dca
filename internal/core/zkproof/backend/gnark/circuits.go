package gnark

import (
	"fmt"

	nativeposeidon2 "github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	"github.com/consensys/gnark/std/permutation/poseidon2"
)

// ============================================================================
//                              提款参考电路
// ============================================================================
//
// 电路只约束哈希关系与 Merkle 成员关系，ECDH 在电路外完成，
// sx 作为自由的私有输入：电路不约束 sx 来自任何私钥或对方公钥，
// 证明的只是"知道某个 sx 使叶子在树中"。它只用于本地端到端测试与
// verifier 导出演示，不能替代链上部署的电路。
//
// 哈希为 BN254 Poseidon2 Merkle-Damgård，与 crypto/hash 的 poseidon2
// 实现逐位一致。两个角色证明的是同一个叶子 C_A = H(H(pkB.X, nonce), sx)。
//
// Path / Directions 的长度在编译期固定，必须通过 NewInitiatorCircuit /
// NewResponderCircuit 创建，直接使用零值结构体会跳过路径约束。
//
// ============================================================================

// MaxDepth 电路支持的最大路径深度
const MaxDepth = 32

// InitiatorCircuit 发起方提款电路
//
// 证明 C_A = H(H(counterpartyX, nonce), sx) 在根为 Root 的树中，
// 且 Nullifier = H(sx, counterpartyX, orderID)。nonce 公开，供响应方提款。
type InitiatorCircuit struct {
	// 公开输入，顺序与链上 verifier 一致
	Nullifier frontend.Variable `gnark:",public"`
	Root      frontend.Variable `gnark:",public"`
	Nonce     frontend.Variable `gnark:",public"`

	// 私有输入
	SharedX       frontend.Variable
	CounterpartyX frontend.Variable
	OrderID       frontend.Variable
	Path          []frontend.Variable
	Directions    []frontend.Variable
}

// Define 定义电路约束
func (c *InitiatorCircuit) Define(api frontend.API) error {
	hashlock, err := hashVars(api, c.CounterpartyX, c.Nonce)
	if err != nil {
		return err
	}
	leaf, err := hashVars(api, hashlock, c.SharedX)
	if err != nil {
		return err
	}
	if err := assertMembership(api, leaf, c.Path, c.Directions, c.Root); err != nil {
		return err
	}

	nullifier, err := hashVars(api, c.SharedX, c.CounterpartyX, c.OrderID)
	if err != nil {
		return err
	}
	api.AssertIsEqual(nullifier, c.Nullifier)
	return nil
}

// ResponderCircuit 响应方提款电路
//
// 证明 C_A = H(H(ownX, nonce), sx) 在根为 Root 的树中，
// 且 Nullifier = H(sx, counterpartyX, orderID)。
type ResponderCircuit struct {
	Nullifier frontend.Variable `gnark:",public"`
	Root      frontend.Variable `gnark:",public"`

	SharedX       frontend.Variable
	CounterpartyX frontend.Variable
	OwnX          frontend.Variable
	Nonce         frontend.Variable
	OrderID       frontend.Variable
	Path          []frontend.Variable
	Directions    []frontend.Variable
}

// Define 定义电路约束
func (c *ResponderCircuit) Define(api frontend.API) error {
	hashlock, err := hashVars(api, c.OwnX, c.Nonce)
	if err != nil {
		return err
	}
	leaf, err := hashVars(api, hashlock, c.SharedX)
	if err != nil {
		return err
	}
	if err := assertMembership(api, leaf, c.Path, c.Directions, c.Root); err != nil {
		return err
	}

	nullifier, err := hashVars(api, c.SharedX, c.CounterpartyX, c.OrderID)
	if err != nil {
		return err
	}
	api.AssertIsEqual(nullifier, c.Nullifier)
	return nil
}

// NewInitiatorCircuit 按深度创建发起方电路
func NewInitiatorCircuit(depth int) (*InitiatorCircuit, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	return &InitiatorCircuit{
		Path:       make([]frontend.Variable, depth),
		Directions: make([]frontend.Variable, depth),
	}, nil
}

// NewResponderCircuit 按深度创建响应方电路
func NewResponderCircuit(depth int) (*ResponderCircuit, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	return &ResponderCircuit{
		Path:       make([]frontend.Variable, depth),
		Directions: make([]frontend.Variable, depth),
	}, nil
}

func checkDepth(depth int) error {
	if depth < 1 || depth > MaxDepth {
		return fmt.Errorf("circuit depth %d out of range [1, %d]", depth, MaxDepth)
	}
	return nil
}

// hashVars 每次调用使用新的 hasher，hasher 有状态
//
// std/hash/poseidon2 的默认参数只覆盖 BLS12-377，BN254 上需显式取
// gnark-crypto 的默认参数（宽度 2，6 轮全轮，50 轮部分轮），IV 为 0，
// 与链下 poseidon2.NewMerkleDamgardHasher 相同。
func hashVars(api frontend.API, inputs ...frontend.Variable) (frontend.Variable, error) {
	params := nativeposeidon2.GetDefaultParameters()
	perm, err := poseidon2.NewPoseidon2FromParameters(api, params.Width, params.NbFullRounds, params.NbPartialRounds)
	if err != nil {
		return nil, fmt.Errorf("create poseidon2 permutation: %w", err)
	}
	h := hash.NewMerkleDamgardHasher(api, perm, 0)
	h.Write(inputs...)
	return h.Sum(), nil
}

// assertMembership 从叶子沿路径向上，direction = 1 表示当前节点在右
func assertMembership(api frontend.API, leaf frontend.Variable, path, directions []frontend.Variable, root frontend.Variable) error {
	if len(path) == 0 || len(path) != len(directions) {
		return fmt.Errorf("merkle path length %d / directions %d", len(path), len(directions))
	}
	current := leaf
	for i := range path {
		api.AssertIsBoolean(directions[i])
		left := api.Select(directions[i], path[i], current)
		right := api.Select(directions[i], current, path[i])
		parent, err := hashVars(api, left, right)
		if err != nil {
			return err
		}
		current = parent
	}
	api.AssertIsEqual(current, root)
	return nil
}
