// Package merkle provides a fixed-depth, append-only Poseidon Merkle accumulator.
package merkle

import (
	"fmt"
	"sync"

	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/types"
)

// 确保Tree实现了cryptointf.MerkleTree接口
var _ cryptointf.MerkleTree = (*Tree)(nil)

// Tree 增量 Merkle 树
//
// 叶子下标一经分配永不改变；未填充位置使用各层的零值：
// zeros[0] = 0，zeros[i+1] = H(zeros[i], zeros[i])。
// layers[i] 只保存第 i 层已填充的前缀，兄弟节点缺失时取 zeros[i]。
type Tree struct {
	mu     sync.RWMutex
	depth  int
	hasher cryptointf.Hasher
	zeros  []types.FieldElement   // 长度 depth+1
	layers [][]types.FieldElement // layers[0] 为叶子，layers[depth] 至多一个元素
	index  map[string]uint64      // 叶子 -> 首次出现的下标
	root   types.FieldElement
}

// New 创建空树
func New(depth int, hasher cryptointf.Hasher) (*Tree, error) {
	if depth < 1 || depth > 32 {
		return nil, fmt.Errorf("merkle depth %d out of range [1, 32]", depth)
	}
	if hasher == nil {
		return nil, fmt.Errorf("merkle hasher is nil")
	}

	zeros, err := ZeroValues(depth, hasher)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		depth:  depth,
		hasher: hasher,
		zeros:  zeros,
		layers: make([][]types.FieldElement, depth+1),
		index:  make(map[string]uint64),
		root:   zeros[depth],
	}
	return t, nil
}

// NewFromLeaves 创建树并批量插入叶子
func NewFromLeaves(depth int, hasher cryptointf.Hasher, leaves []types.FieldElement) (*Tree, error) {
	t, err := New(depth, hasher)
	if err != nil {
		return nil, err
	}
	if err := t.Init(leaves); err != nil {
		return nil, err
	}
	return t, nil
}

// ZeroValues 计算 depth+1 个零值
func ZeroValues(depth int, hasher cryptointf.Hasher) ([]types.FieldElement, error) {
	zeros := make([]types.FieldElement, depth+1)
	zeros[0] = types.FieldElementFromUint64(0)
	for i := 0; i < depth; i++ {
		z, err := hasher.Hash(zeros[i], zeros[i])
		if err != nil {
			return nil, fmt.Errorf("zero value level %d: %w", i+1, err)
		}
		zeros[i+1] = z
	}
	return zeros, nil
}

// Capacity 最大叶子数 2^depth
func (t *Tree) Capacity() uint64 {
	return uint64(1) << uint(t.depth)
}

// Depth 实现 cryptointf.MerkleTree
func (t *Tree) Depth() int {
	return t.depth
}

// Init 丢弃现有内容并按顺序重建
//
// 逐层批量计算，结果与逐个 Insert 相同。
func (t *Tree) Init(leaves []types.FieldElement) error {
	if uint64(len(leaves)) > t.Capacity() {
		return types.WrapTreeFullError(t.depth, uint64(len(leaves))-1)
	}
	for i, leaf := range leaves {
		if !leaf.IsSet() {
			return types.WrapInvalidWitnessInputError("leaf", fmt.Sprintf("leaf %d is unset", i))
		}
	}

	layers := make([][]types.FieldElement, t.depth+1)
	layers[0] = append([]types.FieldElement(nil), leaves...)
	for level := 0; level < t.depth; level++ {
		cur := layers[level]
		next := make([]types.FieldElement, (len(cur)+1)/2)
		for i := range next {
			left := cur[2*i]
			right := t.zeros[level]
			if 2*i+1 < len(cur) {
				right = cur[2*i+1]
			}
			parent, err := t.hasher.Hash(left, right)
			if err != nil {
				return fmt.Errorf("hash level %d node %d: %w", level+1, i, err)
			}
			next[i] = parent
		}
		layers[level+1] = next
	}

	index := make(map[string]uint64, len(leaves))
	for i, leaf := range leaves {
		key := leaf.Hex()
		if _, exists := index[key]; !exists {
			index[key] = uint64(i)
		}
	}

	root := t.zeros[t.depth]
	if len(layers[t.depth]) > 0 {
		root = layers[t.depth][0]
	}

	t.mu.Lock()
	t.layers = layers
	t.index = index
	t.root = root
	t.mu.Unlock()
	return nil
}

// Insert 实现 cryptointf.MerkleTree
func (t *Tree) Insert(leaf types.FieldElement) (uint64, error) {
	if !leaf.IsSet() {
		return 0, types.WrapInvalidWitnessInputError("leaf", "unset")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := uint64(len(t.layers[0]))
	if idx >= t.Capacity() {
		return 0, types.WrapTreeFullError(t.depth, idx)
	}

	// 先算出整条路径，全部成功后再写入，失败时树保持不变
	path := make([]types.FieldElement, t.depth+1)
	path[0] = leaf
	node := leaf
	pos := idx
	for level := 0; level < t.depth; level++ {
		var left, right types.FieldElement
		if pos%2 == 0 {
			left, right = node, t.zeros[level]
		} else {
			left, right = t.layers[level][pos-1], node
		}
		parent, err := t.hasher.Hash(left, right)
		if err != nil {
			return 0, fmt.Errorf("hash level %d: %w", level+1, err)
		}
		node = parent
		pos /= 2
		path[level+1] = node
	}

	pos = idx
	for level := 0; level <= t.depth; level++ {
		if pos < uint64(len(t.layers[level])) {
			t.layers[level][pos] = path[level]
		} else {
			t.layers[level] = append(t.layers[level], path[level])
		}
		pos /= 2
	}

	if _, exists := t.index[leaf.Hex()]; !exists {
		t.index[leaf.Hex()] = idx
	}
	t.root = node
	return idx, nil
}

// IndexOf 实现 cryptointf.MerkleTree
func (t *Tree) IndexOf(leaf types.FieldElement) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.index[leaf.Hex()]
	if !ok {
		return 0, fmt.Errorf("%w: leaf %s", types.ErrNotFound, leaf.Hex())
	}
	return idx, nil
}

// Proof 实现 cryptointf.MerkleTree
func (t *Tree) Proof(index uint64) (types.MerkleProof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index >= uint64(len(t.layers[0])) {
		return types.MerkleProof{}, fmt.Errorf("%w: leaf index %d (size %d)", types.ErrNotFound, index, len(t.layers[0]))
	}

	proof := types.MerkleProof{
		LeafIndex:    index,
		PathElements: make([]types.FieldElement, t.depth),
		PathIndices:  make([]uint8, t.depth),
		Root:         t.root,
	}
	pos := index
	for level := 0; level < t.depth; level++ {
		sibling := pos ^ 1
		if sibling < uint64(len(t.layers[level])) {
			proof.PathElements[level] = t.layers[level][sibling]
		} else {
			proof.PathElements[level] = t.zeros[level]
		}
		proof.PathIndices[level] = uint8(pos & 1)
		pos /= 2
	}
	return proof, nil
}

// Root 实现 cryptointf.MerkleTree
func (t *Tree) Root() types.FieldElement {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Verify 实现 cryptointf.MerkleTree
func (t *Tree) Verify(leaf types.FieldElement, proof types.MerkleProof) bool {
	return VerifyProof(t.hasher, leaf, proof)
}

// Len 实现 cryptointf.MerkleTree
func (t *Tree) Len() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.layers[0]))
}

// Leaves 实现 cryptointf.MerkleTree
func (t *Tree) Leaves() []types.FieldElement {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]types.FieldElement(nil), t.layers[0]...)
}

// VerifyProof 用给定哈希从叶子重算根并与 proof.Root 比较
func VerifyProof(hasher cryptointf.Hasher, leaf types.FieldElement, proof types.MerkleProof) bool {
	if !leaf.IsSet() || len(proof.PathElements) != len(proof.PathIndices) || len(proof.PathElements) == 0 {
		return false
	}
	node := leaf
	for i, sibling := range proof.PathElements {
		var (
			parent types.FieldElement
			err    error
		)
		switch proof.PathIndices[i] {
		case 0:
			parent, err = hasher.Hash(node, sibling)
		case 1:
			parent, err = hasher.Hash(sibling, node)
		default:
			return false
		}
		if err != nil {
			return false
		}
		node = parent
	}
	return node.Equal(proof.Root)
}
