package crypto

import "github.com/ztomic/v1/pkg/types"

// MerkleTree 定深、仅追加的增量 Merkle 累加器
type MerkleTree interface {
	// Depth 树深度
	Depth() int

	// Insert 追加叶子，返回其下标
	Insert(leaf types.FieldElement) (uint64, error)

	// IndexOf 叶子首次出现的下标
	IndexOf(leaf types.FieldElement) (uint64, error)

	// Proof 指定下标的认证路径
	Proof(index uint64) (types.MerkleProof, error)

	// Root 当前根，O(1)
	Root() types.FieldElement

	// Verify 校验叶子与路径能还原出路径中的根
	Verify(leaf types.FieldElement, proof types.MerkleProof) bool

	// Len 已插入叶子数
	Len() uint64

	// Leaves 已插入叶子的副本
	Leaves() []types.FieldElement
}
