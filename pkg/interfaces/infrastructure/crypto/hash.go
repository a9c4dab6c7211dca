// Package crypto 定义交换核心的密码学接口
//
// 所有运算都在 BN254 标量域上进行，输入输出统一使用 types.FieldElement。
package crypto

import "github.com/ztomic/v1/pkg/types"

// Hasher 定长输入的域哈希
//
// 同一进程内的承诺、nullifier 与 Merkle 节点必须使用同一个 Hasher，
// 并且必须与链上 verifier 的电路哈希一致。
type Hasher interface {
	// Name 哈希名称（poseidon2 | poseidon）
	Name() string

	// Hash 对 1..16 个域元素求哈希
	Hash(inputs ...types.FieldElement) (types.FieldElement, error)
}

// FieldCodec 把外部取值规范化为域元素
type FieldCodec interface {
	// SecretToField 按配置的编码把用户秘密转成私钥标量
	SecretToField(secret string) (types.FieldElement, error)

	// ParseOrderID 解析十进制订单号并按统一策略归约
	ParseOrderID(orderID string) (types.FieldElement, error)

	// OrderIDHash 链上使用的 keccak256(utf8(orderID))
	OrderIDHash(orderID string) [32]byte
}
