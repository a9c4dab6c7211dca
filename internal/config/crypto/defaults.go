package crypto

// 密码学参数默认值
const (
	// HashPoseidon2 gnark-crypto BN254 Poseidon2（Merkle-Damgård 模式）
	HashPoseidon2 = "poseidon2"
	// HashPoseidon circomlib Poseidon
	HashPoseidon = "poseidon"

	// SecretEncodingDecimal 秘密按十进制（或 0x 十六进制）整数解析
	SecretEncodingDecimal = "decimal"
	// SecretEncodingUTF8Bytes 秘密按 UTF-8 字节大端解释
	SecretEncodingUTF8Bytes = "utf8-bytes"

	// OrderIDPolicyReduce 订单号对 r 取模
	OrderIDPolicyReduce = "reduce"
	// OrderIDPolicyReject 订单号 >= r 时报错
	OrderIDPolicyReject = "reject"

	defaultHash           = HashPoseidon2
	defaultSecretEncoding = SecretEncodingDecimal
	defaultOrderIDPolicy  = OrderIDPolicyReduce

	// defaultTreeDepth 与链上合约的树深度一致
	defaultTreeDepth = 20

	// MaxTreeDepth 叶子下标用 uint32 记录
	MaxTreeDepth = 32
)
