package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// FieldBytes 域元素的定长大端编码长度
const FieldBytes = 32

// FieldModulus 返回 BN254 标量域模数 r 的副本
//
// r = 21888242871839275222246405745257275088548364400416034343698204186575808495617
func FieldModulus() *big.Int {
	return fr.Modulus()
}

// FieldElement BN254 标量域中的元素，取值范围 [0, r)
//
// 零值表示"未设置"，与数值 0 区分（见 IsSet）。
// 实例不可变，对外暴露的 *big.Int 均为副本。
type FieldElement struct {
	v *big.Int
}

// NewFieldElement 从规范值构造域元素，v >= r 或 v < 0 时返回 ErrOutOfRange
func NewFieldElement(v *big.Int) (FieldElement, error) {
	if v == nil {
		return FieldElement{}, fmt.Errorf("%w: nil value", ErrInvalidWitnessInput)
	}
	if v.Sign() < 0 || v.Cmp(FieldModulus()) >= 0 {
		return FieldElement{}, fmt.Errorf("%w: %s is not a canonical field element", ErrOutOfRange, v.String())
	}
	return FieldElement{v: new(big.Int).Set(v)}, nil
}

// MustFieldElement 用于常量与测试，非规范值直接 panic
func MustFieldElement(v *big.Int) FieldElement {
	fe, err := NewFieldElement(v)
	if err != nil {
		panic(err)
	}
	return fe
}

// ReduceFieldElement 对任意非负整数取模后构造域元素
func ReduceFieldElement(v *big.Int) FieldElement {
	r := new(big.Int).Mod(v, FieldModulus())
	return FieldElement{v: r}
}

// FieldElementFromUint64 小整数快捷构造
func FieldElementFromUint64(x uint64) FieldElement {
	return FieldElement{v: new(big.Int).SetUint64(x)}
}

// FieldElementFromHex 解析 0x 前缀或裸十六进制字符串，要求为规范值
func FieldElementFromHex(s string) (FieldElement, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return FieldElement{}, fmt.Errorf("%w: empty hex string", ErrInvalidWitnessInput)
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return FieldElement{}, fmt.Errorf("%w: invalid hex %q", ErrInvalidWitnessInput, s)
	}
	return NewFieldElement(v)
}

// FieldElementFromBytes32 从 32 字节大端编码构造，要求为规范值
func FieldElementFromBytes32(b [32]byte) (FieldElement, error) {
	return NewFieldElement(new(big.Int).SetBytes(b[:]))
}

// IsSet 是否已赋值
func (f FieldElement) IsSet() bool {
	return f.v != nil
}

// IsZero 未设置或数值为 0
func (f FieldElement) IsZero() bool {
	return f.v == nil || f.v.Sign() == 0
}

// BigInt 返回数值副本，未设置时返回 0
func (f FieldElement) BigInt() *big.Int {
	if f.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(f.v)
}

// Equal 数值相等比较，两个未设置值视为相等
func (f FieldElement) Equal(o FieldElement) bool {
	if f.v == nil || o.v == nil {
		return f.v == nil && o.v == nil
	}
	return f.v.Cmp(o.v) == 0
}

// Bytes32 32 字节大端编码
func (f FieldElement) Bytes32() [32]byte {
	var out [32]byte
	if f.v != nil {
		f.v.FillBytes(out[:])
	}
	return out
}

// Hex 0x 前缀、左补零到 64 位的十六进制表示
func (f FieldElement) Hex() string {
	b := f.Bytes32()
	return "0x" + hex.EncodeToString(b[:])
}

// Decimal 十进制表示
func (f FieldElement) Decimal() string {
	return f.BigInt().String()
}

// String 实现 fmt.Stringer
func (f FieldElement) String() string {
	return f.Hex()
}

// MarshalJSON 以十六进制字符串编码
func (f FieldElement) MarshalJSON() ([]byte, error) {
	if f.v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(f.Hex())
}

// UnmarshalJSON 接受十六进制（0x）或十进制字符串
func (f *FieldElement) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = FieldElement{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	var (
		fe  FieldElement
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		fe, err = FieldElementFromHex(s)
	} else {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("%w: invalid decimal %q", ErrInvalidWitnessInput, s)
		}
		fe, err = NewFieldElement(v)
	}
	if err != nil {
		return err
	}
	*f = fe
	return nil
}

// ============================================================================
//                              领域专用域元素
// ============================================================================

// Hashlock 发起方公开的哈希锁 H(pk_counterparty.x, nonce)
type Hashlock struct{ FieldElement }

// HashlockNonce 发起方持有的哈希锁随机数，发起方提现时公开
type HashlockNonce struct{ FieldElement }

// Commitment 存入 Merkle 累加器的存款承诺
type Commitment struct{ FieldElement }

// Nullifier 提现时公开的一次性标识
type Nullifier struct{ FieldElement }

// SharedSecret ECDH 共享点的 x 坐标
type SharedSecret struct{ FieldElement }

// PublicKey Baby Jubjub 公钥
type PublicKey struct {
	X FieldElement `json:"x"`
	Y FieldElement `json:"y"`
}

// IsSet 两个坐标均已赋值
func (pk PublicKey) IsSet() bool {
	return pk.X.IsSet() && pk.Y.IsSet()
}

// Equal 坐标相等
func (pk PublicKey) Equal(o PublicKey) bool {
	return pk.X.Equal(o.X) && pk.Y.Equal(o.Y)
}

// String 实现 fmt.Stringer
func (pk PublicKey) String() string {
	return fmt.Sprintf("(%s, %s)", pk.X.Hex(), pk.Y.Hex())
}
