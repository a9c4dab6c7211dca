// Package field 把用户秘密、订单号、随机数等外部取值规范化为 BN254 域元素
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	cryptoconfig "github.com/ztomic/v1/internal/config/crypto"
	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/types"
)

var _ cryptointf.FieldCodec = (*Codec)(nil)

// Codec 域编码器
//
// 两个证明角色必须共用同一个 Codec，订单号策略才能保持一致。
type Codec struct {
	secretEncoding string
	orderIDPolicy  string
}

// NewCodec 创建域编码器
func NewCodec(opts *cryptoconfig.CryptoOptions) (*Codec, error) {
	if opts == nil {
		opts = cryptoconfig.New(nil).GetOptions()
	}
	c := &Codec{
		secretEncoding: opts.SecretEncoding,
		orderIDPolicy:  opts.OrderIDPolicy,
	}
	switch c.secretEncoding {
	case cryptoconfig.SecretEncodingDecimal, cryptoconfig.SecretEncodingUTF8Bytes:
	default:
		return nil, fmt.Errorf("unsupported secret encoding %q", c.secretEncoding)
	}
	switch c.orderIDPolicy {
	case cryptoconfig.OrderIDPolicyReduce, cryptoconfig.OrderIDPolicyReject:
	default:
		return nil, fmt.Errorf("unsupported order id policy %q", c.orderIDPolicy)
	}
	return c, nil
}

// OrderIDPolicy 当前订单号策略
func (c *Codec) OrderIDPolicy() string {
	return c.orderIDPolicy
}

// SecretToField 实现 cryptointf.FieldCodec
func (c *Codec) SecretToField(secret string) (types.FieldElement, error) {
	if secret == "" {
		return types.FieldElement{}, types.WrapInvalidWitnessInputError("secret", "empty")
	}

	var v *big.Int
	switch c.secretEncoding {
	case cryptoconfig.SecretEncodingUTF8Bytes:
		v = new(big.Int).SetBytes([]byte(secret))
	default:
		parsed, err := parseInteger(strings.TrimSpace(secret))
		if err != nil {
			return types.FieldElement{}, types.WrapInvalidWitnessInputError("secret", err.Error())
		}
		v = parsed
	}

	fe := types.ReduceFieldElement(v)
	if fe.IsZero() {
		return types.FieldElement{}, types.WrapInvalidWitnessInputError("secret", "reduces to zero")
	}
	return fe, nil
}

// ParseOrderID 实现 cryptointf.FieldCodec
func (c *Codec) ParseOrderID(orderID string) (types.FieldElement, error) {
	s := strings.TrimSpace(orderID)
	if s == "" {
		return types.FieldElement{}, types.WrapInvalidWitnessInputError("order_id", "empty")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return types.FieldElement{}, types.WrapInvalidWitnessInputError("order_id", fmt.Sprintf("not a non-negative decimal: %q", orderID))
	}
	return c.ReduceOrderID(v)
}

// ReduceOrderID 按策略把订单号数值映射进域
func (c *Codec) ReduceOrderID(v *big.Int) (types.FieldElement, error) {
	if v == nil || v.Sign() < 0 {
		return types.FieldElement{}, types.WrapInvalidWitnessInputError("order_id", "negative or nil")
	}
	if c.orderIDPolicy == cryptoconfig.OrderIDPolicyReject {
		return types.NewFieldElement(v)
	}
	return types.ReduceFieldElement(v), nil
}

// OrderIDHash 实现 cryptointf.FieldCodec
func (c *Codec) OrderIDHash(orderID string) [32]byte {
	return ethcrypto.Keccak256Hash([]byte(orderID))
}

// ParseElement 解析已规范的域元素（0x 十六进制或十进制），用于公钥坐标、哈希锁、随机数
func ParseElement(s string) (types.FieldElement, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.FieldElement{}, types.WrapInvalidWitnessInputError("element", "empty")
	}
	v, err := parseInteger(s)
	if err != nil {
		return types.FieldElement{}, types.WrapInvalidWitnessInputError("element", err.Error())
	}
	return types.NewFieldElement(v)
}

// RandomElement 均匀随机的非零域元素，用作哈希锁随机数
func RandomElement() (types.FieldElement, error) {
	for {
		v, err := rand.Int(rand.Reader, types.FieldModulus())
		if err != nil {
			return types.FieldElement{}, fmt.Errorf("read randomness: %w", err)
		}
		if v.Sign() != 0 {
			return types.NewFieldElement(v)
		}
	}
}

// parseInteger 接受十进制或 0x 十六进制的非负整数
func parseInteger(s string) (*big.Int, error) {
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	if digits == "" {
		return nil, fmt.Errorf("empty number %q", s)
	}
	v, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("not a base-%d integer: %q", base, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative integer: %q", s)
	}
	return v, nil
}
