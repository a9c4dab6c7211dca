// Package key 提供 Baby Jubjub 上的密钥派生与 ECDH
//
// 坐标系与 circomlib / zk-kit 一致（Base8 生成元），
// 公钥 = secret · Base8，共享秘密 = (mine · theirs).x。
package key

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"

	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/types"
)

// 确保KeyService实现了cryptointf.KeyManager接口
var _ cryptointf.KeyManager = (*KeyService)(nil)

// KeyService Baby Jubjub 密钥服务，无状态，可并发使用
type KeyService struct{}

// NewKeyService 创建密钥服务
func NewKeyService() *KeyService {
	return &KeyService{}
}

// DerivePublicKey 实现 cryptointf.KeyManager
func (s *KeyService) DerivePublicKey(secret types.FieldElement) (types.PublicKey, error) {
	if secret.IsZero() {
		return types.PublicKey{}, types.WrapInvalidWitnessInputError("secret", "zero or unset")
	}
	p := babyjub.NewPoint().Mul(secret.BigInt(), babyjub.B8)
	return pointToPublicKey(p)
}

// SharedSecret 实现 cryptointf.KeyManager
func (s *KeyService) SharedSecret(theirs types.PublicKey, mine types.FieldElement) (types.SharedSecret, error) {
	if mine.IsZero() {
		return types.SharedSecret{}, types.WrapInvalidWitnessInputError("secret", "zero or unset")
	}
	point, err := toPoint(theirs)
	if err != nil {
		return types.SharedSecret{}, err
	}
	shared := babyjub.NewPoint().Mul(mine.BigInt(), point)
	x, err := types.NewFieldElement(shared.X)
	if err != nil {
		return types.SharedSecret{}, fmt.Errorf("shared point x: %w", err)
	}
	return types.SharedSecret{FieldElement: x}, nil
}

// ValidatePublicKey 实现 cryptointf.KeyManager
func (s *KeyService) ValidatePublicKey(pk types.PublicKey) error {
	_, err := toPoint(pk)
	return err
}

// toPoint 转换并校验对端公钥
func toPoint(pk types.PublicKey) (*babyjub.Point, error) {
	if !pk.IsSet() {
		return nil, types.WrapInvalidWitnessInputError("public_key", "unset coordinate")
	}
	p := &babyjub.Point{X: pk.X.BigInt(), Y: pk.Y.BigInt()}
	if !p.InCurve() {
		return nil, types.WrapInvalidWitnessInputError("public_key", "point not on Baby Jubjub")
	}
	if p.X.Sign() == 0 && p.Y.Cmp(big.NewInt(1)) == 0 {
		return nil, types.WrapInvalidWitnessInputError("public_key", "identity point")
	}
	if !p.InSubGroup() {
		return nil, types.WrapInvalidWitnessInputError("public_key", "point not in prime-order subgroup")
	}
	return p, nil
}

func pointToPublicKey(p *babyjub.Point) (types.PublicKey, error) {
	x, err := types.NewFieldElement(p.X)
	if err != nil {
		return types.PublicKey{}, err
	}
	y, err := types.NewFieldElement(p.Y)
	if err != nil {
		return types.PublicKey{}, err
	}
	return types.PublicKey{X: x, Y: y}, nil
}

// ParsePublicKey 解析注册中心返回的十六进制（或十进制）坐标并校验
func (s *KeyService) ParsePublicKey(record types.UserRecord) (types.PublicKey, error) {
	x, err := parseCoordinate(record.PubKeyX)
	if err != nil {
		return types.PublicKey{}, err
	}
	y, err := parseCoordinate(record.PubKeyY)
	if err != nil {
		return types.PublicKey{}, err
	}
	pk := types.PublicKey{X: x, Y: y}
	if err := s.ValidatePublicKey(pk); err != nil {
		return types.PublicKey{}, fmt.Errorf("user %s: %w", record.UserName, err)
	}
	return pk, nil
}

// parseCoordinate 注册中心写入的是不带前缀、左补零到 64 位的十六进制
func parseCoordinate(s string) (types.FieldElement, error) {
	if s == "" {
		return types.FieldElement{}, types.WrapInvalidWitnessInputError("public_key", "empty coordinate")
	}
	return types.FieldElementFromHex(s)
}
