package crypto

import "github.com/ztomic/v1/pkg/types"

// KeyManager Baby Jubjub 密钥派生与 ECDH
type KeyManager interface {
	// DerivePublicKey secret · Base8
	DerivePublicKey(secret types.FieldElement) (types.PublicKey, error)

	// SharedSecret (mine · theirs).x，对端公钥必须在曲线上
	SharedSecret(theirs types.PublicKey, mine types.FieldElement) (types.SharedSecret, error)

	// ValidatePublicKey 校验公钥在曲线及素数阶子群上
	ValidatePublicKey(pk types.PublicKey) error
	// ParsePublicKey 解析注册中心发布的公钥坐标并校验
	ParsePublicKey(record types.UserRecord) (types.PublicKey, error)
}
