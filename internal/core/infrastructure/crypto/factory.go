// Package crypto 提供交换协议使用的密码学服务工厂
package crypto

import (
	cryptoconfig "github.com/ztomic/v1/internal/config/crypto"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/field"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/hash"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/key"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto/merkle"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	log "github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
)

// ServiceInput 定义加密服务工厂的输入参数
type ServiceInput struct {
	Options *cryptoconfig.CryptoOptions `optional:"false"`
	Logger  log.Logger                  `optional:"true"`
}

// ServiceOutput 定义加密服务工厂的输出结果
type ServiceOutput struct {
	Hasher     crypto.Hasher
	KeyManager crypto.KeyManager
	FieldCodec crypto.FieldCodec
	TreeDepth  int
}

// CreateCryptoServices 创建加密服务
//
// 哈希实现由配置决定，Merkle 树、承诺与证明共用同一个 Hasher，
// 否则链上根与本地根不一致。
func CreateCryptoServices(input ServiceInput) (ServiceOutput, error) {
	logger := logimpl.NewModuleLogger(input.Logger, "crypto")

	opts := input.Options
	if opts == nil {
		opts = cryptoconfig.New(nil).GetOptions()
	}
	if err := opts.Validate(); err != nil {
		return ServiceOutput{}, err
	}

	hasher, err := hash.New(opts.Hash)
	if err != nil {
		return ServiceOutput{}, err
	}
	logger.Infof("哈希服务已初始化: %s", hasher.Name())

	codec, err := field.NewCodec(opts)
	if err != nil {
		return ServiceOutput{}, err
	}
	logger.Infof("域编码已初始化: secret=%s order_id=%s", opts.SecretEncoding, opts.OrderIDPolicy)

	// 提前计算一次零值，深度或哈希配置错误在启动时暴露
	if _, err := merkle.ZeroValues(opts.TreeDepth, hasher); err != nil {
		return ServiceOutput{}, err
	}

	return ServiceOutput{
		Hasher:     hasher,
		KeyManager: key.NewKeyService(),
		FieldCodec: codec,
		TreeDepth:  opts.TreeDepth,
	}, nil
}
