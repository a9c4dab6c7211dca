// Package crypto 提供加密相关功能
package crypto

import (
	cryptoconfig "github.com/ztomic/v1/internal/config/crypto"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	log "github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
)

// CryptoParams 定义加密模块的依赖参数
type CryptoParams struct {
	fx.In

	Options *cryptoconfig.CryptoOptions
	Logger  log.Logger `optional:"true"`
}

// CryptoOutput 定义加密模块的输出结构
type CryptoOutput struct {
	fx.Out

	Hasher     crypto.Hasher
	KeyManager crypto.KeyManager
	FieldCodec crypto.FieldCodec
	TreeDepth  int `name:"merkle_depth"`
}

// Module 返回加密模块
func Module() fx.Option {
	return fx.Module("crypto",
		fx.Provide(ProvideCryptoServices),
	)
}

// ProvideCryptoServices 提供加密服务
func ProvideCryptoServices(params CryptoParams) (CryptoOutput, error) {
	out, err := CreateCryptoServices(ServiceInput{
		Options: params.Options,
		Logger:  params.Logger,
	})
	if err != nil {
		return CryptoOutput{}, err
	}

	return CryptoOutput{
		Hasher:     out.Hasher,
		KeyManager: out.KeyManager,
		FieldCodec: out.FieldCodec,
		TreeDepth:  out.TreeDepth,
	}, nil
}
