// Package config 提供应用配置管理功能
package config

import (
	"github.com/ztomic/v1/internal/config/api"
	"github.com/ztomic/v1/internal/config/chain"
	"github.com/ztomic/v1/internal/config/crypto"
	"github.com/ztomic/v1/internal/config/prover"
	"github.com/ztomic/v1/internal/config/registry"
	"github.com/ztomic/v1/internal/config/swap"
	"github.com/ztomic/v1/pkg/interfaces/config"
	"github.com/ztomic/v1/pkg/types"
	"go.uber.org/fx"
)

// ConfigParams 定义配置模块的依赖参数
type ConfigParams struct {
	fx.In

	// 应用配置选项
	AppOptions config.AppOptions `optional:"true"`
}

// ConfigOutput 定义配置模块的输出结构
type ConfigOutput struct {
	fx.Out

	// 配置提供者
	Provider config.Provider
}

// Module 返回配置模块
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			ProvideConfigServices,
			// 提供具体的配置类型用于依赖注入
			func(provider config.Provider) (*crypto.CryptoOptions, error) {
				opts := provider.GetCrypto()
				if err := opts.Validate(); err != nil {
					return nil, err
				}
				return opts, nil
			},
			func(provider config.Provider) *prover.ProverOptions {
				return provider.GetProver()
			},
			func(provider config.Provider) *chain.ChainOptions {
				return provider.GetChain()
			},
			func(provider config.Provider) *registry.RegistryOptions {
				return provider.GetRegistry()
			},
			func(provider config.Provider) *swap.SwapOptions {
				return provider.GetSwap()
			},
			func(provider config.Provider) *api.APIOptions {
				return provider.GetAPI()
			},
		),
	)
}

// ProvideConfigServices 提供配置服务
func ProvideConfigServices(params ConfigParams) (ConfigOutput, error) {
	var appConfig *types.AppConfig
	if params.AppOptions != nil {
		appConfig = params.AppOptions.GetAppConfig()
	}

	return ConfigOutput{
		Provider: NewProvider(appConfig),
	}, nil
}
