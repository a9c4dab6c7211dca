package commitment

import (
	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"go.uber.org/fx"
)

// ModuleInput 承诺模块依赖
type ModuleInput struct {
	fx.In

	Hasher     cryptointf.Hasher
	KeyManager cryptointf.KeyManager
}

// ModuleOutput 承诺模块输出
type ModuleOutput struct {
	fx.Out

	Scheme           *Scheme
	CommitmentScheme swapintf.CommitmentScheme
}

// Module 返回承诺模块
func Module() fx.Option {
	return fx.Module("commitment",
		fx.Provide(func(in ModuleInput) ModuleOutput {
			s := NewScheme(in.Hasher, in.KeyManager)
			return ModuleOutput{Scheme: s, CommitmentScheme: s}
		}),
	)
}
