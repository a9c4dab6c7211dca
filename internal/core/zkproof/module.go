package zkproof

import (
	"fmt"

	proverconfig "github.com/ztomic/v1/internal/config/prover"
	"github.com/ztomic/v1/internal/core/commitment"
	"github.com/ztomic/v1/internal/core/zkproof/backend/gnark"
	"github.com/ztomic/v1/internal/core/zkproof/backend/noir"
	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"go.uber.org/fx"
)

// ModuleInput 证明模块依赖
type ModuleInput struct {
	fx.In

	Logger        log.Logger `optional:"true"`
	Hasher        cryptointf.Hasher
	KeyManager    cryptointf.KeyManager
	FieldCodec    cryptointf.FieldCodec
	Scheme        *commitment.Scheme
	ProverOptions *proverconfig.ProverOptions
}

// ModuleOutput 证明模块输出
type ModuleOutput struct {
	fx.Out

	Backend        swapintf.ProvingBackend
	Generator      *Generator
	ProofGenerator swapintf.ProofGenerator
}

// Module 返回证明模块
func Module() fx.Option {
	return fx.Module("zkproof",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 按配置选择证明后端并创建生成器
func ProvideServices(in ModuleInput) (ModuleOutput, error) {
	backend, err := NewBackend(in.Logger, in.ProverOptions, in.Hasher.Name())
	if err != nil {
		return ModuleOutput{}, err
	}
	gen := NewGenerator(in.Logger, in.Scheme, in.KeyManager, in.FieldCodec, backend)
	return ModuleOutput{
		Backend:        backend,
		Generator:      gen,
		ProofGenerator: gen,
	}, nil
}

// NewBackend 按名称创建证明后端
func NewBackend(logger log.Logger, opts *proverconfig.ProverOptions, hashName string) (swapintf.ProvingBackend, error) {
	if opts == nil {
		opts = proverconfig.New(nil).GetOptions()
	}
	switch opts.Backend {
	case proverconfig.BackendGroth16, "":
		return gnark.New(logger, hashName)
	case proverconfig.BackendNoir:
		return noir.New(logger, opts), nil
	default:
		return nil, fmt.Errorf("unsupported proving backend %q", opts.Backend)
	}
}
