package ledger

import (
	"context"

	"go.uber.org/fx"

	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	cryptointf "github.com/ztomic/v1/pkg/interfaces/infrastructure/crypto"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/event"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

// ModuleInput 账本模块依赖
type ModuleInput struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    log.Logger `optional:"true"`
	Hasher    cryptointf.Hasher
	Depth     int                 `name:"merkle_depth"`
	Store     swapintf.EventStore `optional:"true"`
	EventBus  event.EventBus      `optional:"true"`
}

// ModuleOutput 账本模块输出
type ModuleOutput struct {
	fx.Out

	Service *Service
	Ledger  swapintf.Ledger
}

// Module 返回账本模块
//
// 启动时从 EventStore 恢复已同步的历史。
func Module() fx.Option {
	return fx.Module("ledger",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 创建账本并注册恢复钩子
func ProvideServices(in ModuleInput) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(in.Logger, "ledger")
	svc, err := New(logger, in.Hasher, in.Depth, in.Store, in.EventBus)
	if err != nil {
		return ModuleOutput{}, err
	}
	in.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := svc.Load(ctx)
			return err
		},
	})
	return ModuleOutput{Service: svc, Ledger: svc}, nil
}
