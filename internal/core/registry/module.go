package registry

import (
	"context"
	"sync"

	"go.uber.org/fx"

	registryconfig "github.com/ztomic/v1/internal/config/registry"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/event"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

// ModuleInput 注册中心模块依赖
type ModuleInput struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    log.Logger     `optional:"true"`
	EventBus  event.EventBus `optional:"true"`
	Options   *registryconfig.RegistryOptions
}

// ModuleOutput 注册中心模块输出，未配置地址时为 nil
type ModuleOutput struct {
	fx.Out

	Registry swapintf.Registry
	Poller   *Poller
}

// Module 返回注册中心模块
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(ProvidePoller),
	)
}

// ProvidePoller 创建客户端与同步器，并在生命周期内运行周期同步
func ProvidePoller(in ModuleInput) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(in.Logger, "registry")
	opts := in.Options
	if opts == nil || opts.BaseURL == "" {
		logger.Info("未配置注册中心地址，订单状态不会同步")
		return ModuleOutput{}, nil
	}

	client, err := NewClient(opts.BaseURL, opts.Timeout, in.Logger)
	if err != nil {
		return ModuleOutput{}, err
	}
	poller := NewPoller(client, PollerOptions{
		Interval:    opts.PollInterval,
		MinInterval: opts.MinInterval,
		MaxRetries:  opts.MaxRetries,
	}, in.EventBus, in.Logger)

	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)
	in.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			wg.Add(1)
			go func() {
				defer wg.Done()
				poller.Run(ctx)
			}()
			logger.Infof("注册中心同步已启动: %s interval=%s", opts.BaseURL, opts.PollInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			wg.Wait()
			return nil
		},
	})
	return ModuleOutput{Registry: poller, Poller: poller}, nil
}
