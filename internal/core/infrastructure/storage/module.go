// Package storage 提供事件日志存储模块
package storage

import (
	"context"

	"go.uber.org/fx"

	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/pkg/interfaces/config"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

// ModuleParams 定义存储模块的依赖参数
type ModuleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider
	Logger    log.Logger `optional:"true"`
}

// ModuleOutput 定义存储模块的输出结构
type ModuleOutput struct {
	fx.Out

	EventStore swapintf.EventStore
}

// Module 返回存储模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 提供存储服务并在应用停止时关闭
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(params.Logger, "storage")

	out, err := CreateStorageServices(ServiceInput{
		Provider: params.Provider,
		Logger:   logger,
	})
	if err != nil {
		return ModuleOutput{}, err
	}

	store := out.EventStore
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("正在关闭事件日志存储...")
			return store.Close()
		},
	})

	return ModuleOutput{EventStore: store}, nil
}
