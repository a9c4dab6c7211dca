// Package event 提供进程内事件总线模块
package event

import (
	"context"

	"go.uber.org/fx"

	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	eventInterface "github.com/ztomic/v1/pkg/interfaces/infrastructure/event"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
)

// ModuleInput 事件模块输入依赖
type ModuleInput struct {
	fx.In

	Logger    log.Logger `optional:"true"`
	Lifecycle fx.Lifecycle
}

// ModuleOutput 事件模块输出服务
type ModuleOutput struct {
	fx.Out

	EventBus eventInterface.EventBus
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(
			func(input ModuleInput) ModuleOutput {
				bus := New(logimpl.NewModuleLogger(input.Logger, "event"))
				input.Lifecycle.Append(fx.Hook{
					// 停止前排空异步处理器
					OnStop: func(context.Context) error {
						bus.WaitAsync()
						return nil
					},
				})
				return ModuleOutput{EventBus: bus}
			},
		),
	)
}
