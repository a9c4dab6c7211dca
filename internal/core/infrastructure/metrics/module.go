package metrics

import (
	"go.uber.org/fx"
)

// Module 返回 metrics 模块的 fx.Option
//
// 启动时把交换核心指标注册到默认 Registry。
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Invoke(Register),
	)
}
