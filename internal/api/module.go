package api

import (
	"go.uber.org/fx"

	"github.com/ztomic/v1/internal/api/http"
)

// Module 返回API模块
func Module() fx.Option {
	return fx.Module("api",
		http.Module(),

		// 服务器只在被依赖时才会构造，这里显式触发
		fx.Invoke(func(*http.Server) {}),
	)
}
