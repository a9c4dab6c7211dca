package http

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	apiconfig "github.com/ztomic/v1/internal/config/api"
	logimpl "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/internal/core/infrastructure/metrics"
	"github.com/ztomic/v1/internal/core/swap"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

// ModuleInput HTTP 模块依赖
type ModuleInput struct {
	fx.In

	Lifecycle    fx.Lifecycle
	Logger       log.Logger `optional:"true"`
	Options      *apiconfig.APIOptions
	Orchestrator *swap.Orchestrator
	Ledger       swapintf.Ledger
}

func init() {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = io.Discard
}

// Module 返回 HTTP 服务模块
func Module() fx.Option {
	return fx.Options(
		fx.Provide(ProvideServer),
	)
}

// ProvideServer 创建服务器；配置禁用时返回 nil
func ProvideServer(in ModuleInput) (*Server, error) {
	logger := logimpl.NewModuleLogger(in.Logger, "api")
	if in.Options != nil && !in.Options.Enabled {
		logger.Info("状态 API 已禁用")
		return nil, nil
	}
	metrics.Register()

	server, err := NewServer(ServerDeps{
		Options: in.Options,
		Logger:  in.Logger,
		Swaps:   in.Orchestrator,
		Ledger:  in.Ledger,
	})
	if err != nil {
		return nil, err
	}
	in.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			return server.Stop(ctx)
		},
	})
	return server, nil
}
