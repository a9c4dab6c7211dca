package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ztomic/v1/internal/api"
	config "github.com/ztomic/v1/internal/config"
	"github.com/ztomic/v1/internal/core/chain"
	"github.com/ztomic/v1/internal/core/commitment"
	"github.com/ztomic/v1/internal/core/infrastructure/crypto"
	"github.com/ztomic/v1/internal/core/infrastructure/event"
	log "github.com/ztomic/v1/internal/core/infrastructure/log"
	"github.com/ztomic/v1/internal/core/infrastructure/metrics"
	"github.com/ztomic/v1/internal/core/infrastructure/storage"
	"github.com/ztomic/v1/internal/core/ledger"
	"github.com/ztomic/v1/internal/core/registry"
	"github.com/ztomic/v1/internal/core/swap"
	"github.com/ztomic/v1/internal/core/zkproof"
	configintf "github.com/ztomic/v1/pkg/interfaces/config"
)

// Framework layers
const (
	// 基础设施层
	LayerInfrastructure = "infrastructure"
	// 数据与外部连接层
	LayerCommunication = "communication"
	// 交换业务层
	LayerBusiness = "business"
	// 应用层
	LayerApplication = "application"
)

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts  *options
	fxApp *fx.App
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{
		opts: opts,
	}
}

// SetupInfrastructureLayer 设置基础设施层模块
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		// 原始用户配置，供config模块解析
		fx.Supply(fx.Annotate(b.opts, fx.As(new(configintf.AppOptions)))),

		config.Module(),  // 1. 配置(不依赖其他)
		log.Module(),     // 2. 日志(依赖配置)
		metrics.Module(), // 3. 指标
		crypto.Module(),  // 4. 哈希、密钥与域编码(依赖配置)
		event.Module(),   // 5. 事件总线(依赖日志)
	}
}

// SetupCommunicationLayer 设置数据与外部连接层模块
func (b *Bootstrap) SetupCommunicationLayer() []fx.Option {
	return []fx.Option{
		storage.Module(),  // 事件日志存储
		chain.Module(),    // 链上日志来源与合约调用
		registry.Module(), // 订单注册中心同步
	}
}

// SetupBusinessLayer 设置交换业务层模块
//
// 加载顺序遵循依赖关系：账本 -> 承诺 -> 证明 -> 编排。
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		ledger.Module(),
		commitment.Module(),
		zkproof.Module(),
		swap.Module(),

		// 编排器没有下游依赖时也要构造，它负责跟随链上事件
		fx.Invoke(func(*swap.Orchestrator) {}),
	}
}

// SetupApplicationLayer 设置应用层模块
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	var modules []fx.Option

	// 条件性添加API模块，配置中的 enabled 仍然生效
	if b.opts.enableAPI {
		modules = append(modules, api.Module())
	} else {
		fmt.Println("状态 API 模块已禁用")
	}

	for _, fn := range b.opts.extra {
		modules = append(modules, fx.Invoke(fn))
	}
	return modules
}

// SetupModules 设置所有应用模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var allModules []fx.Option

	// 按照依赖顺序添加各层模块
	allModules = append(allModules, b.SetupInfrastructureLayer()...)
	allModules = append(allModules, b.SetupCommunicationLayer()...)
	allModules = append(allModules, b.SetupBusinessLayer()...)
	allModules = append(allModules, b.SetupApplicationLayer()...)
	return allModules
}

// CreateFxApp 创建并配置fx应用
func (b *Bootstrap) CreateFxApp(populate ...interface{}) error {
	appOptions := []fx.Option{
		fx.Options(b.SetupModules()...),

		// fx内部事件只在 debug 级别输出
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			zl := &fxevent.ZapLogger{Logger: l.Named("fx")}
			zl.UseLogLevel(zapcore.DebugLevel)
			return zl
		}),
	}
	if len(populate) > 0 {
		appOptions = append(appOptions, fx.Populate(populate...))
	}

	b.fxApp = fx.New(appOptions...)
	return b.fxApp.Err()
}

// StartApp 启动应用程序
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用程序
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}

// BootstrapApp 执行完整的引导过程并返回应用实例
func BootstrapApp(opts *options) (App, error) {
	bootstrap := NewBootstrap(opts)

	var orchestrator *swap.Orchestrator
	if err := bootstrap.CreateFxApp(&orchestrator); err != nil {
		return nil, fmt.Errorf("创建应用失败: %w", err)
	}

	// 启动期间会加载电路并回放链上历史
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startupCancel()

	if err := bootstrap.StartApp(startupCtx); err != nil {
		return nil, err
	}

	return &internalApp{
		bootstrap:    bootstrap,
		orchestrator: orchestrator,
	}, nil
}

// WaitForSignal 等待退出信号
func WaitForSignal() os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	return <-signals
}
