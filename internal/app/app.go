package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ztomic/v1/internal/core/swap"
	"github.com/ztomic/v1/pkg/types"
)

// ConfigPathEnv 指定配置文件路径的环境变量
const ConfigPathEnv = "ZTOMIC_CONFIG"

// defaultConfigPath 未指定路径时尝试读取的配置文件
const defaultConfigPath = "configs/ztomic.json"

// LoadConfig 读取 JSON 配置文件
//
// 文件不存在时返回空配置，各模块使用默认值；解析失败时返回错误。
func LoadConfig(path string) (*types.AppConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &types.AppConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s: %w", path, err)
	}

	var appConfig types.AppConfig
	if err := json.Unmarshal(data, &appConfig); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s: %w", path, err)
	}
	return &appConfig, nil
}

// createDataDirectories 根据配置创建数据目录与日志目录
func createDataDirectories(appConfig *types.AppConfig) error {
	var directories []string
	if appConfig.Storage != nil && appConfig.Storage.DataRoot != nil {
		directories = append(directories, *appConfig.Storage.DataRoot)
	} else if appConfig.DataDir != nil {
		directories = append(directories, *appConfig.DataDir)
	}
	if appConfig.Log != nil && appConfig.Log.FilePath != nil {
		directories = append(directories, filepath.Dir(*appConfig.Log.FilePath))
	}

	for _, dir := range directories {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}

// resolveConfigPath 选项 > 环境变量 > 默认路径
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if envPath := os.Getenv(ConfigPathEnv); envPath != "" {
		return envPath
	}
	return defaultConfigPath
}

// App 是交换节点的对外接口
type App interface {
	// Stop 停止应用
	Stop() error

	// Wait 等待应用收到退出信号
	Wait()

	// Orchestrator 返回运行中的编排器
	Orchestrator() *swap.Orchestrator
}

// internalApp 应用的内部实现
type internalApp struct {
	bootstrap    *Bootstrap
	orchestrator *swap.Orchestrator
}

// Stop 停止应用
func (a *internalApp) Stop() error {
	// 给证明任务与存储关闭留出时间
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

// Wait 等待应用收到退出信号
func (a *internalApp) Wait() {
	fmt.Println("交换节点正在运行，按 Ctrl+C 停止...")

	sig := WaitForSignal()
	fmt.Printf("\n收到信号 %v，正在退出...\n", sig)

	if err := a.Stop(); err != nil {
		fmt.Printf("停止应用时出错: %v\n", err)
	}
}

// Orchestrator 返回运行中的编排器
func (a *internalApp) Orchestrator() *swap.Orchestrator {
	return a.orchestrator
}

// Start 加载配置并启动应用
func Start(appOptions ...Option) (App, error) {
	opts := newOptions(appOptions...)

	if opts.appConfig == nil {
		path := resolveConfigPath(opts.configFilePath)
		cfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		fmt.Printf("配置文件: %s\n", path)
		opts.appConfig = cfg
	}
	if err := createDataDirectories(opts.appConfig); err != nil {
		return nil, err
	}
	return BootstrapApp(opts)
}
