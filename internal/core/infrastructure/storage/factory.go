// Package storage 提供事件日志存储服务工厂实现
package storage

import (
	"fmt"

	configpkg "github.com/ztomic/v1/internal/config"
	"github.com/ztomic/v1/internal/core/infrastructure/storage/badger"
	"github.com/ztomic/v1/internal/core/infrastructure/storage/memory"
	"github.com/ztomic/v1/internal/core/infrastructure/storage/redis"
	"github.com/ztomic/v1/pkg/interfaces/config"
	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

// ServiceInput 定义存储服务工厂的输入参数
type ServiceInput struct {
	Provider config.Provider
	Logger   log.Logger
}

// ServiceOutput 定义存储服务工厂的输出结果
type ServiceOutput struct {
	EventStore swapintf.EventStore
	Backend    string
}

// CreateStorageServices 按配置选择事件日志存储后端
//
// 打开失败直接返回错误，不隐式回退到内存存储：
// 回退会让重启后丢失已同步的历史而不被察觉。
func CreateStorageServices(input ServiceInput) (ServiceOutput, error) {
	if input.Provider == nil {
		return ServiceOutput{}, fmt.Errorf("config provider cannot be nil")
	}
	logger := input.Logger

	backend := input.Provider.GetStorageBackend()
	var (
		store swapintf.EventStore
		err   error
	)
	switch backend {
	case configpkg.StorageMemory:
		store = memory.New(logger)
	case configpkg.StorageRedis:
		store, err = redis.New(input.Provider.GetRedis(), logger)
	default:
		backend = configpkg.StorageBadger
		store, err = badger.New(input.Provider.GetBadger(), logger)
	}
	if err != nil {
		return ServiceOutput{}, fmt.Errorf("创建 %s 事件存储失败: %w", backend, err)
	}

	if logger != nil {
		logger.Infof("事件日志存储后端: %s", backend)
	}
	return ServiceOutput{EventStore: store, Backend: backend}, nil
}
