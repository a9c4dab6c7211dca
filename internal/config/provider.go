package config

import (
	"strings"

	"github.com/ztomic/v1/internal/config/api"
	"github.com/ztomic/v1/internal/config/chain"
	"github.com/ztomic/v1/internal/config/crypto"
	"github.com/ztomic/v1/internal/config/log"
	"github.com/ztomic/v1/internal/config/prover"
	"github.com/ztomic/v1/internal/config/registry"
	"github.com/ztomic/v1/internal/config/storage/badger"
	"github.com/ztomic/v1/internal/config/storage/redis"
	"github.com/ztomic/v1/internal/config/swap"
	"github.com/ztomic/v1/pkg/interfaces/config"
	"github.com/ztomic/v1/pkg/types"
)

// 事件日志存储后端
const (
	StorageBadger = "badger"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者
func NewProvider(appConfig *types.AppConfig) config.Provider {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	return &Provider{
		appConfig: appConfig,
	}
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	var userLogConfig interface{}
	if p.appConfig.Log != nil {
		userLogConfig = p.appConfig.Log
	}
	return log.New(userLogConfig).GetOptions()
}

// GetStorageBackend 事件日志存储后端，未知值回退到 badger
func (p *Provider) GetStorageBackend() string {
	if p.appConfig.Storage == nil || p.appConfig.Storage.Backend == nil {
		return StorageBadger
	}
	switch backend := strings.ToLower(*p.appConfig.Storage.Backend); backend {
	case StorageBadger, StorageRedis, StorageMemory:
		return backend
	default:
		return StorageBadger
	}
}

// GetBadger 获取BadgerDB存储配置
func (p *Provider) GetBadger() *badger.BadgerOptions {
	var userStorageConfig interface{}
	if p.appConfig.Storage != nil {
		userStorageConfig = p.appConfig.Storage
	} else if p.appConfig.DataDir != nil {
		userStorageConfig = &types.UserStorageConfig{DataRoot: p.appConfig.DataDir}
	}
	return badger.New(userStorageConfig).GetOptions()
}

// GetRedis 获取Redis存储配置
func (p *Provider) GetRedis() *redis.RedisOptions {
	return redis.New(p.appConfig.Storage).GetOptions()
}

// GetCrypto 获取密码学参数配置
func (p *Provider) GetCrypto() *crypto.CryptoOptions {
	return crypto.New(p.appConfig.Crypto).GetOptions()
}

// GetProver 获取证明后端配置
func (p *Provider) GetProver() *prover.ProverOptions {
	return prover.New(p.appConfig.Prover).GetOptions()
}

// GetChain 获取链配置
func (p *Provider) GetChain() *chain.ChainOptions {
	return chain.New(p.appConfig.Chain).GetOptions()
}

// GetRegistry 获取注册中心配置
func (p *Provider) GetRegistry() *registry.RegistryOptions {
	return registry.New(p.appConfig.Registry).GetOptions()
}

// GetAPI 获取API服务配置
func (p *Provider) GetAPI() *api.APIOptions {
	return api.New(p.appConfig.API).GetOptions()
}

// GetSwap 获取交换编排配置
func (p *Provider) GetSwap() *swap.SwapOptions {
	return swap.New(p.appConfig.Swap).GetOptions()
}
