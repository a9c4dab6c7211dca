// Package config provides configuration provider interfaces.
package config

import (
	apiconfig "github.com/ztomic/v1/internal/config/api"
	chainconfig "github.com/ztomic/v1/internal/config/chain"
	cryptoconfig "github.com/ztomic/v1/internal/config/crypto"
	logconfig "github.com/ztomic/v1/internal/config/log"
	proverconfig "github.com/ztomic/v1/internal/config/prover"
	registryconfig "github.com/ztomic/v1/internal/config/registry"
	badgerconfig "github.com/ztomic/v1/internal/config/storage/badger"
	redisconfig "github.com/ztomic/v1/internal/config/storage/redis"
	swapconfig "github.com/ztomic/v1/internal/config/swap"
)

// Provider 配置提供者接口
//
// 每个 GetX 返回已经应用默认值的完整选项，调用方无需再判断空字段。
type Provider interface {
	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions

	// GetStorageBackend 事件日志存储后端：badger | redis | memory
	GetStorageBackend() string

	// GetBadger 获取BadgerDB存储配置
	GetBadger() *badgerconfig.BadgerOptions

	// GetRedis 获取Redis存储配置
	GetRedis() *redisconfig.RedisOptions

	// GetCrypto 获取密码学参数配置
	GetCrypto() *cryptoconfig.CryptoOptions

	// GetProver 获取证明后端配置
	GetProver() *proverconfig.ProverOptions

	// GetChain 获取链配置
	GetChain() *chainconfig.ChainOptions

	// GetRegistry 获取注册中心配置
	GetRegistry() *registryconfig.RegistryOptions

	// GetAPI 获取API服务配置
	GetAPI() *apiconfig.APIOptions

	// GetSwap 获取交换编排配置
	GetSwap() *swapconfig.SwapOptions
}
