package swap

import (
	"github.com/ztomic/v1/pkg/types"
)

// SwapOptions 交换编排配置
//
// Role/OrderID/Counterparty 为空时 run 命令只同步账本，不驱动会话。
type SwapOptions struct {
	EventBufferSize int    `json:"event_buffer_size"`
	Role            string `json:"role"`
	OrderID         string `json:"order_id"`
	Counterparty    string `json:"counterparty"`
	SecretEnv       string `json:"secret_env"`
	NonceEnv        string `json:"nonce_env"`
}

// Config 交换编排配置实现
type Config struct {
	options *SwapOptions
}

// New 创建交换编排配置实现
func New(userConfig *types.UserSwapConfig) *Config {
	options := &SwapOptions{
		EventBufferSize: defaultEventBufferSize,
		SecretEnv:       defaultSecretEnv,
		NonceEnv:        defaultNonceEnv,
	}

	if userConfig != nil {
		if userConfig.EventBufferSize != nil && *userConfig.EventBufferSize > 0 {
			options.EventBufferSize = *userConfig.EventBufferSize
		}
		if userConfig.Role != nil {
			options.Role = *userConfig.Role
		}
		if userConfig.OrderID != nil {
			options.OrderID = *userConfig.OrderID
		}
		if userConfig.Counterparty != nil {
			options.Counterparty = *userConfig.Counterparty
		}
		if userConfig.SecretEnv != nil {
			options.SecretEnv = *userConfig.SecretEnv
		}
		if userConfig.NonceEnv != nil {
			options.NonceEnv = *userConfig.NonceEnv
		}
	}

	return &Config{options: options}
}

// GetOptions 获取交换编排配置选项
func (c *Config) GetOptions() *SwapOptions {
	return c.options
}
