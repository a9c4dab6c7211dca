package api

import (
	"time"

	"github.com/ztomic/v1/pkg/types"
)

// APIOptions 状态查询 API 配置
type APIOptions struct {
	Enabled         bool          `json:"enabled"`
	ListenAddr      string        `json:"listen_addr"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// Config API配置实现
type Config struct {
	options *APIOptions
}

// New 创建API配置实现
func New(userConfig *types.UserAPIConfig) *Config {
	options := &APIOptions{
		Enabled:         defaultEnabled,
		ListenAddr:      defaultListenAddr,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
	}

	if userConfig != nil {
		if userConfig.Enabled != nil {
			options.Enabled = *userConfig.Enabled
		}
		if userConfig.ListenAddr != nil {
			options.ListenAddr = *userConfig.ListenAddr
		}
	}

	return &Config{options: options}
}

// GetOptions 获取API配置选项
func (c *Config) GetOptions() *APIOptions {
	return c.options
}
