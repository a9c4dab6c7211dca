package registry

import (
	"time"

	"github.com/ztomic/v1/pkg/types"
)

// RegistryOptions 注册中心配置
type RegistryOptions struct {
	BaseURL      string        `json:"base_url"`
	PollInterval time.Duration `json:"poll_interval"`
	MinInterval  time.Duration `json:"min_interval"`
	Timeout      time.Duration `json:"timeout"`
	MaxRetries   int           `json:"max_retries"`
}

// Config 注册中心配置实现
type Config struct {
	options *RegistryOptions
}

// New 创建注册中心配置实现
func New(userConfig *types.UserRegistryConfig) *Config {
	options := &RegistryOptions{
		BaseURL:      defaultBaseURL,
		PollInterval: defaultPollInterval,
		MinInterval:  defaultMinInterval,
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
	}

	if userConfig != nil {
		if userConfig.BaseURL != nil {
			options.BaseURL = *userConfig.BaseURL
		}
		if userConfig.PollIntervalMs != nil && *userConfig.PollIntervalMs > 0 {
			options.PollInterval = time.Duration(*userConfig.PollIntervalMs) * time.Millisecond
		}
		if userConfig.MinIntervalMs != nil && *userConfig.MinIntervalMs >= 0 {
			options.MinInterval = time.Duration(*userConfig.MinIntervalMs) * time.Millisecond
		}
		if userConfig.TimeoutSeconds != nil && *userConfig.TimeoutSeconds > 0 {
			options.Timeout = time.Duration(*userConfig.TimeoutSeconds) * time.Second
		}
		if userConfig.MaxRetries != nil && *userConfig.MaxRetries >= 0 {
			options.MaxRetries = *userConfig.MaxRetries
		}
	}

	return &Config{options: options}
}

// GetOptions 获取注册中心配置选项
func (c *Config) GetOptions() *RegistryOptions {
	return c.options
}
