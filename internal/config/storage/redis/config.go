package redis

import (
	configtypes "github.com/ztomic/v1/pkg/types"
)

// RedisOptions Redis 存储配置选项
type RedisOptions struct {
	Addr         string `json:"addr"`
	Password     string `json:"password"`
	DB           int    `json:"db"`
	KeyPrefix    string `json:"key_prefix"`
	PoolSize     int    `json:"pool_size"`
	MinIdleConns int    `json:"min_idle_conns"`
	DialTimeout  int    `json:"dial_timeout"`  // 秒
	ReadTimeout  int    `json:"read_timeout"`  // 秒
	WriteTimeout int    `json:"write_timeout"` // 秒
}

// Config Redis 配置实现
type Config struct {
	options *RedisOptions
}

// New 创建 Redis 配置实现
func New(userConfig *configtypes.UserStorageConfig) *Config {
	options := &RedisOptions{
		Addr:         defaultAddr,
		DB:           defaultDB,
		KeyPrefix:    defaultKeyPrefix,
		PoolSize:     defaultPoolSize,
		MinIdleConns: defaultMinIdleConns,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	if userConfig != nil {
		if userConfig.RedisAddr != nil {
			options.Addr = *userConfig.RedisAddr
		}
		if userConfig.RedisPassword != nil {
			options.Password = *userConfig.RedisPassword
		}
		if userConfig.RedisDB != nil {
			options.DB = *userConfig.RedisDB
		}
		if userConfig.RedisKeyPrefix != nil {
			options.KeyPrefix = *userConfig.RedisKeyPrefix
		}
	}

	return &Config{options: options}
}

// GetOptions 获取完整配置选项
func (c *Config) GetOptions() *RedisOptions {
	return c.options
}
