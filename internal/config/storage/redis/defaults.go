package redis

// Redis 事件日志存储默认配置值
const (
	defaultAddr         = "127.0.0.1:6379"
	defaultDB           = 0
	defaultKeyPrefix    = "ztomic:"
	defaultPoolSize     = 10
	defaultMinIdleConns = 2
	defaultDialTimeout  = 5 // 秒
	defaultReadTimeout  = 3 // 秒
	defaultWriteTimeout = 3 // 秒
)
