package api

import "time"

// 状态查询 API 默认配置值
const (
	// defaultEnabled 默认启用状态 API
	defaultEnabled = true

	// defaultListenAddr 只监听本机，交换状态包含订单信息
	defaultListenAddr = "127.0.0.1:8787"

	// defaultReadTimeout HTTP读取超时
	defaultReadTimeout = 15 * time.Second

	// defaultWriteTimeout HTTP写入超时
	defaultWriteTimeout = 15 * time.Second

	// defaultShutdownTimeout 优雅关闭等待时间
	defaultShutdownTimeout = 5 * time.Second
)
