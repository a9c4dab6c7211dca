package chain

import "time"

// 链配置默认值
const (
	defaultRPCURL        = "ws://127.0.0.1:8545"
	defaultChainID       = 31337
	defaultStartBlock    = 0
	defaultConfirmations = 0

	// defaultPollInterval RPC 不支持订阅时的轮询间隔
	defaultPollInterval = 4 * time.Second
)
