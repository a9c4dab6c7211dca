package registry

import "time"

// 注册中心默认配置值
const (
	defaultBaseURL = "http://127.0.0.1:3000"

	// defaultPollInterval 订单同步周期
	defaultPollInterval = 2 * time.Second

	// defaultMinInterval 两次同步之间的最小间隔，防止重入风暴
	defaultMinInterval = 500 * time.Millisecond

	defaultTimeout = 10 * time.Second

	// defaultMaxRetries 同步失败重试次数，用尽后回退为直接拉取
	defaultMaxRetries = 3
)
