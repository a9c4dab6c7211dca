package swap

// 交换编排默认配置值
const (
	// defaultEventBufferSize 链上事件通道缓冲
	defaultEventBufferSize = 256

	defaultSecretEnv = "ZTOMIC_SECRET"
	defaultNonceEnv  = "ZTOMIC_NONCE"
)
