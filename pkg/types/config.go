// Package types provides configuration type definitions.
package types

// AppConfig 应用程序根配置
// 只包含JSON配置文件解析所需的结构，不包含任何内部字段
// 默认值和完整配置结构在 internal/config/*/defaults.go 和 internal/config/*/config.go 中定义
type AppConfig struct {
	// 应用程序基本信息
	AppName *string `json:"app_name,omitempty"` // 应用名称
	DataDir *string `json:"data_dir,omitempty"` // 数据目录路径

	// 日志配置
	Log *UserLogConfig `json:"log,omitempty"`

	// 事件日志存储配置
	Storage *UserStorageConfig `json:"storage,omitempty"`

	// 密码学参数：哈希、秘密编码、订单号策略、树深度
	Crypto *UserCryptoConfig `json:"crypto,omitempty"`

	// 证明后端配置
	Prover *UserProverConfig `json:"prover,omitempty"`

	// 链上合约与 RPC 配置
	Chain *UserChainConfig `json:"chain,omitempty"`

	// 订单注册中心配置
	Registry *UserRegistryConfig `json:"registry,omitempty"`

	// 状态查询 API 配置
	API *UserAPIConfig `json:"api,omitempty"`

	// 交换编排配置
	Swap *UserSwapConfig `json:"swap,omitempty"`
}

// UserLogConfig 用户日志配置
type UserLogConfig struct {
	Level     *string `json:"level,omitempty"`      // 日志级别
	FilePath  *string `json:"file_path,omitempty"`  // 日志文件路径
	ToConsole *bool   `json:"to_console,omitempty"` // 是否输出到控制台
}

// UserStorageConfig 用户存储配置
type UserStorageConfig struct {
	Backend  *string `json:"backend,omitempty"`   // badger | redis | memory
	DataRoot *string `json:"data_root,omitempty"` // 数据根目录

	RedisAddr      *string `json:"redis_addr,omitempty"`
	RedisPassword  *string `json:"redis_password,omitempty"`
	RedisDB        *int    `json:"redis_db,omitempty"`
	RedisKeyPrefix *string `json:"redis_key_prefix,omitempty"`
}

// UserCryptoConfig 用户密码学配置
type UserCryptoConfig struct {
	Hash           *string `json:"hash,omitempty"`            // poseidon2 | poseidon
	SecretEncoding *string `json:"secret_encoding,omitempty"` // decimal | utf8-bytes
	OrderIDPolicy  *string `json:"order_id_policy,omitempty"` // reduce | reject
	TreeDepth      *int    `json:"tree_depth,omitempty"`      // Merkle 树深度
}

// UserProverConfig 用户证明后端配置
type UserProverConfig struct {
	Backend             *string `json:"backend,omitempty"` // groth16 | noir
	WorkDir             *string `json:"work_dir,omitempty"`
	NargoPath           *string `json:"nargo_path,omitempty"`
	BBPath              *string `json:"bb_path,omitempty"`
	InitiatorCircuitDir *string `json:"initiator_circuit_dir,omitempty"`
	ResponderCircuitDir *string `json:"responder_circuit_dir,omitempty"`
	TimeoutSeconds      *int    `json:"timeout_seconds,omitempty"`
}

// UserChainConfig 用户链配置
type UserChainConfig struct {
	RPCURL              *string `json:"rpc_url,omitempty"`
	ContractAddress     *string `json:"contract_address,omitempty"`
	TokenAddress        *string `json:"token_address,omitempty"`
	ChainID             *uint64 `json:"chain_id,omitempty"`
	StartBlock          *uint64 `json:"start_block,omitempty"`
	Confirmations       *uint64 `json:"confirmations,omitempty"`
	PollIntervalSeconds *int    `json:"poll_interval_seconds,omitempty"`
	PrivateKeyHex       *string `json:"private_key_hex,omitempty"`
}

// UserRegistryConfig 用户注册中心配置
type UserRegistryConfig struct {
	BaseURL        *string `json:"base_url,omitempty"`
	PollIntervalMs *int    `json:"poll_interval_ms,omitempty"`
	MinIntervalMs  *int    `json:"min_interval_ms,omitempty"`
	TimeoutSeconds *int    `json:"timeout_seconds,omitempty"`
	MaxRetries     *int    `json:"max_retries,omitempty"`
}

// UserAPIConfig 用户 API 配置
type UserAPIConfig struct {
	Enabled    *bool   `json:"enabled,omitempty"`
	ListenAddr *string `json:"listen_addr,omitempty"`
}

// UserSwapConfig 用户交换编排配置
type UserSwapConfig struct {
	EventBufferSize *int    `json:"event_buffer_size,omitempty"`
	Role            *string `json:"role,omitempty"`
	OrderID         *string `json:"order_id,omitempty"`
	SecretEnv       *string `json:"secret_env,omitempty"` // 读取私钥秘密的环境变量名
	Counterparty    *string `json:"counterparty,omitempty"`
	NonceEnv        *string `json:"nonce_env,omitempty"`
}
