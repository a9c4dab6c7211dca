package badger

// BadgerDB 事件日志存储默认配置值

const (
	// defaultPath 默认数据库路径（相对 data_root）
	defaultPath = "./data/badger"

	// defaultSyncWrites 事件日志是重建 Merkle 树的唯一来源，默认同步写入
	defaultSyncWrites = true

	// defaultMemTableSize 事件日志体量小，16MB 足够
	defaultMemTableSize = 16 << 20

	// defaultInMemory 默认落盘
	defaultInMemory = false
)
