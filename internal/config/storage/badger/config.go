package badger

import (
	"path/filepath"

	configtypes "github.com/ztomic/v1/pkg/types"
)

// BadgerOptions 事件存储的 BadgerDB 选项
type BadgerOptions struct {
	Path         string `json:"path"`
	SyncWrites   bool   `json:"sync_writes"`    // 每次提交 fsync，重启后不丢已确认事件
	MemTableSize int64  `json:"mem_table_size"` // 字节
	InMemory     bool   `json:"in_memory"`      // 仅测试使用
}

// Config BadgerDB 配置
type Config struct {
	options *BadgerOptions
}

// New 以默认值为底，配置了 storage.data_root 时数据库放在 {data_root}/badger
func New(userConfig interface{}) *Config {
	options := &BadgerOptions{
		Path:         defaultPath,
		SyncWrites:   defaultSyncWrites,
		MemTableSize: defaultMemTableSize,
		InMemory:     defaultInMemory,
	}
	if cfg, ok := userConfig.(*configtypes.UserStorageConfig); ok && cfg != nil && cfg.DataRoot != nil {
		options.Path = filepath.Join(*cfg.DataRoot, "badger")
	}
	return &Config{options: options}
}

// GetOptions 获取完整的 BadgerDB 配置选项
func (c *Config) GetOptions() *BadgerOptions {
	return c.options
}
