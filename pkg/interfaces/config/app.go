// Package config provides application configuration interfaces.
package config

import "github.com/ztomic/v1/pkg/types"

// AppOptions 应用配置选项接口
// 提供从配置文件解析出的原始用户配置
type AppOptions interface {
	// GetAppConfig 获取应用配置
	GetAppConfig() *types.AppConfig
}
