package app

import (
	"github.com/ztomic/v1/pkg/interfaces/config"
	"github.com/ztomic/v1/pkg/types"
)

// Option 应用程序选项函数类型
type Option func(*options)

// options 应用程序选项
// 实现config.AppOptions接口
type options struct {
	// 配置文件路径
	configFilePath string

	// 用户配置（优先级高于configFilePath）
	appConfig *types.AppConfig

	// API支持开关 (默认跟随配置)
	enableAPI bool

	// 额外的fx选项，测试中用来替换链或注册中心
	extra []interface{}
}

// 编译时校验options是否实现了config.AppOptions接口
var _ config.AppOptions = (*options)(nil)

// WithConfigFile 设置配置文件路径
func WithConfigFile(configPath string) Option {
	return func(o *options) {
		o.configFilePath = configPath
	}
}

// WithAppConfig 直接使用已解析的配置，不再读取文件
func WithAppConfig(cfg *types.AppConfig) Option {
	return func(o *options) {
		o.appConfig = cfg
	}
}

// WithoutAPI 禁用API模块
func WithoutAPI() Option {
	return func(o *options) {
		o.enableAPI = false
	}
}

// WithInvoke 追加在启动时调用的函数
func WithInvoke(fns ...interface{}) Option {
	return func(o *options) {
		o.extra = append(o.extra, fns...)
	}
}

// newOptions 创建选项
func newOptions(opts ...Option) *options {
	options := &options{
		enableAPI: true,
	}

	// 应用自定义选项
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// GetAppConfig 返回应用程序配置
func (o *options) GetAppConfig() *types.AppConfig {
	if o.appConfig == nil {
		return &types.AppConfig{}
	}
	return o.appConfig
}
