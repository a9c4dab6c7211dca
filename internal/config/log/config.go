package log

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"

	configtypes "github.com/ztomic/v1/pkg/types"
)

// LevelEnv 覆盖配置文件中日志级别的环境变量
const LevelEnv = "ZTOMIC_LOG_LEVEL"

// LogOptions 日志配置选项
type LogOptions struct {
	Level     string `json:"level"`      // debug | info | warn | error
	ToConsole bool   `json:"to_console"` // 写 stderr
	FilePath  string `json:"file_path"`  // 为空时不写文件

	// lumberjack 轮转参数
	MaxSize    int  `json:"max_size"` // MB
	MaxBackups int  `json:"max_backups"`
	MaxAge     int  `json:"max_age"` // 天
	Compress   bool `json:"compress"`

	EnableCaller     bool `json:"enable_caller"`
	EnableStacktrace bool `json:"enable_stacktrace"`

	// 按 module 字段把基础设施日志与交换业务日志写到 FilePath 同目录的两个文件
	EnableMultiFile bool   `json:"enable_multi_file"`
	SystemLogFile   string `json:"system_log_file"`
	SwapLogFile     string `json:"swap_log_file"`
}

// Config 日志配置实现
type Config struct {
	options *LogOptions
}

// New 由用户配置创建，userConfig 可以是 *types.UserLogConfig 或 *LogOptions
func New(userConfig interface{}) *Config {
	options := &LogOptions{
		Level:            defaultLogLevel,
		ToConsole:        defaultToConsole,
		FilePath:         defaultFilePath,
		MaxSize:          defaultMaxSize,
		MaxBackups:       defaultMaxBackups,
		MaxAge:           defaultMaxAge,
		Compress:         defaultCompress,
		EnableCaller:     defaultEnableCaller,
		EnableStacktrace: defaultEnableStacktrace,
		EnableMultiFile:  defaultEnableMultiFile,
		SystemLogFile:    defaultSystemLogFile,
		SwapLogFile:      defaultSwapLogFile,
	}

	switch cfg := userConfig.(type) {
	case *configtypes.UserLogConfig:
		if cfg != nil {
			if cfg.Level != nil {
				options.Level = *cfg.Level
			}
			if cfg.FilePath != nil {
				options.FilePath = *cfg.FilePath
				// 写文件时默认不再写控制台
				options.ToConsole = false
			}
			if cfg.ToConsole != nil {
				options.ToConsole = *cfg.ToConsole
			}
		}
	case *LogOptions:
		if cfg != nil {
			*options = *cfg
		}
	}

	if env := os.Getenv(LevelEnv); env != "" {
		options.Level = env
	}
	return &Config{options: options}
}

// NewFromOptions 直接使用完整选项
func NewFromOptions(options *LogOptions) *Config {
	return New(options)
}

// NewFromProvider 从配置提供者创建日志配置
func NewFromProvider(provider interface{}) *Config {
	if p, ok := provider.(interface{ GetLog() *LogOptions }); ok {
		return New(p.GetLog())
	}
	return New(nil)
}

// GetOptions 获取完整的日志配置选项
func (c *Config) GetOptions() *LogOptions {
	return c.options
}

// GetZapLevel 未知级别按 info 处理
func (c *Config) GetZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(c.options.Level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func (c *Config) IsConsoleEnabled() bool { return c.options.ToConsole }
func (c *Config) GetFilePath() string { return c.options.FilePath }
func (c *Config) GetMaxSize() int { return c.options.MaxSize }
func (c *Config) GetMaxBackups() int { return c.options.MaxBackups }
func (c *Config) GetMaxAge() int { return c.options.MaxAge }
func (c *Config) IsCompressionEnabled() bool { return c.options.Compress }
func (c *Config) IsCallerEnabled() bool { return c.options.EnableCaller }
func (c *Config) IsStacktraceEnabled() bool { return c.options.EnableStacktrace }
func (c *Config) IsMultiFileEnabled() bool { return c.options.EnableMultiFile }
func (c *Config) GetSystemLogFile() string { return c.options.SystemLogFile }
func (c *Config) GetSwapLogFile() string { return c.options.SwapLogFile }

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
	}
}

// CreateFileEncoder 文件使用 JSON，每行一条
func (c *Config) CreateFileEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}

// CreateConsoleEncoder 控制台使用带颜色的文本格式
func (c *Config) CreateConsoleEncoder() zapcore.Encoder {
	cfg := encoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}
