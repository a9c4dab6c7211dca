package log

const (
	defaultLogLevel  = "info"
	defaultToConsole = true
	defaultFilePath  = "" // 只写控制台

	// lumberjack：100MB 一个文件，保留 10 个或 30 天
	defaultMaxSize    = 100
	defaultMaxBackups = 10
	defaultMaxAge     = 30
	defaultCompress   = true

	defaultEnableCaller     = true
	defaultEnableStacktrace = true

	// storage、chain、registry 等写 system 文件，swap、zkproof、ledger 写 swap 文件
	defaultEnableMultiFile = true
	defaultSystemLogFile   = "ztomic-system.log"
	defaultSwapLogFile     = "ztomic-swap.log"
)
