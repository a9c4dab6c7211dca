package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	logconfig "github.com/ztomic/v1/internal/config/log"
)

func TestModuleRoutingCore_RoutesByModuleField(t *testing.T) {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{MessageKey: "message", LevelKey: "level"})

	var sysBuf, swapBuf bytes.Buffer
	sysCore := zapcore.NewCore(enc, zapcore.AddSync(&sysBuf), zapcore.DebugLevel)
	swapCore := zapcore.NewCore(enc, zapcore.AddSync(&swapBuf), zapcore.DebugLevel)
	core := &moduleRoutingCore{
		systemCore:   sysCore,
		swapCore:     swapCore,
		fallbackCore: zapcore.NewTee(sysCore, swapCore),
	}
	entry := zapcore.Entry{Message: "hello", Level: zapcore.InfoLevel}

	t.Run("基础设施模块只写 system", func(t *testing.T) {
		sysBuf.Reset()
		swapBuf.Reset()
		require.NoError(t, core.Write(entry, []zapcore.Field{zap.String("module", "chain")}))
		require.NotZero(t, sysBuf.Len())
		require.Zero(t, swapBuf.Len())
	})

	t.Run("业务模块只写 swap", func(t *testing.T) {
		sysBuf.Reset()
		swapBuf.Reset()
		require.NoError(t, core.Write(entry, []zapcore.Field{zap.String("module", "zkproof")}))
		require.Zero(t, sysBuf.Len())
		require.NotZero(t, swapBuf.Len())
	})

	t.Run("无 module 字段写两个文件", func(t *testing.T) {
		sysBuf.Reset()
		swapBuf.Reset()
		require.NoError(t, core.Write(entry, nil))
		require.NotZero(t, sysBuf.Len())
		require.NotZero(t, swapBuf.Len())
	})

	t.Run("With 附加的 module 同样生效", func(t *testing.T) {
		sysBuf.Reset()
		swapBuf.Reset()
		routed := core.With([]zapcore.Field{zap.String("module", "ledger")})
		require.NoError(t, routed.Write(entry, nil))
		require.Zero(t, sysBuf.Len())
		require.NotZero(t, swapBuf.Len())
	})
}

func TestFileLoggerSplitsByModule(t *testing.T) {
	dir := t.TempDir()
	cfg := logconfig.NewFromOptions(&logconfig.LogOptions{
		Level:           DebugLevel,
		FilePath:        filepath.Join(dir, "ztomic.log"),
		MaxSize:         1,
		EnableMultiFile: true,
		SystemLogFile:   "system.log",
		SwapLogFile:     "swap.log",
	})

	logger, err := New(cfg)
	require.NoError(t, err)

	NewModuleLogger(logger, "storage").Info("事件已落盘")
	NewModuleLogger(logger, "swap").With("swap_id", "s-1").Info("状态迁移")
	require.NoError(t, logger.Sync())

	system, err := os.ReadFile(filepath.Join(dir, "system.log"))
	require.NoError(t, err)
	swap, err := os.ReadFile(filepath.Join(dir, "swap.log"))
	require.NoError(t, err)

	require.Contains(t, string(system), "事件已落盘")
	require.NotContains(t, string(system), "状态迁移")
	require.Contains(t, string(swap), "状态迁移")

	line := strings.TrimSpace(strings.Split(string(swap), "\n")[0])
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	require.Equal(t, "s-1", entry["swap_id"])
	require.Equal(t, "swap", entry["module"])
}

func TestNewModuleLoggerNilBase(t *testing.T) {
	l := NewModuleLogger(nil, "swap")
	require.NotNil(t, l)
	l.Info("不会输出")
}
