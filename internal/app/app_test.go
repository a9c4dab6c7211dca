package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ztomic/v1/internal/core/chain"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
	"github.com/ztomic/v1/pkg/types"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("文件不存在使用默认配置", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(dir, "missing.json"))
		require.NoError(t, err)
		require.NotNil(t, cfg)
		require.Nil(t, cfg.Chain)
	})

	t.Run("解析配置文件", func(t *testing.T) {
		path := filepath.Join(dir, "ok.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"chain":{"rpc_url":"sim"},"crypto":{"tree_depth":8}}`), 0o600))
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		require.Equal(t, "sim", *cfg.Chain.RPCURL)
		require.Equal(t, 8, *cfg.Crypto.TreeDepth)
	})

	t.Run("格式错误返回错误", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"chain":`), 0o600))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	require.Equal(t, defaultConfigPath, resolveConfigPath(""))

	t.Setenv(ConfigPathEnv, "/etc/ztomic.json")
	require.Equal(t, "/etc/ztomic.json", resolveConfigPath(""))
	require.Equal(t, "local.json", resolveConfigPath("local.json"))
}

func TestCreateDataDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &types.AppConfig{
		DataDir: types.StringPtr(filepath.Join(root, "data")),
		Log:     &types.UserLogConfig{FilePath: types.StringPtr(filepath.Join(root, "logs", "node.log"))},
	}
	require.NoError(t, createDataDirectories(cfg))
	require.DirExists(t, filepath.Join(root, "data"))
	require.DirExists(t, filepath.Join(root, "logs"))
}

func TestStartWithSimChain(t *testing.T) {
	cfg := &types.AppConfig{
		Log:     &types.UserLogConfig{Level: types.StringPtr("error")},
		Storage: &types.UserStorageConfig{Backend: types.StringPtr("memory")},
		Crypto:  &types.UserCryptoConfig{TreeDepth: types.IntPtr(8)},
		Chain:   &types.UserChainConfig{RPCURL: types.StringPtr(chain.SimURL)},
		API:     &types.UserAPIConfig{Enabled: types.BoolPtr(false)},
	}

	var source swapintf.EventSource
	app, err := Start(
		WithAppConfig(cfg),
		WithInvoke(func(src swapintf.EventSource) { source = src }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Stop()) })

	require.IsType(t, &chain.SimChain{}, source)
	require.NotNil(t, app.Orchestrator())
	require.Empty(t, app.Orchestrator().Sessions())
}
