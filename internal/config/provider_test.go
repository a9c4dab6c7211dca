package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ztomic/v1/internal/config/crypto"
	"github.com/ztomic/v1/pkg/types"
)

func TestGetCrypto(t *testing.T) {
	t.Run("未配置时使用默认值", func(t *testing.T) {
		opts := NewProvider(&types.AppConfig{}).GetCrypto()
		assert.Equal(t, crypto.HashPoseidon2, opts.Hash)
		assert.Equal(t, crypto.SecretEncodingDecimal, opts.SecretEncoding)
		assert.Equal(t, crypto.OrderIDPolicyReduce, opts.OrderIDPolicy)
		assert.Equal(t, 20, opts.TreeDepth)
		require.NoError(t, opts.Validate())
	})

	t.Run("用户配置覆盖默认值", func(t *testing.T) {
		cfg := &types.AppConfig{
			Crypto: &types.UserCryptoConfig{
				Hash:          types.StringPtr(crypto.HashPoseidon),
				OrderIDPolicy: types.StringPtr(crypto.OrderIDPolicyReject),
				TreeDepth:     types.IntPtr(3),
			},
		}
		opts := NewProvider(cfg).GetCrypto()
		assert.Equal(t, crypto.HashPoseidon, opts.Hash)
		assert.Equal(t, crypto.OrderIDPolicyReject, opts.OrderIDPolicy)
		assert.Equal(t, 3, opts.TreeDepth)
		require.NoError(t, opts.Validate())
	})

	t.Run("非法取值校验失败", func(t *testing.T) {
		cfg := &types.AppConfig{
			Crypto: &types.UserCryptoConfig{Hash: types.StringPtr("sha256")},
		}
		require.Error(t, NewProvider(cfg).GetCrypto().Validate())

		cfg = &types.AppConfig{
			Crypto: &types.UserCryptoConfig{TreeDepth: types.IntPtr(0)},
		}
		require.Error(t, NewProvider(cfg).GetCrypto().Validate())
	})
}

func TestGetStorageBackend(t *testing.T) {
	cases := []struct {
		name    string
		backend *string
		want    string
	}{
		{"未配置默认 badger", nil, StorageBadger},
		{"redis", types.StringPtr("redis"), StorageRedis},
		{"大小写不敏感", types.StringPtr("MEMORY"), StorageMemory},
		{"未知值回退 badger", types.StringPtr("sqlite"), StorageBadger},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &types.AppConfig{Storage: &types.UserStorageConfig{Backend: tc.backend}}
			assert.Equal(t, tc.want, NewProvider(cfg).GetStorageBackend())
		})
	}
}

func TestGetBadgerUsesDataDir(t *testing.T) {
	cfg := &types.AppConfig{DataDir: types.StringPtr("/tmp/ztomic")}
	assert.Equal(t, "/tmp/ztomic/badger", NewProvider(cfg).GetBadger().Path)
}

func TestGetRegistryAndProver(t *testing.T) {
	cfg := &types.AppConfig{
		Registry: &types.UserRegistryConfig{
			BaseURL:        types.StringPtr("http://registry:3000"),
			PollIntervalMs: types.IntPtr(100),
		},
		Prover: &types.UserProverConfig{
			Backend:        types.StringPtr("noir"),
			TimeoutSeconds: types.IntPtr(30),
		},
	}
	provider := NewProvider(cfg)

	reg := provider.GetRegistry()
	assert.Equal(t, "http://registry:3000", reg.BaseURL)
	assert.Equal(t, 100*time.Millisecond, reg.PollInterval)
	assert.Equal(t, 3, reg.MaxRetries)

	prv := provider.GetProver()
	assert.Equal(t, "noir", prv.Backend)
	assert.Equal(t, 30*time.Second, prv.Timeout)
	assert.Equal(t, "nargo", prv.NargoPath)
}

func TestNilAppConfig(t *testing.T) {
	provider := NewProvider(nil)
	assert.Equal(t, "info", provider.GetLog().Level)
	assert.True(t, provider.GetAPI().Enabled)
}
