package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	configpkg "github.com/ztomic/v1/internal/config"
	"github.com/ztomic/v1/internal/core/infrastructure/storage/badger"
	"github.com/ztomic/v1/internal/core/infrastructure/storage/memory"
	"github.com/ztomic/v1/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestCreateStorageServices(t *testing.T) {
	cases := []struct {
		name    string
		backend *string
		want    string
	}{
		{"内存后端", strPtr("memory"), configpkg.StorageMemory},
		{"默认回退到badger", nil, configpkg.StorageBadger},
		{"未知值回退到badger", strPtr("sqlite"), configpkg.StorageBadger},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dataRoot := t.TempDir()
			provider := configpkg.NewProvider(&types.AppConfig{
				Storage: &types.UserStorageConfig{Backend: tc.backend, DataRoot: &dataRoot},
			})

			out, err := CreateStorageServices(ServiceInput{Provider: provider})
			require.NoError(t, err)
			defer out.EventStore.Close()
			require.Equal(t, tc.want, out.Backend)

			switch tc.want {
			case configpkg.StorageMemory:
				require.IsType(t, &memory.Store{}, out.EventStore)
			case configpkg.StorageBadger:
				require.IsType(t, &badger.Store{}, out.EventStore)
			}

			require.NoError(t, out.EventStore.SetCheckpoint(context.Background(), 3))
		})
	}
}

func TestCreateStorageServicesRequiresProvider(t *testing.T) {
	_, err := CreateStorageServices(ServiceInput{})
	require.Error(t, err)
}
