package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	badgerconfig "github.com/ztomic/v1/internal/config/storage/badger"
	"github.com/ztomic/v1/internal/core/infrastructure/storage/storagetest"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

func newInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := New(&badgerconfig.BadgerOptions{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEventStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) swapintf.EventStore {
		return newInMemory(t)
	})
}

func TestReopenKeepsEvents(t *testing.T) {
	ctx := context.Background()
	opts := &badgerconfig.BadgerOptions{Path: t.TempDir(), SyncWrites: true}

	s, err := New(opts, nil)
	require.NoError(t, err)
	require.NoError(t, s.PutDeposit(ctx, storagetest.Deposit(1, 11)))
	require.NoError(t, s.PutDeposit(ctx, storagetest.Deposit(0, 10)))
	require.NoError(t, s.SetCheckpoint(ctx, 77))
	require.NoError(t, s.Close())

	reopened, err := New(opts, nil)
	require.NoError(t, err)
	defer reopened.Close()

	deposits, err := reopened.Deposits(ctx)
	require.NoError(t, err)
	require.Len(t, deposits, 2)
	require.Equal(t, uint64(0), deposits[0].LeafIndex)

	cp, err := reopened.Checkpoint(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(77), cp)
}

func TestWritesRejectedAfterClose(t *testing.T) {
	s, err := New(&badgerconfig.BadgerOptions{InMemory: true}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Error(t, s.SetCheckpoint(context.Background(), 1))
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
	_, err = New(&badgerconfig.BadgerOptions{}, nil)
	require.Error(t, err)
}
