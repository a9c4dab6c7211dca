package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ztomic/v1/internal/core/infrastructure/storage/storagetest"
	swapintf "github.com/ztomic/v1/pkg/interfaces/swap"
)

func TestEventStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) swapintf.EventStore {
		return New(nil)
	})
}

func TestClosedStoreRejectsWrites(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "重复关闭无副作用")

	require.Error(t, s.PutDeposit(context.Background(), storagetest.Deposit(0, 1)))
	_, err := s.Deposits(context.Background())
	require.Error(t, err)
}
