package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	require.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(eventsCounter.WithLabelValues("deposit", "applied"))
	IncEvent("deposit", "applied")
	IncEvent("deposit", "applied")
	require.Equal(t, before+2, testutil.ToFloat64(eventsCounter.WithLabelValues("deposit", "applied")))

	SetTreeLeaves(5)
	require.Equal(t, float64(5), testutil.ToFloat64(treeLeavesGauge))

	SetPendingDeposits(2)
	require.Equal(t, float64(2), testutil.ToFloat64(pendingDepositsGauge))
}

func TestObserveProof(t *testing.T) {
	ObserveProof("initiator", "groth16", time.Second, nil)
	ObserveProof("initiator", "groth16", time.Second, errors.New("boom"))

	require.Equal(t, 2, testutil.CollectAndCount(proofDuration))
}
