package application

import (
	"math"
	"testing"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestQuoteFee(t *testing.T) {
	fixtures := []struct {
		amount      uint64
		bps         uint64
		expectedFee uint64
	}{
		{999, 10, 0},
		{1000, 10, 1},
		{1999, 10, 1},
		{2000, 10, 2},
		{123456, 10, 123},
		{5000, 0, 0},
		{5000, domain.MaxFeeBasisPoints, 5000},
		{1, 9999, 0},
		{math.MaxUint64, 1, math.MaxUint64 / 10000},
		{math.MaxUint64, domain.MaxFeeBasisPoints, math.MaxUint64},
	}

	for _, f := range fixtures {
		fee, net := quoteFee(f.amount, f.bps)
		require.Equal(t, f.expectedFee, fee, "amount %d bps %d", f.amount, f.bps)
		require.Equal(t, f.amount, fee+net)
	}
}

func TestConfirmationEngine(t *testing.T) {
	engine := newConfirmationEngine(domain.Settings{
		ChallengeThreshold:    1000,
		RequiredConfirmations: 3,
	})

	require.True(t, engine.finalizesImmediately(999))
	require.False(t, engine.finalizesImmediately(1000))
	require.False(t, engine.reachedQuorum(2))
	require.True(t, engine.reachedQuorum(3))
	require.True(t, engine.reachedQuorum(4))

	engine = newConfirmationEngine(domain.Settings{RequiredConfirmations: 1})
	require.False(t, engine.finalizesImmediately(0))
	require.True(t, engine.reachedQuorum(1))
}
