package tickers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/logger"
)

func TestUniverse_SeededWithFallback(t *testing.T) {
	u := NewUniverse(contracts.NewMockVenue(), logger.NewNop())

	assert.True(t, u.Contains("TSLA"))
	assert.True(t, u.Stale(), "fallback snapshot counts as stale")
}

func TestUniverse_RefreshReplacesSnapshot(t *testing.T) {
	venue := contracts.NewMockVenue()
	venue.Supported = []string{"aapl", "NVDA"}

	u := NewUniverse(venue, logger.NewNop())
	require.NoError(t, u.Refresh(context.Background()))

	assert.False(t, u.Stale())
	assert.True(t, u.Contains("AAPL"), "symbols are normalized on refresh")
	assert.True(t, u.Contains("NVDA"))
	assert.False(t, u.Contains("TSLA"), "fallback entries are gone after a real refresh")
}

func TestUniverse_FailedRefreshKeepsStaleSnapshot(t *testing.T) {
	venue := contracts.NewMockVenue()
	venue.Supported = []string{"AAPL"}

	u := NewUniverse(venue, logger.NewNop())
	require.NoError(t, u.Refresh(context.Background()))
	require.False(t, u.Stale())

	venue.SupportedErr = errors.New("venue down")
	err := u.Refresh(context.Background())

	assert.Error(t, err)
	assert.True(t, u.Stale())
	assert.True(t, u.Contains("AAPL"), "previous snapshot keeps serving")
}

func TestUniverse_FilterPreservesOrder(t *testing.T) {
	venue := contracts.NewMockVenue()
	venue.Supported = []string{"AAPL", "TSLA", "NVDA"}

	u := NewUniverse(venue, logger.NewNop())
	require.NoError(t, u.Refresh(context.Background()))

	got := u.Filter([]string{"TSLA", "UNKNOWN", "AAPL"})
	assert.Equal(t, []string{"TSLA", "AAPL"}, got)
}
