package tokens_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofleet/gitfleet/internal/domain/provider"
	"github.com/repofleet/gitfleet/internal/infrastructure/tokens"
)

func TestManager_GetNextAvailableToken_RoundRobins(t *testing.T) {
	m := tokens.NewManager()
	m.AddToken("tok-a", provider.GitHub)
	m.AddToken("tok-b", provider.GitHub)

	first, ok := m.GetNextAvailableToken(provider.GitHub)
	require.True(t, ok)
	second, ok := m.GetNextAvailableToken(provider.GitHub)
	require.True(t, ok)
	third, ok := m.GetNextAvailableToken(provider.GitHub)
	require.True(t, ok)

	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, first.Token, third.Token)
}

func TestManager_UpdateRateLimit_TransitionsToRateLimited(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	m := tokens.NewManagerWithClock(func() time.Time { return now })
	m.AddToken("tok-a", provider.GitHub)

	m.UpdateRateLimit("tok-a", provider.GitHub, 0, now.Add(time.Hour).Unix())

	snap := m.Snapshot(provider.GitHub)
	require.Len(t, snap, 1)
	assert.Equal(t, provider.TokenRateLimited, snap[0].Status)
}

func TestManager_GetNextAvailableToken_FallsBackToEarliestReset(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	m := tokens.NewManagerWithClock(func() time.Time { return now })
	m.AddToken("tok-a", provider.GitHub)
	m.AddToken("tok-b", provider.GitHub)

	m.UpdateRateLimit("tok-a", provider.GitHub, 0, now.Add(2*time.Hour).Unix())
	m.UpdateRateLimit("tok-b", provider.GitHub, 0, now.Add(time.Hour).Unix())

	next, ok := m.GetNextAvailableToken(provider.GitHub)
	require.True(t, ok)
	assert.Equal(t, "tok-b", next.Token)
}

func TestManager_UpdateRateLimit_RecoversAfterResetTimePasses(t *testing.T) {
	current := time.Unix(1_000_000, 0)
	m := tokens.NewManagerWithClock(func() time.Time { return current })
	m.AddToken("tok-a", provider.GitHub)
	m.UpdateRateLimit("tok-a", provider.GitHub, 0, current.Add(time.Minute).Unix())

	current = current.Add(2 * time.Minute)

	next, ok := m.GetNextAvailableToken(provider.GitHub)
	require.True(t, ok)
	assert.Equal(t, provider.TokenActive, next.Status)
}

func TestManager_MarkTokenInvalid_IsTerminal(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	m := tokens.NewManagerWithClock(func() time.Time { return now })
	m.AddToken("tok-a", provider.GitHub)

	m.MarkTokenInvalid("tok-a", provider.GitHub)
	m.UpdateRateLimit("tok-a", provider.GitHub, 5000, now.Add(time.Hour).Unix())

	snap := m.Snapshot(provider.GitHub)
	require.Len(t, snap, 1)
	assert.Equal(t, provider.TokenInvalid, snap[0].Status)

	_, ok := m.GetNextAvailableToken(provider.GitHub)
	assert.False(t, ok)
}

func TestManager_GetNextAvailableToken_EmptyPool(t *testing.T) {
	m := tokens.NewManager()
	_, ok := m.GetNextAvailableToken(provider.GitLab)
	assert.False(t, ok)
}

func TestManager_AddToken_Idempotent(t *testing.T) {
	m := tokens.NewManager()
	m.AddToken("tok-a", provider.GitHub)
	m.AddToken("tok-a", provider.GitHub)

	assert.Len(t, m.Snapshot(provider.GitHub), 1)
}
