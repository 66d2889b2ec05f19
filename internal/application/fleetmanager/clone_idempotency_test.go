package fleetmanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofleet/gitfleet/internal/domain/fleet"
	"github.com/repofleet/gitfleet/internal/infrastructure/logging"
)

// Internal (white-box) tests for Clone's idempotency contract, spec
// §4.2: they drive the registry directly into Cloning/Completed/Failed
// states rather than performing a real network clone.

func TestClone_OnCompletedTaskIsANoOp(t *testing.T) {
	url := "https://example.com/a.git"
	m, err := New([]string{url}, Config{Logger: logging.NewNoOpLogger()})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.registry.Transition(url, fleet.MustCloning(0)))
	require.NoError(t, m.registry.SetTempDir(url, "/tmp/already-there"))
	require.NoError(t, m.registry.Transition(url, fleet.NewCompleted()))

	require.NoError(t, m.Clone(context.Background(), url))

	task, ok := m.registry.Get(url)
	require.True(t, ok)
	assert.Equal(t, "/tmp/already-there", task.TempDir, "a no-op Clone must not touch the existing temp dir")
}

func TestClone_OnCloningTaskJoinsInFlightOperation(t *testing.T) {
	url := "https://example.com/a.git"
	m, err := New([]string{url}, Config{Logger: logging.NewNoOpLogger()})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.registry.Transition(url, fleet.MustCloning(0)))

	var wg sync.WaitGroup
	var joinErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		joinErr = m.Clone(context.Background(), url)
	}()

	time.Sleep(3 * joinPollInterval)
	require.NoError(t, m.registry.Transition(url, fleet.NewCompleted()))
	wg.Wait()

	assert.NoError(t, joinErr, "joining a task that completes must not error")
}

func TestClone_OnCloningTaskJoinsAndSurfacesFailure(t *testing.T) {
	url := "https://example.com/a.git"
	m, err := New([]string{url}, Config{Logger: logging.NewNoOpLogger()})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.registry.Transition(url, fleet.MustCloning(0)))

	var wg sync.WaitGroup
	var joinErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		joinErr = m.Clone(context.Background(), url)
	}()

	time.Sleep(3 * joinPollInterval)
	require.NoError(t, m.registry.Transition(url, fleet.MustFailed("remote hung up")))
	wg.Wait()

	assert.Error(t, joinErr, "joining a task that fails must surface the failure")
}

func TestClone_OnCloningTaskRespectsContextCancellation(t *testing.T) {
	url := "https://example.com/a.git"
	m, err := New([]string{url}, Config{Logger: logging.NewNoOpLogger()})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.registry.Transition(url, fleet.MustCloning(0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.Clone(ctx, url)
	assert.Error(t, err)
}

func TestFailed_IsRetryableIntoCloning(t *testing.T) {
	// Failed must remain re-enterable via Cloning so Clone can retry a
	// failed task from scratch with a fresh temp dir (spec §4.2);
	// Completed alone is the terminal state.
	assert.True(t, fleet.CanTransition(fleet.MustFailed("boom"), fleet.MustCloning(0)))
	assert.False(t, fleet.CanTransition(fleet.NewCompleted(), fleet.MustCloning(0)))
}
