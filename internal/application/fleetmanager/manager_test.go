package fleetmanager_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofleet/gitfleet/internal/application/fleetmanager"
	"github.com/repofleet/gitfleet/internal/infrastructure/logging"
)

func TestNew_SeedsRegistryFromURLs(t *testing.T) {
	m, err := fleetmanager.New(
		[]string{"https://example.com/a.git", "https://example.com/a.git", "https://example.com/b.git"},
		fleetmanager.Config{Logger: logging.NewNoOpLogger()},
	)
	require.NoError(t, err)
	defer m.Close()

	tasks := m.FetchCloneTasks()
	assert.Len(t, tasks, 2)
}

func TestClone_RejectsUnregisteredURL(t *testing.T) {
	m, err := fleetmanager.New(nil, fleetmanager.Config{Logger: logging.NewNoOpLogger()})
	require.NoError(t, err)
	defer m.Close()

	err = m.Clone(t.Context(), "https://example.com/unknown.git")
	assert.Error(t, err)
}

func TestCleanup_IsIdempotentForUnclonedTasks(t *testing.T) {
	m, err := fleetmanager.New([]string{"https://example.com/a.git"}, fleetmanager.Config{Logger: logging.NewNoOpLogger()})
	require.NoError(t, err)
	defer m.Close()

	results := m.Cleanup()
	assert.Equal(t, true, results["https://example.com/a.git"])
}

func TestDestinationPath_JoinsBaseDir(t *testing.T) {
	m, err := fleetmanager.New(nil, fleetmanager.Config{Logger: logging.NewNoOpLogger(), BaseDir: "/tmp/fleet"})
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, "/tmp/fleet/myrepo", m.DestinationPath("myrepo"))
}
