package fleet

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Initialize_DeduplicatesURLs(t *testing.T) {
	r := NewRegistry()
	r.Initialize([]string{"https://x/a.git", "https://x/a.git", "https://x/b.git"})

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, StatusQueued, snap["https://x/a.git"].Status.Kind())
	assert.Empty(t, snap["https://x/a.git"].TempDir)
}

func TestRegistry_Transition_EnforcesDAG(t *testing.T) {
	r := NewRegistry()
	r.Initialize([]string{"https://x/a.git"})

	require.NoError(t, r.Transition("https://x/a.git", MustCloning(0)))
	require.NoError(t, r.Transition("https://x/a.git", MustCloning(50)))
	err := r.Transition("https://x/a.git", MustCloning(10))
	assert.Error(t, err, "progress must not go backwards")

	require.NoError(t, r.Transition("https://x/a.git", NewCompleted()))
	err = r.Transition("https://x/a.git", MustCloning(0))
	assert.Error(t, err, "Completed is terminal")
}

func TestRegistry_SetTempDir_OnlyOnce(t *testing.T) {
	r := NewRegistry()
	r.Initialize([]string{"https://x/a.git"})
	require.NoError(t, r.Transition("https://x/a.git", MustCloning(0)))
	require.NoError(t, r.Transition("https://x/a.git", NewCompleted()))

	require.NoError(t, r.SetTempDir("https://x/a.git", "/tmp/a"))
	err := r.SetTempDir("https://x/a.git", "/tmp/other")
	assert.Error(t, err)

	task, ok := r.Get("https://x/a.git")
	require.True(t, ok)
	assert.Equal(t, "/tmp/a", task.TempDir)
}

func TestRegistry_SnapshotIsADeepCopy(t *testing.T) {
	r := NewRegistry()
	r.Initialize([]string{"https://x/a.git"})

	snap := r.Snapshot()
	snap["https://x/a.git"].Status = MustCloning(99)

	fresh, _ := r.Get("https://x/a.git")
	assert.Equal(t, StatusQueued, fresh.Status.Kind(), "mutating a snapshot must not affect the registry")
}

func TestRegistry_ConcurrentTransitions(t *testing.T) {
	r := NewRegistry()
	urls := []string{"https://x/a.git", "https://x/b.git", "https://x/c.git"}
	r.Initialize(urls)

	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			_ = r.Transition(url, MustCloning(0))
			for p := 10; p <= 100; p += 10 {
				_ = r.Transition(url, MustCloning(p))
			}
			_ = r.Transition(url, NewCompleted())
		}(u)
	}
	wg.Wait()

	for _, task := range r.Snapshot() {
		assert.Equal(t, StatusCompleted, task.Status.Kind())
	}
}
