package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloning_RejectsOutOfRangeProgress(t *testing.T) {
	_, err := NewCloning(101)
	require.Error(t, err)

	_, err = NewCloning(-1)
	require.Error(t, err)

	s, err := NewCloning(0)
	require.NoError(t, err)
	p, ok := s.Progress()
	assert.True(t, ok)
	assert.Equal(t, 0, p)
}

func TestNewFailed_RejectsEmptyReason(t *testing.T) {
	_, err := NewFailed("")
	require.Error(t, err)

	s, err := NewFailed("boom")
	require.NoError(t, err)
	msg, ok := s.Error()
	assert.True(t, ok)
	assert.Equal(t, "boom", msg)
}

func TestCanTransition_LegalDAG(t *testing.T) {
	queued := NewQueued()
	cloning0 := MustCloning(0)
	cloning50 := MustCloning(50)
	cloning40 := MustCloning(40)
	completed := NewCompleted()
	failed := MustFailed("nope")

	assert.True(t, CanTransition(queued, cloning0))
	assert.True(t, CanTransition(cloning0, cloning50))
	assert.True(t, CanTransition(cloning50, cloning50))
	assert.False(t, CanTransition(cloning50, cloning40), "progress must not decrease")
	assert.True(t, CanTransition(cloning50, completed))
	assert.True(t, CanTransition(cloning0, failed))
	assert.False(t, CanTransition(queued, completed), "must pass through Cloning")
	assert.False(t, CanTransition(completed, cloning0), "Completed is terminal")
	assert.True(t, CanTransition(failed, cloning0), "Failed is retryable into Cloning")
}

func TestParseFlatStatus_RejectsInvalidCombinations(t *testing.T) {
	progress := 50
	errMsg := "boom"

	_, err := ParseFlatStatus(FlatStatus{Tag: "cloning"})
	assert.Error(t, err, "cloning without progress is invalid")

	_, err = ParseFlatStatus(FlatStatus{Tag: "failed"})
	assert.Error(t, err, "failed without error is invalid")

	_, err = ParseFlatStatus(FlatStatus{Tag: "queued", Progress: &progress})
	assert.Error(t, err, "queued must not carry progress")

	_, err = ParseFlatStatus(FlatStatus{Tag: "completed", Error: &errMsg})
	assert.Error(t, err, "completed must not carry error")

	s, err := ParseFlatStatus(FlatStatus{Tag: "cloning", Progress: &progress})
	require.NoError(t, err)
	p, ok := s.Progress()
	assert.True(t, ok)
	assert.Equal(t, 50, p)
}

func TestFlatten_RoundTrips(t *testing.T) {
	for _, s := range []CloneStatus{NewQueued(), MustCloning(33), NewCompleted(), MustFailed("x")} {
		flat := s.Flatten()
		back, err := ParseFlatStatus(flat)
		require.NoError(t, err)
		assert.Equal(t, s, back)
	}
}
