package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/qsched/internal/job"
)

func TestResultStore(t *testing.T) {
	s := newResultStore(2)
	assert.True(t, s.pending("a"))
	assert.True(t, s.pending("b"))
	s.finish(&job.Result{JobID: "a"})

	res, done, ok := s.get("a")
	assert.True(t, ok)
	assert.True(t, done)
	assert.Equal(t, "a", res.JobID)

	s.pending("c")
	_, _, ok = s.get("a")
	assert.False(t, ok, "oldest entry evicted")

	s.finish(&job.Result{JobID: "a"})
	_, _, ok = s.get("a")
	assert.False(t, ok, "evicted results are not resurrected")

	s.forget("b")
	_, _, ok = s.get("b")
	assert.False(t, ok)
	assert.Equal(t, []string{"c"}, s.order)
}

func TestResultStore_ReusedID(t *testing.T) {
	s := newResultStore(4)
	require.True(t, s.pending("a"))
	assert.False(t, s.pending("a"), "pending ids cannot be reused")

	first := &job.Result{JobID: "a"}
	s.finish(first)
	assert.False(t, s.pending("a"), "finished ids cannot be reused")

	s.forget("a")
	res, done, ok := s.get("a")
	require.True(t, ok)
	assert.True(t, done)
	assert.Same(t, first, res)
	assert.Equal(t, []string{"a"}, s.order)
}
