package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRunLifecycle(t *testing.T) {
	j := newTestJournal(t)

	require.NoError(t, j.StartRun("run-1", "m5d.metal/6.1.82", 5))

	run, err := j.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "m5d.metal/6.1.82", run.Environment)
	assert.Equal(t, 5, run.TrialCount)
	assert.Equal(t, 0, run.Completed)
	assert.True(t, run.FinishedAt.IsZero())

	require.NoError(t, j.FinishRun("run-1", 4, 1))

	run, err = j.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, 4, run.Completed)
	assert.Equal(t, 1, run.Failed)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestGetRunUnknown(t *testing.T) {
	j := newTestJournal(t)

	run, err := j.GetRun("nope")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestFinishRunUnknown(t *testing.T) {
	j := newTestJournal(t)

	err := j.FinishRun("nope", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown run")
}

func TestRecordAndListTrials(t *testing.T) {
	j := newTestJournal(t)
	require.NoError(t, j.StartRun("run-1", "unknown/6.1.82", 3))

	require.NoError(t, j.RecordTrial("run-1", 1, true, 120*time.Millisecond, "/r/1", ""))
	require.NoError(t, j.RecordTrial("run-1", 3, true, 98*time.Millisecond, "/r/3", ""))
	require.NoError(t, j.RecordTrial("run-1", 2, false, 5*time.Millisecond, "", "exit status 1"))

	trials, err := j.ListTrials("run-1")
	require.NoError(t, err)
	require.Len(t, trials, 3)

	assert.Equal(t, 1, trials[0].Index)
	assert.Equal(t, 2, trials[1].Index)
	assert.Equal(t, 3, trials[2].Index)

	assert.True(t, trials[0].OK)
	assert.Equal(t, 120*time.Millisecond, trials[0].Duration)
	assert.Equal(t, "/r/1", trials[0].Artifact)

	assert.False(t, trials[1].OK)
	assert.Equal(t, "exit status 1", trials[1].Error)
}

func TestRecordTrialDuplicateIndex(t *testing.T) {
	j := newTestJournal(t)
	require.NoError(t, j.StartRun("run-1", "", 1))

	require.NoError(t, j.RecordTrial("run-1", 1, true, time.Millisecond, "/r/1", ""))
	assert.Error(t, j.RecordTrial("run-1", 1, true, time.Millisecond, "/r/1", ""))
}

func TestListTrialsEmpty(t *testing.T) {
	j := newTestJournal(t)

	trials, err := j.ListTrials("run-1")
	require.NoError(t, err)
	assert.Empty(t, trials)
}
