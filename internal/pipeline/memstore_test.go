package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_RunsAreCopied(t *testing.T) {
	store := NewMemStore()
	store.PutRun(&BuildRun{ID: "b1", Status: StatusRunning})

	run, err := store.LoadRun(context.Background(), "b1")
	require.NoError(t, err)

	// Mutating the loaded copy must not change stored state.
	run.Status = StatusFailed

	again, err := store.LoadRun(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, again.Status)
}

func TestMemStore_UnknownKeys(t *testing.T) {
	store := NewMemStore()

	_, err := store.LoadRun(context.Background(), "missing")
	assert.ErrorContains(t, err, "run not found")

	_, err = store.LoadProfile(context.Background(), "missing")
	assert.ErrorContains(t, err, "profile not found")
}

func TestMemStore_MergeArtifact(t *testing.T) {
	store := NewMemStore()

	require.NoError(t, store.MergeArtifact(context.Background(), "b1", PhaseGeneration, "v1"))
	require.NoError(t, store.MergeArtifact(context.Background(), "b1", PhaseDeploy, "v2"))

	artifacts, err := store.Artifacts(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "v1", artifacts[PhaseGeneration])
	assert.Equal(t, "v2", artifacts[PhaseDeploy])

	// Overwrite replaces the single key, leaving the rest untouched.
	require.NoError(t, store.MergeArtifact(context.Background(), "b1", PhaseGeneration, "v3"))
	artifacts, err = store.Artifacts(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "v3", artifacts[PhaseGeneration])
	assert.Equal(t, "v2", artifacts[PhaseDeploy])
}

func TestMemStore_PhaseRecordsAppendInOrder(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.AppendPhaseRecord(context.Background(), &PhaseRecord{ID: "r1", BuildID: "b1", Phase: PhasePreflight}))
	require.NoError(t, store.AppendPhaseRecord(context.Background(), &PhaseRecord{ID: "r2", BuildID: "b1", Phase: PhaseAnalysis}))

	records := store.Records("b1")
	require.Len(t, records, 2)
	assert.Equal(t, PhasePreflight, records[0].Phase)
	assert.Equal(t, PhaseAnalysis, records[1].Phase)
}

func TestPhasesFor(t *testing.T) {
	build := PhasesFor(KindBuild)
	assert.Len(t, build, 15)
	assert.True(t, build[5].Gate)
	assert.True(t, build[12].Gate)

	content := PhasesFor(KindContent)
	assert.Len(t, content, 7)
	assert.True(t, content[1].Gate)
	assert.True(t, content[3].Gate)

	// Unknown kinds default to the build pipeline.
	assert.Len(t, PhasesFor(Kind("bogus")), 15)

	for i, phase := range build {
		assert.Equal(t, i, phase.Order)
	}
}
