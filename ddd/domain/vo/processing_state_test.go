package vo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessingStateTransitions(t *testing.T) {
	cases := []struct {
		from    ProcessingState
		to      ProcessingState
		allowed bool
	}{
		{StatePending, StateQueued, true},
		{StatePending, StateFailed, true},
		{StatePending, StateProcessing, false},
		{StateQueued, StateProcessing, true},
		{StateQueued, StateFailed, true},
		{StateQueued, StateReady, false},
		{StateProcessing, StateReady, true},
		{StateProcessing, StateFailed, true},
		{StateProcessing, StateQueued, false},
		{StateFailed, StateQueued, true},
		{StateFailed, StateFailed, true},
		{StateFailed, StateProcessing, false},
		{StateReady, StateQueued, false},
		{StateReady, StateProcessing, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransitionTo(c.to),
			"%s -> %s", c.from, c.to)
	}
}

func TestProcessingStateValidity(t *testing.T) {
	for _, s := range []ProcessingState{StatePending, StateQueued, StateProcessing, StateReady, StateFailed} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, ProcessingState("cancelled").IsValid())
}

func TestProcessingStateTerminal(t *testing.T) {
	assert.True(t, StateReady.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateQueued.IsTerminal())
	assert.False(t, StateProcessing.IsTerminal())
}

func TestParseJobKind(t *testing.T) {
	k, ok := ParseJobKind("build_renditions")
	assert.True(t, ok)
	assert.Equal(t, JobKindBuildRenditions, k)

	_, ok = ParseJobKind("upscale")
	assert.False(t, ok)
}

func TestMetadataJobDoesNotDriveStateMachine(t *testing.T) {
	assert.False(t, JobKindMetadata.DrivesStateMachine())
	assert.True(t, JobKindPrepareStream.DrivesStateMachine())
	assert.True(t, JobKindBuildRenditions.DrivesStateMachine())
	assert.True(t, JobKindHLS.DrivesStateMachine())
}
