package stepsynth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsariola/stepsynth"
)

func TestStepsGrowOnlyWhenSet(t *testing.T) {
	var s stepsynth.Steps
	s.Set(5, false)
	assert.Len(t, s, 0)
	s.Set(3, true)
	assert.Equal(t, stepsynth.Steps{false, false, false, true}, s)
	assert.False(t, s.Get(10))
	assert.False(t, s.Get(-1))
	assert.Equal(t, []int{3}, s.Active())
}

func TestToggleIsSelfInverse(t *testing.T) {
	p := stepsynth.NewPattern(2)
	require.NoError(t, p.Toggle(1, 6))
	assert.True(t, p.Active(1, 6))
	assert.False(t, p.Active(0, 6))
	require.NoError(t, p.Toggle(1, 6))
	assert.False(t, p.Active(1, 6))
	assert.Equal(t, make([]bool, 8), p.Track(1, 8))
}

func TestToggleOutOfRange(t *testing.T) {
	p := stepsynth.NewPattern(2)
	assert.ErrorIs(t, p.Toggle(2, 0), stepsynth.ErrRange)
	assert.ErrorIs(t, p.Toggle(-1, 0), stepsynth.ErrRange)
	assert.ErrorIs(t, p.Toggle(0, -1), stepsynth.ErrRange)
	assert.ErrorIs(t, p.Set(5, nil), stepsynth.ErrRange)
	assert.False(t, p.Active(7, 0))
	assert.Nil(t, p.Steps(7))
	assert.Equal(t, make([]bool, 3), p.Track(7, 3))
}

func TestTrackIsACopy(t *testing.T) {
	p := stepsynth.NewPattern(1)
	require.NoError(t, p.Toggle(0, 1))
	held := p.Steps(0)
	track := p.Track(0, 4)
	require.NoError(t, p.Toggle(0, 2))
	assert.Equal(t, stepsynth.Steps{false, true}, held)
	assert.Equal(t, []bool{false, true, false, false}, track)
	assert.Equal(t, []bool{false, true, true}, p.Track(0, 3))
	assert.Equal(t, []bool{false}, p.Track(0, 1))
}

func TestSetCopiesSteps(t *testing.T) {
	p := stepsynth.NewPattern(1)
	steps := stepsynth.Steps{true, false, true}
	require.NoError(t, p.Set(0, steps))
	steps[0] = false
	assert.True(t, p.Active(0, 0))
	assert.Equal(t, []int{0, 2}, p.Steps(0).Active())
}
