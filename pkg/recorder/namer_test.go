package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamer(t *testing.T) {
	env := newFakeEnv(3)
	env.achievements = func(step int) map[string]int {
		if step >= 2 {
			return map[string]int{"collect_wood": 1, "place_table": 0}
		}
		return map[string]int{"collect_wood": 0, "place_table": 0}
	}
	namer := NewNamer(env, fixedClock)

	_, err := namer.Reset()
	require.NoError(t, err)
	assert.Equal(t, "unset-achunset-len0", namer.EpisodeName())

	for i := 0; i < 2; i++ {
		res, err := namer.Step(0)
		require.NoError(t, err)
		require.False(t, res.Done)
	}
	res, err := namer.Step(0)
	require.NoError(t, err)
	require.True(t, res.Done)

	name := namer.EpisodeName()
	assert.Equal(t, "20261014T123005-ach1-len3", name)
	assert.Equal(t, name, namer.EpisodeName(), "name is stable until the next reset")

	_, err = namer.Reset()
	require.NoError(t, err)
	assert.Equal(t, "unset-achunset-len0", namer.EpisodeName())
}

func TestEnsureNamer(t *testing.T) {
	env := newFakeEnv(1)

	wrapped, namer := ensureNamer(env, fixedClock)
	n, ok := wrapped.(*Namer)
	require.True(t, ok, "a plain environment gets a namer")
	assert.Same(t, n, namer)

	again, namer2 := ensureNamer(wrapped, fixedClock)
	assert.Same(t, n, again, "an environment that names episodes is used as is")
	assert.Same(t, n, namer2)
}
