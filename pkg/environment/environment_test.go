package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/crafter-record/pkg/core"
)

func newTestEnvironment(t *testing.T, length int) *GridEnvironment {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Area = core.Size{Width: 5, Height: 5}
	cfg.View = core.Size{Width: 10, Height: 10}
	cfg.Length = length
	cfg.Seed = 7
	env, err := NewGridEnvironment(cfg)
	require.NoError(t, err)
	return env
}

// clearWorld replaces the generated world with grass.
func clearWorld(env *GridEnvironment) {
	for i := range env.world {
		env.world[i] = grass
	}
}

func TestGridEnvironment(t *testing.T) {
	t.Run("reset", func(t *testing.T) {
		env := newTestEnvironment(t, 10)
		_, err := env.Step(ActionNoop)
		assert.Error(t, err, "step before reset")

		obs, err := env.Reset()
		require.NoError(t, err)
		assert.Equal(t, core.Size{Width: 10, Height: 10}, obs.Size())
		assert.Equal(t, "running", env.GetState().Status)
		assert.Equal(t, []int{10, 10, 3}, env.ObservationSpace().Shape)
		assert.Equal(t, numActions, env.ActionSpace().N)
	})

	t.Run("same seed same world", func(t *testing.T) {
		a := newTestEnvironment(t, 10)
		b := newTestEnvironment(t, 10)
		obsA, err := a.Reset()
		require.NoError(t, err)
		obsB, err := b.Reset()
		require.NoError(t, err)
		assert.Equal(t, obsA.Pix, obsB.Pix)
	})

	t.Run("collect wood and place a table", func(t *testing.T) {
		env := newTestEnvironment(t, 100)
		_, err := env.Reset()
		require.NoError(t, err)
		clearWorld(env)
		env.world[env.y*5+env.x+1] = tree

		res, err := env.Step(ActionRight)
		require.NoError(t, err)
		assert.Equal(t, [2]int{2, 2}, res.Info.Extra["player_pos"], "trees block movement")

		res, err = env.Step(ActionDo)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Info.Achievements["collect_wood"])
		assert.Equal(t, 1, res.Info.Inventory["wood"])
		assert.Equal(t, 1.0, res.Info.Reward)
		assert.Equal(t, res.Reward, res.Info.Reward)

		res, err = env.Step(ActionLeft)
		require.NoError(t, err)
		res, err = env.Step(ActionPlaceTable)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Info.Achievements["place_table"])
		assert.Equal(t, 0, res.Info.Inventory["wood"])
		assert.Equal(t, 2, res.Info.Unlocked())

		semantic, ok := res.Info.Extra["semantic"].([][]uint8)
		require.True(t, ok)
		assert.Equal(t, "table", TileName(semantic[0][2]))
		assert.Equal(t, "player", TileName(semantic[1][2]))
	})

	t.Run("episode length", func(t *testing.T) {
		env := newTestEnvironment(t, 3)
		_, err := env.Reset()
		require.NoError(t, err)
		for i := 1; i <= 3; i++ {
			res, err := env.Step(ActionNoop)
			require.NoError(t, err)
			assert.Equal(t, i == 3, res.Done)
		}
	})

	t.Run("thirst kills", func(t *testing.T) {
		env := newTestEnvironment(t, 1000)
		_, err := env.Reset()
		require.NoError(t, err)
		clearWorld(env)

		var res core.StepResult
		steps := 0
		for !res.Done {
			res, err = env.Step(ActionNoop)
			require.NoError(t, err)
			steps++
		}
		assert.Equal(t, thirstLimit+maxHealth, steps)
		assert.Equal(t, 0.0, res.Info.Extra["discount"])
	})

	t.Run("invalid actions", func(t *testing.T) {
		env := newTestEnvironment(t, 10)
		_, err := env.Reset()
		require.NoError(t, err)
		_, err = env.Step(numActions)
		assert.Error(t, err)
	})
}

func TestTimeLimit(t *testing.T) {
	env := NewTimeLimit(newTestEnvironment(t, 100), 4)
	_, err := env.Reset()
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		res, err := env.Step(ActionNoop)
		require.NoError(t, err)
		assert.Equal(t, i == 4, res.Done)
		assert.Equal(t, i == 4, res.Truncated)
	}

	_, err = env.Reset()
	require.NoError(t, err)
	res, err := env.Step(ActionNoop)
	require.NoError(t, err)
	assert.False(t, res.Done, "reset restarts the count")
}
