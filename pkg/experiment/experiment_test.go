package experiment

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/crafter-record/pkg/agent"
	"github.com/boristopalov/crafter-record/pkg/core"
	"github.com/boristopalov/crafter-record/pkg/environment"
	"github.com/boristopalov/crafter-record/pkg/recorder"
)

func newGrid(t *testing.T, length int) *environment.GridEnvironment {
	t.Helper()
	cfg := environment.DefaultConfig()
	cfg.Area = core.Size{Width: 8, Height: 8}
	cfg.View = core.Size{Width: 8, Height: 8}
	cfg.Length = length
	cfg.Seed = 3
	env, err := environment.NewGridEnvironment(cfg)
	require.NoError(t, err)
	return env
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	require.NoError(t, scanner.Err())
	return n
}

func countArchives(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.npz"))
	require.NoError(t, err)
	return len(matches)
}

func run(t *testing.T, env core.Env, episodes, maxSteps int) (*Evaluation, string) {
	t.Helper()
	dir := t.TempDir()
	rec, err := recorder.New(env, dir, recorder.WithVideo(false), recorder.WithClock(func() time.Time {
		return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	a := agent.NewRandomAgent(agent.WithSeed(1), agent.WithActionSpace(rec.ActionSpace()))
	eval, err := NewEvaluation(rec, a, episodes, maxSteps, nil)
	require.NoError(t, err)
	require.NoError(t, eval.Run(context.Background()))
	return eval, dir
}

func TestEvaluation(t *testing.T) {
	t.Run("natural episode ends are recorded", func(t *testing.T) {
		eval, dir := run(t, newGrid(t, 5), 2, 0)

		results := eval.Results()
		require.Len(t, results, 2)
		for _, r := range results {
			assert.Equal(t, 5, r.Length)
			assert.False(t, r.TimedOut)
		}
		assert.Equal(t, 2, countLines(t, filepath.Join(dir, recorder.StatsFile)))
		assert.Equal(t, 1, countArchives(t, dir), "equal names overwrite each other")

		status := eval.GetStatus()
		assert.False(t, status.Running)
		assert.Equal(t, 2, status.Episodes)
		assert.Empty(t, status.Errors)
	})

	t.Run("timeouts without done are not saved", func(t *testing.T) {
		eval, dir := run(t, newGrid(t, 100), 2, 3)

		for _, r := range eval.Results() {
			assert.Equal(t, 3, r.Length)
			assert.True(t, r.TimedOut)
		}
		assert.Zero(t, countLines(t, filepath.Join(dir, recorder.StatsFile)))
		assert.Zero(t, countArchives(t, dir))
	})

	t.Run("time limit forces done beneath the recorder", func(t *testing.T) {
		eval, dir := run(t, environment.NewTimeLimit(newGrid(t, 100), 3), 2, 3)

		for _, r := range eval.Results() {
			assert.Equal(t, 3, r.Length)
			assert.True(t, r.TimedOut)
		}
		assert.Equal(t, 2, countLines(t, filepath.Join(dir, recorder.StatsFile)))
	})

	t.Run("cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		eval, err := NewEvaluation(newGrid(t, 5), agent.NewRandomAgent(), 3, 0, nil)
		require.NoError(t, err)
		err = eval.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, eval.GetStatus().Errors, 1)
		assert.Empty(t, eval.Results())
	})

	t.Run("rejects empty runs", func(t *testing.T) {
		_, err := NewEvaluation(newGrid(t, 5), agent.NewRandomAgent(), 0, 0, nil)
		assert.Error(t, err)
	})
}
