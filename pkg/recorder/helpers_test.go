package recorder

import (
	"errors"
	"time"

	"github.com/boristopalov/crafter-record/pkg/core"
)

var obsSize = core.Size{Width: 4, Height: 3}

// fakeEnv runs episodes of scripted lengths. Each step reports an info
// reward of 0.1 and a returned reward of 1.
type fakeEnv struct {
	lengths      []int
	episode      int
	t            int
	achievements func(t int) map[string]int
	extra        func(t int) map[string]any
	renderErr    error
	renders      []core.Size
	closed       bool
}

func newFakeEnv(lengths ...int) *fakeEnv {
	return &fakeEnv{lengths: lengths}
}

func (e *fakeEnv) length() int {
	if e.episode-1 < len(e.lengths) {
		return e.lengths[e.episode-1]
	}
	return e.lengths[len(e.lengths)-1]
}

func (e *fakeEnv) Reset() (core.Image, error) {
	e.episode++
	e.t = 0
	return core.NewImage(obsSize), nil
}

func (e *fakeEnv) Step(action int) (core.StepResult, error) {
	e.t++
	obs := core.NewImage(obsSize)
	obs.Set(0, 0, core.Color{R: uint8(e.t)})

	achievements := map[string]int{"collect_wood": 0, "place_table": 0}
	if e.achievements != nil {
		achievements = e.achievements(e.t)
	}
	info := core.Info{
		Reward:       0.1,
		Achievements: achievements,
		Inventory:    map[string]int{"wood": e.t, "health": 9},
		Extra:        map[string]any{"discount": 1.0, "player_pos": [2]int{e.t, 2}},
	}
	if e.extra != nil {
		info.Extra = e.extra(e.t)
	}
	return core.StepResult{
		Obs:    obs,
		Reward: 1,
		Done:   e.t >= e.length(),
		Info:   info,
	}, nil
}

func (e *fakeEnv) Render(size core.Size) (core.Image, error) {
	if e.renderErr != nil {
		return core.Image{}, e.renderErr
	}
	e.renders = append(e.renders, size)
	return core.NewImage(size), nil
}

func (e *fakeEnv) ObservationSpace() core.Space {
	return core.Space{Shape: []int{obsSize.Height, obsSize.Width, 3}}
}

func (e *fakeEnv) ActionSpace() core.Space {
	return core.Space{N: 17}
}

func (e *fakeEnv) Close() error {
	if e.closed {
		return errors.New("closed twice")
	}
	e.closed = true
	return nil
}

type encodeCall struct {
	path   string
	frames int
}

type fakeEncoder struct {
	calls []encodeCall
}

func (f *fakeEncoder) Encode(path string, frames []core.Image) error {
	f.calls = append(f.calls, encodeCall{path: path, frames: len(frames)})
	return nil
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 14, 12, 30, 5, 0, time.UTC)
}

// runEpisode resets env and steps it until done, returning the step count.
func runEpisode(env core.Env) (int, error) {
	if _, err := env.Reset(); err != nil {
		return 0, err
	}
	for n := 1; ; n++ {
		res, err := env.Step(n % 5)
		if err != nil {
			return n, err
		}
		if res.Done {
			return n, nil
		}
	}
}
