// Package recorder wraps an environment with decorators that persist
// per-episode stats, videos and transition archives.
package recorder

import (
	"github.com/boristopalov/crafter-record/pkg/core"
)

// Recorder composes the enabled sinks around a base environment in the
// order stats, video, episode, and remembers the latest observation. With
// an empty directory it passes every call straight to the base environment.
type Recorder struct {
	base  core.Env
	env   core.Env
	stats *StatsRecorder
	obs   core.Image
}

func New(env core.Env, directory string, opts ...Option) (*Recorder, error) {
	o := buildOptions(opts)
	r := &Recorder{base: env, env: env}
	if directory == "" {
		return r, nil
	}

	if o.saveStats {
		stats, err := NewStatsRecorder(r.env, directory, opts...)
		if err != nil {
			return nil, err
		}
		r.stats = stats
		r.env = stats
	}
	if o.saveVideo {
		vr, err := NewVideoRecorder(r.env, directory, opts...)
		if err != nil {
			r.release()
			return nil, err
		}
		r.env = vr
	}
	if o.saveEpisode {
		er, err := NewEpisodeRecorder(r.env, directory, opts...)
		if err != nil {
			r.release()
			return nil, err
		}
		r.env = er
	}
	return r, nil
}

// release closes the stats log of a chain that failed to build, leaving
// the base environment open.
func (r *Recorder) release() {
	if r.stats != nil && r.stats.file != nil {
		r.stats.file.Close()
		r.stats.file = nil
	}
}

// Obs returns the observation of the latest Reset or Step.
func (r *Recorder) Obs() core.Image {
	return r.obs
}

// Env returns the base environment.
func (r *Recorder) Env() core.Env {
	return r.base
}

// Stats returns the stats of the most recently finished episode. It reports
// false when stats are disabled or no episode finished since the last Reset.
func (r *Recorder) Stats() (Stats, bool) {
	if r.stats == nil {
		return Stats{}, false
	}
	return r.stats.Last()
}

// EpisodeName names the most recently finished episode. It fails with
// ErrNoNamer when neither video nor episode recording is enabled.
func (r *Recorder) EpisodeName() (string, error) {
	namer, ok := r.env.(core.Namer)
	if !ok {
		return "", ErrNoNamer
	}
	return namer.EpisodeName(), nil
}

func (r *Recorder) Reset() (core.Image, error) {
	obs, err := r.env.Reset()
	if err != nil {
		return obs, err
	}
	r.obs = obs
	return obs, nil
}

func (r *Recorder) Step(action int) (core.StepResult, error) {
	res, err := r.env.Step(action)
	if res.Obs.Pix != nil {
		r.obs = res.Obs
	}
	return res, err
}

func (r *Recorder) Render(size core.Size) (core.Image, error) {
	return r.env.Render(size)
}

func (r *Recorder) ObservationSpace() core.Space {
	return r.env.ObservationSpace()
}

func (r *Recorder) ActionSpace() core.Space {
	return r.env.ActionSpace()
}

// Close releases the stats log and closes the base environment.
func (r *Recorder) Close() error {
	return r.env.Close()
}
