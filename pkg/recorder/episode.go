package recorder

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/boristopalov/crafter-record/pkg/core"
	"github.com/boristopalov/crafter-record/pkg/npz"
)

// transition is an insertion-ordered set of per-step fields.
type transition struct {
	keys   []string
	values map[string]any
}

func newTransition() *transition {
	return &transition{values: make(map[string]any)}
}

func (t *transition) set(key string, value any) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// EpisodeRecorder buffers every transition of an episode and writes them
// column by column to <directory>/<episode name>.npz when the episode ends.
type EpisodeRecorder struct {
	wrapper
	namer   core.Namer
	dir     string
	logger  *slog.Logger
	episode []*transition
}

// NewEpisodeRecorder wraps env, interposing a Namer if env cannot name
// episodes itself.
func NewEpisodeRecorder(env core.Env, directory string, opts ...Option) (*EpisodeRecorder, error) {
	o := buildOptions(opts)
	dir, err := prepareDir(directory)
	if err != nil {
		return nil, err
	}
	inner, namer := ensureNamer(env, o.now)
	return &EpisodeRecorder{
		wrapper: wrapper{env: inner},
		namer:   namer,
		dir:     dir,
		logger:  o.logger,
	}, nil
}

func (r *EpisodeRecorder) EpisodeName() string {
	return r.namer.EpisodeName()
}

func (r *EpisodeRecorder) Reset() (core.Image, error) {
	obs, err := r.env.Reset()
	if err != nil {
		return obs, err
	}
	seed := newTransition()
	seed.set("image", obs)
	r.episode = []*transition{seed}
	return obs, nil
}

func (r *EpisodeRecorder) Step(action int) (core.StepResult, error) {
	res, err := r.env.Step(action)
	if err != nil {
		return res, err
	}
	t := newTransition()
	t.set("action", action)
	t.set("image", res.Obs)
	t.set("reward", res.Reward)
	t.set("done", res.Done)
	// info fields are copied verbatim, so info's own reward takes precedence
	for _, key := range sortedKeys(res.Info.Extra) {
		t.set(key, res.Info.Extra[key])
	}
	t.set("reward", res.Info.Reward)
	for _, name := range sortedKeys(res.Info.Achievements) {
		t.set("achievement_"+name, res.Info.Achievements[name])
	}
	for _, name := range sortedKeys(res.Info.Inventory) {
		t.set("ainventory_"+name, res.Info.Inventory[name])
	}
	r.episode = append(r.episode, t)

	if res.Done {
		if err := r.save(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Len is the number of buffered records, including the reset record.
func (r *EpisodeRecorder) Len() int {
	return len(r.episode)
}

func (r *EpisodeRecorder) save() error {
	entries, err := columns(r.episode)
	if err != nil {
		return fmt.Errorf("failed to build episode arrays: %w", err)
	}
	path := filepath.Join(r.dir, r.namer.EpisodeName()+".npz")
	if err := npz.Write(path, entries); err != nil {
		return fmt.Errorf("failed to save episode archive: %w", err)
	}
	r.logger.Debug("recorded episode archive", "path", path, "steps", len(r.episode), "keys", len(entries))
	return nil
}

// columns reconciles the records onto the union of their keys and stacks
// each key into one array with a leading time axis. A record lacking a key
// gets zeros shaped like the key's first occurrence.
func columns(episode []*transition) ([]npz.Entry, error) {
	var keys []string
	first := make(map[string]npz.Array)
	rows := make([]map[string]npz.Array, len(episode))
	for i, t := range episode {
		rows[i] = make(map[string]npz.Array, len(t.keys))
		for _, key := range t.keys {
			a, err := npz.FromValue(t.values[key])
			if err != nil {
				return nil, fmt.Errorf("step %d %s: %w", i, key, err)
			}
			if _, ok := first[key]; !ok {
				first[key] = a
				keys = append(keys, key)
			}
			rows[i][key] = a
		}
	}

	entries := make([]npz.Entry, 0, len(keys))
	for _, key := range keys {
		column := make([]npz.Array, len(rows))
		for i, row := range rows {
			a, ok := row[key]
			if !ok {
				a = npz.ZerosLike(first[key])
			}
			column[i] = a
		}
		stacked, err := npz.Stack(column)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		entries = append(entries, npz.Entry{Name: key, Array: stacked})
	}
	return entries, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
