package recorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/boristopalov/crafter-record/pkg/core"
)

const StatsFile = "stats.jsonl"

// Stats is the summary of one finished episode.
type Stats struct {
	Length       int
	Reward       float64
	Achievements map[string]int
}

// MarshalJSON writes length and reward first, then one achievement_<name>
// field per achievement in name order.
func (s Stats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"length":`)
	fmt.Fprintf(&buf, "%d", s.Length)
	buf.WriteString(`,"reward":`)
	reward, err := json.Marshal(s.Reward)
	if err != nil {
		return nil, err
	}
	buf.Write(reward)

	names := make([]string, 0, len(s.Achievements))
	for name := range s.Achievements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key, _ := json.Marshal("achievement_" + name)
		buf.WriteByte(',')
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", s.Achievements[name])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// StatsRecorder appends one JSON line per finished episode to
// <directory>/stats.jsonl.
type StatsRecorder struct {
	wrapper
	file   *os.File
	logger *slog.Logger
	length int
	reward float64
	last   *Stats
}

// NewStatsRecorder opens the stats log for appending. The file stays open
// until Close.
func NewStatsRecorder(env core.Env, directory string, opts ...Option) (*StatsRecorder, error) {
	o := buildOptions(opts)
	dir, err := prepareDir(directory)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(filepath.Join(dir, StatsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats log: %w", err)
	}
	return &StatsRecorder{
		wrapper: wrapper{env: env},
		file:    file,
		logger:  o.logger,
	}, nil
}

func (r *StatsRecorder) Reset() (core.Image, error) {
	obs, err := r.env.Reset()
	if err != nil {
		return obs, err
	}
	r.length = 0
	r.reward = 0
	r.last = nil
	return obs, nil
}

// Step accumulates info.Reward, not the returned reward.
func (r *StatsRecorder) Step(action int) (core.StepResult, error) {
	res, err := r.env.Step(action)
	if err != nil {
		return res, err
	}
	r.length++
	r.reward += res.Info.Reward
	if res.Done {
		stats := Stats{
			Length:       r.length,
			Reward:       math.Round(r.reward*10) / 10,
			Achievements: make(map[string]int, len(res.Info.Achievements)),
		}
		for name, count := range res.Info.Achievements {
			stats.Achievements[name] = count
		}
		r.last = &stats
		if err := r.save(stats); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Last returns the stats of the episode that finished most recently, if it
// finished after the last Reset.
func (r *StatsRecorder) Last() (Stats, bool) {
	if r.last == nil {
		return Stats{}, false
	}
	return *r.last, true
}

func (r *StatsRecorder) save(stats Stats) error {
	line, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := r.file.Write(line); err != nil {
		return fmt.Errorf("failed to append stats: %w", err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("failed to flush stats: %w", err)
	}
	r.logger.Debug("recorded episode stats", "length", stats.Length, "reward", stats.Reward)
	return nil
}

// Close closes the stats log and the wrapped environment.
func (r *StatsRecorder) Close() error {
	var fileErr error
	if r.file != nil {
		fileErr = r.file.Close()
		r.file = nil
	}
	if err := r.env.Close(); err != nil {
		return err
	}
	return fileErr
}
