package experiment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boristopalov/crafter-record/pkg/agent"
	"github.com/boristopalov/crafter-record/pkg/core"
)

type ExperimentStatus struct {
	Running   bool
	StartTime time.Time
	EndTime   time.Time
	Episodes  int
	Errors    []error
}

// EpisodeResult summarizes one evaluated episode.
type EpisodeResult struct {
	Episode  int
	Length   int
	Reward   float64
	Unlocked int
	TimedOut bool
}

// Evaluation drives an agent through a fixed number of episodes.
type Evaluation struct {
	id       string
	env      core.Env
	agent    agent.Agent
	episodes int
	maxSteps int
	logger   *slog.Logger
	mu       sync.RWMutex
	status   ExperimentStatus
	results  []EpisodeResult
}

// NewEvaluation runs episodes of env with agent. A maxSteps of zero never
// times out. When an episode reaches maxSteps without finishing, the next
// episode starts with a plain Reset; recorders do not save such episodes
// unless env forces done itself (see environment.TimeLimit).
func NewEvaluation(env core.Env, a agent.Agent, episodes, maxSteps int, logger *slog.Logger) (*Evaluation, error) {
	if episodes <= 0 {
		return nil, errors.New("episodes must be greater than zero")
	}
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	return &Evaluation{
		id:       id,
		env:      env,
		agent:    a,
		episodes: episodes,
		maxSteps: maxSteps,
		logger:   logger.With("run", id),
	}, nil
}

func (e *Evaluation) ID() string {
	return e.id
}

func (e *Evaluation) Run(ctx context.Context) error {
	e.mu.Lock()
	e.status.Running = true
	e.status.StartTime = time.Now()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.status.Running = false
		e.status.EndTime = time.Now()
		e.mu.Unlock()
	}()

	err := e.runLoop(ctx)
	if err != nil {
		e.mu.Lock()
		e.status.Errors = append(e.status.Errors, err)
		e.mu.Unlock()
	}
	return err
}

func (e *Evaluation) runLoop(ctx context.Context) error {
	for i := 1; i <= e.episodes; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		result, err := e.runEpisode(ctx, i)
		if err != nil {
			return err
		}

		e.mu.Lock()
		e.results = append(e.results, result)
		e.status.Episodes++
		e.mu.Unlock()

		reason := "done"
		if result.TimedOut {
			reason = "timeout"
		}
		e.logger.Info("episode finished",
			"episode", i, "of", e.episodes, "reason", reason,
			"length", result.Length, "reward", result.Reward, "unlocked", result.Unlocked)
	}
	return nil
}

func (e *Evaluation) runEpisode(ctx context.Context, episode int) (EpisodeResult, error) {
	obs, err := e.env.Reset()
	if err != nil {
		return EpisodeResult{}, err
	}
	result := EpisodeResult{Episode: episode}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := e.env.Step(e.agent.Act(obs))
		if err != nil {
			return result, err
		}
		obs = res.Obs
		result.Length++
		result.Reward += res.Info.Reward
		result.Unlocked = res.Info.Unlocked()
		if res.Done {
			if res.Truncated {
				result.TimedOut = true
			}
			return result, nil
		}
		if e.maxSteps > 0 && result.Length >= e.maxSteps {
			result.TimedOut = true
			e.logger.Warn("episode timed out before done, its recordings are discarded",
				"episode", episode, "steps", result.Length)
			return result, nil
		}
	}
}

func (e *Evaluation) GetStatus() ExperimentStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	status := e.status
	status.Errors = append([]error(nil), e.status.Errors...)
	return status
}

// Results returns a copy of the finished episodes so far.
func (e *Evaluation) Results() []EpisodeResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]EpisodeResult(nil), e.results...)
}
