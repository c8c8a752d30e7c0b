package recorder

import (
	"errors"
	"fmt"
	"time"

	"github.com/boristopalov/crafter-record/pkg/core"
)

const timestampLayout = "20060102T150405"

// ErrNoNamer reports an episode sink composed without a naming layer.
var ErrNoNamer = errors.New("environment cannot name episodes")

// Namer tracks the length and terminal achievement count of the current
// episode so that sinks can derive a file name for it.
type Namer struct {
	wrapper
	now       func() time.Time
	finished  bool
	timestamp string
	unlocked  int
	length    int
}

// NewNamer wraps env. A nil clock means time.Now.
func NewNamer(env core.Env, now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{wrapper: wrapper{env: env}, now: now}
}

func (n *Namer) Reset() (core.Image, error) {
	obs, err := n.env.Reset()
	if err != nil {
		return obs, err
	}
	n.finished = false
	n.timestamp = ""
	n.unlocked = 0
	n.length = 0
	return obs, nil
}

func (n *Namer) Step(action int) (core.StepResult, error) {
	res, err := n.env.Step(action)
	if err != nil {
		return res, err
	}
	n.length++
	if res.Done {
		n.finished = true
		n.timestamp = n.now().Format(timestampLayout)
		n.unlocked = res.Info.Unlocked()
	}
	return res, nil
}

// EpisodeName is only meaningful after the terminal step of an episode and
// stays fixed until the next Reset.
func (n *Namer) EpisodeName() string {
	if !n.finished {
		return fmt.Sprintf("unset-achunset-len%d", n.length)
	}
	return fmt.Sprintf("%s-ach%d-len%d", n.timestamp, n.unlocked, n.length)
}

// ensureNamer returns env unchanged when it can already name episodes,
// otherwise it interposes a Namer.
func ensureNamer(env core.Env, now func() time.Time) (core.Env, core.Namer) {
	if namer, ok := env.(core.Namer); ok {
		return env, namer
	}
	n := NewNamer(env, now)
	return n, n
}
