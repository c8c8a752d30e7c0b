package environment

import "github.com/boristopalov/crafter-record/pkg/core"

// TimeLimit ends episodes after a fixed number of steps by reporting both
// Done and Truncated. Placed beneath a recorder it makes timeouts persist
// like natural episode ends.
type TimeLimit struct {
	core.Env
	limit int
	steps int
}

func NewTimeLimit(env core.Env, limit int) *TimeLimit {
	return &TimeLimit{Env: env, limit: limit}
}

func (t *TimeLimit) Reset() (core.Image, error) {
	t.steps = 0
	return t.Env.Reset()
}

func (t *TimeLimit) Step(action int) (core.StepResult, error) {
	res, err := t.Env.Step(action)
	if err != nil {
		return res, err
	}
	t.steps++
	if t.limit > 0 && t.steps >= t.limit && !res.Done {
		res.Done = true
		res.Truncated = true
	}
	return res, nil
}
