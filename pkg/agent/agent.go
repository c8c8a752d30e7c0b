package agent

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/boristopalov/crafter-record/pkg/core"
)

// Agent picks actions from observations
type Agent interface {
	GetID() string
	Act(obs core.Image) int
}

type AgentParams struct {
	AgentID    string
	Seed       int64
	NumActions int
}

type AgentOption func(*AgentParams)

func WithAgentId(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

func WithSeed(seed int64) AgentOption {
	return func(p *AgentParams) {
		p.Seed = seed
	}
}

// WithActionSpace sizes the agent's action set from an environment space
func WithActionSpace(space core.Space) AgentOption {
	return func(p *AgentParams) {
		p.NumActions = space.N
	}
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		AgentID:    "agent-" + uuid.New().String(),
		Seed:       time.Now().UnixNano(),
		NumActions: 1,
	}
}

// RandomAgent samples actions uniformly
type RandomAgent struct {
	id         string
	numActions int
	rng        *rand.Rand
}

func NewRandomAgent(opts ...AgentOption) *RandomAgent {
	params := defaultAgentParams()
	for _, opt := range opts {
		opt(params)
	}
	if params.NumActions < 1 {
		params.NumActions = 1
	}
	return &RandomAgent{
		id:         params.AgentID,
		numActions: params.NumActions,
		rng:        rand.New(rand.NewSource(params.Seed)),
	}
}

func (a *RandomAgent) GetID() string {
	return a.id
}

func (a *RandomAgent) Act(obs core.Image) int {
	return a.rng.Intn(a.numActions)
}
