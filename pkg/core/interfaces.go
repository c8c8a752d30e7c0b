package core

// Env is a step-based simulation with reset/step semantics.
type Env interface {
	// Reset starts a new episode and returns the first observation
	Reset() (Image, error)
	// Step advances the environment by one timestep
	Step(action int) (StepResult, error)
	// Render draws the current state at the requested size
	Render(size Size) (Image, error)
	// ObservationSpace describes the observations returned by Reset and Step
	ObservationSpace() Space
	// ActionSpace describes the actions accepted by Step
	ActionSpace() Space
	// Close releases any resources held by the environment
	Close() error
}

// Namer is implemented by environments that can name the most recently
// finished episode.
type Namer interface {
	EpisodeName() string
}
