package environment

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/boristopalov/crafter-record/pkg/core"
)

type State struct {
	Status    string
	Step      uint32
	Timestamp time.Time
}

type tile uint8

const (
	grass tile = iota
	tree
	stone
	water
	table
	player
)

var tileNames = []string{"grass", "tree", "stone", "water", "table", "player"}

var tileColors = []core.Color{
	grass:  {R: 88, G: 160, B: 64},
	tree:   {R: 30, G: 90, B: 30},
	stone:  {R: 128, G: 128, B: 128},
	water:  {R: 50, G: 90, B: 200},
	table:  {R: 150, G: 100, B: 50},
	player: {R: 240, G: 220, B: 60},
}

const (
	ActionNoop = iota
	ActionLeft
	ActionRight
	ActionUp
	ActionDown
	ActionDo
	ActionPlaceTable
	numActions
)

// Achievements reported by GridEnvironment.
var Achievements = []string{"collect_drink", "collect_stone", "collect_wood", "place_table"}

const (
	maxHealth   = 9
	thirstLimit = 30
)

type Config struct {
	Area    core.Size `yaml:"area"`
	View    core.Size `yaml:"view"`
	Length  int       `yaml:"length"`
	Seed    int64     `yaml:"seed"`
	Density float64   `yaml:"density"`
}

func DefaultConfig() Config {
	return Config{
		Area:    core.Size{Width: 16, Height: 16},
		View:    core.Size{Width: 64, Height: 64},
		Length:  10000,
		Density: 0.3,
	}
}

// GridEnvironment is a small survival world: the player gathers wood and
// stone, drinks water and places tables, and dies of thirst if it never
// drinks.
type GridEnvironment struct {
	cfg    Config
	rand   *rand.Rand
	state  State
	world  []tile
	x, y   int
	faceX  int
	faceY  int
	health int
	thirst int

	achievements map[string]int
	inventory    map[string]int
}

func NewGridEnvironment(cfg Config) (*GridEnvironment, error) {
	if cfg.Area.Width < 3 || cfg.Area.Height < 3 {
		return nil, fmt.Errorf("area %s is too small", cfg.Area)
	}
	if cfg.View.Width <= 0 || cfg.View.Height <= 0 {
		return nil, fmt.Errorf("invalid view size %s", cfg.View)
	}
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("episode length must be > 0")
	}
	return &GridEnvironment{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
		state: State{
			Status:    "idle",
			Timestamp: time.Now(),
		},
	}, nil
}

func (e *GridEnvironment) GetState() State {
	return e.state
}

func (e *GridEnvironment) Reset() (core.Image, error) {
	w, h := e.cfg.Area.Width, e.cfg.Area.Height
	e.world = make([]tile, w*h)
	for i := range e.world {
		if e.rand.Float64() >= e.cfg.Density {
			continue
		}
		switch e.rand.Intn(3) {
		case 0:
			e.world[i] = tree
		case 1:
			e.world[i] = stone
		default:
			e.world[i] = water
		}
	}
	e.x, e.y = w/2, h/2
	e.world[e.y*w+e.x] = grass
	e.faceX, e.faceY = 0, 1
	e.health = maxHealth
	e.thirst = 0
	e.achievements = make(map[string]int, len(Achievements))
	for _, name := range Achievements {
		e.achievements[name] = 0
	}
	e.inventory = map[string]int{"health": e.health, "wood": 0, "stone": 0, "drink": maxHealth}
	e.state = State{Status: "running", Timestamp: time.Now()}
	return e.Render(e.cfg.View)
}

func (e *GridEnvironment) Step(action int) (core.StepResult, error) {
	if e.world == nil {
		return core.StepResult{}, fmt.Errorf("step called before reset")
	}
	if action < 0 || action >= numActions {
		return core.StepResult{}, fmt.Errorf("action %d out of range [0, %d)", action, numActions)
	}

	unlockedBefore := e.unlocked()
	healthBefore := e.health

	switch action {
	case ActionLeft:
		e.move(-1, 0)
	case ActionRight:
		e.move(1, 0)
	case ActionUp:
		e.move(0, -1)
	case ActionDown:
		e.move(0, 1)
	case ActionDo:
		e.interact()
	case ActionPlaceTable:
		e.placeTable()
	}

	e.thirst++
	if e.thirst > thirstLimit {
		e.health--
	}
	e.inventory["health"] = e.health
	e.inventory["drink"] = max(0, maxHealth-e.thirst*maxHealth/thirstLimit)

	e.state.Step++
	e.state.Timestamp = time.Now()

	dead := e.health <= 0
	done := dead || int(e.state.Step) >= e.cfg.Length
	if done {
		e.state.Status = "done"
	}
	reward := float64(e.unlocked()-unlockedBefore) + float64(e.health-healthBefore)*0.1

	obs, err := e.Render(e.cfg.View)
	if err != nil {
		return core.StepResult{}, err
	}
	discount := 1.0
	if dead {
		discount = 0
	}
	return core.StepResult{
		Obs:    obs,
		Reward: reward,
		Done:   done,
		Info: core.Info{
			Reward:       reward,
			Achievements: copyCounts(e.achievements),
			Inventory:    copyCounts(e.inventory),
			Extra: map[string]any{
				"discount":   discount,
				"player_pos": [2]int{e.x, e.y},
				"semantic":   e.semantic(),
			},
		},
	}, nil
}

func (e *GridEnvironment) move(dx, dy int) {
	e.faceX, e.faceY = dx, dy
	x, y := e.x+dx, e.y+dy
	if t, ok := e.at(x, y); ok && (t == grass || t == table) {
		e.x, e.y = x, y
	}
}

func (e *GridEnvironment) interact() {
	x, y := e.x+e.faceX, e.y+e.faceY
	t, ok := e.at(x, y)
	if !ok {
		return
	}
	switch t {
	case tree:
		e.inventory["wood"]++
		e.achievements["collect_wood"]++
	case stone:
		e.inventory["stone"]++
		e.achievements["collect_stone"]++
		e.world[y*e.cfg.Area.Width+x] = grass
	case water:
		e.thirst = 0
		e.achievements["collect_drink"]++
	}
}

func (e *GridEnvironment) placeTable() {
	x, y := e.x+e.faceX, e.y+e.faceY
	if t, ok := e.at(x, y); !ok || t != grass || e.inventory["wood"] < 1 {
		return
	}
	e.inventory["wood"]--
	e.world[y*e.cfg.Area.Width+x] = table
	e.achievements["place_table"]++
}

func (e *GridEnvironment) at(x, y int) (tile, bool) {
	if x < 0 || y < 0 || x >= e.cfg.Area.Width || y >= e.cfg.Area.Height {
		return 0, false
	}
	return e.world[y*e.cfg.Area.Width+x], true
}

func (e *GridEnvironment) unlocked() int {
	n := 0
	for _, v := range e.achievements {
		if v >= 1 {
			n++
		}
	}
	return n
}

// semantic is the tile id grid with the player drawn in, indexed [x][y].
func (e *GridEnvironment) semantic() [][]uint8 {
	grid := make([][]uint8, e.cfg.Area.Width)
	for x := range grid {
		grid[x] = make([]uint8, e.cfg.Area.Height)
		for y := range grid[x] {
			grid[x][y] = uint8(e.world[y*e.cfg.Area.Width+x])
		}
	}
	grid[e.x][e.y] = uint8(player)
	return grid
}

// Render draws the world scaled to size with nearest-neighbour sampling.
func (e *GridEnvironment) Render(size core.Size) (core.Image, error) {
	if e.world == nil {
		return core.Image{}, fmt.Errorf("render called before reset")
	}
	if size.Width <= 0 || size.Height <= 0 {
		return core.Image{}, fmt.Errorf("invalid render size %s", size)
	}
	img := core.NewImage(size)
	w, h := e.cfg.Area.Width, e.cfg.Area.Height
	for py := 0; py < size.Height; py++ {
		ty := py * h / size.Height
		for px := 0; px < size.Width; px++ {
			tx := px * w / size.Width
			t := e.world[ty*w+tx]
			if tx == e.x && ty == e.y {
				t = player
			}
			img.Set(px, py, tileColors[t])
		}
	}
	return img, nil
}

func (e *GridEnvironment) ObservationSpace() core.Space {
	return core.Space{Shape: []int{e.cfg.View.Height, e.cfg.View.Width, 3}}
}

func (e *GridEnvironment) ActionSpace() core.Space {
	return core.Space{N: numActions}
}

func (e *GridEnvironment) Close() error {
	e.state.Status = "closed"
	return nil
}

// TileName returns the name of a semantic tile id.
func TileName(id uint8) string {
	if int(id) < len(tileNames) {
		return tileNames[id]
	}
	return "unknown"
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
