package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/boristopalov/crafter-record/pkg/core"
	"github.com/boristopalov/crafter-record/pkg/environment"
)

type ExperimentConfig struct {
	Name        string             `yaml:"name"`
	Episodes    int                `yaml:"episodes"`
	MaxSteps    int                `yaml:"max_steps"`
	Seed        int64              `yaml:"seed"`
	Recorder    RecorderConfig     `yaml:"recorder"`
	Environment environment.Config `yaml:"environment"`
	Logging     LogConfig          `yaml:"logging"`
}

type RecorderConfig struct {
	Directory   string    `yaml:"directory"`
	SaveStats   bool      `yaml:"save_stats"`
	SaveVideo   bool      `yaml:"save_video"`
	SaveEpisode bool      `yaml:"save_episode"`
	VideoSize   core.Size `yaml:"video_size"`
	FPS         int       `yaml:"fps"`
	// ForceDone ends timed out episodes with done=true so they are saved
	ForceDone bool `yaml:"force_done"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *ExperimentConfig {
	return &ExperimentConfig{
		Name:     "evaluation",
		Episodes: 100,
		MaxSteps: 2000,
		Recorder: RecorderConfig{
			Directory: "logdir/evaluation",
			SaveStats: true,
			VideoSize: core.Size{Width: 512, Height: 512},
			FPS:       10,
		},
		Environment: environment.DefaultConfig(),
		Logging:     LogConfig{Level: "info"},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path yields the
// defaults. Environment overrides are applied last.
func LoadConfig(path string) (*ExperimentConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads the first .env file found among paths.
func LoadDotEnv(paths ...string) {
	for _, envFile := range paths {
		if err := godotenv.Load(envFile); err == nil {
			return
		}
	}
}

func (c *ExperimentConfig) applyEnv() error {
	if v := os.Getenv("RECORD_DIR"); v != "" {
		c.Recorder.Directory = v
	}
	ints := map[string]*int{
		"RECORD_EPISODES":  &c.Episodes,
		"RECORD_MAX_STEPS": &c.MaxSteps,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}
	if v := os.Getenv("RECORD_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid RECORD_SEED %q: %w", v, err)
		}
		c.Seed = n
	}
	return nil
}

func (c *ExperimentConfig) Validate() error {
	if c.Episodes <= 0 {
		return fmt.Errorf("episodes must be > 0")
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be >= 0")
	}
	if c.Recorder.VideoSize.Width <= 0 || c.Recorder.VideoSize.Height <= 0 {
		return fmt.Errorf("invalid video size %s", c.Recorder.VideoSize)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger builds a text logger on stderr at the configured level.
func (c LogConfig) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.Level)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
