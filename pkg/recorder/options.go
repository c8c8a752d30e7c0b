package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boristopalov/crafter-record/pkg/core"
	"github.com/boristopalov/crafter-record/pkg/video"
)

// DefaultVideoSize is the frame size used when none is configured.
var DefaultVideoSize = core.Size{Width: 512, Height: 512}

type options struct {
	saveStats   bool
	saveVideo   bool
	saveEpisode bool
	videoSize   core.Size
	encoder     video.Encoder
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures the recorders built by this package.
type Option func(*options)

// WithStats toggles the per-episode stats log. Only used by New.
func WithStats(enabled bool) Option {
	return func(o *options) {
		o.saveStats = enabled
	}
}

// WithVideo toggles per-episode videos. Only used by New.
func WithVideo(enabled bool) Option {
	return func(o *options) {
		o.saveVideo = enabled
	}
}

// WithEpisode toggles per-episode transition archives. Only used by New.
func WithEpisode(enabled bool) Option {
	return func(o *options) {
		o.saveEpisode = enabled
	}
}

func WithVideoSize(size core.Size) Option {
	return func(o *options) {
		o.videoSize = size
	}
}

func WithEncoder(enc video.Encoder) Option {
	return func(o *options) {
		o.encoder = enc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces the wall clock used to timestamp episode names.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func defaultOptions() *options {
	return &options{
		saveStats:   true,
		saveVideo:   true,
		saveEpisode: true,
		videoSize:   DefaultVideoSize,
		logger:      slog.Default(),
		now:         time.Now,
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.encoder == nil {
		o.encoder = video.NewFFmpegEncoder()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// prepareDir expands a leading ~ and creates the directory tree.
func prepareDir(directory string) (string, error) {
	if directory == "~" || strings.HasPrefix(directory, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		directory = filepath.Join(home, strings.TrimPrefix(directory, "~"))
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create record directory: %w", err)
	}
	return directory, nil
}

// wrapper forwards everything but Reset and Step to the inner environment.
type wrapper struct {
	env core.Env
}

func (w wrapper) Render(size core.Size) (core.Image, error) {
	return w.env.Render(size)
}

func (w wrapper) ObservationSpace() core.Space {
	return w.env.ObservationSpace()
}

func (w wrapper) ActionSpace() core.Space {
	return w.env.ActionSpace()
}

func (w wrapper) Close() error {
	return w.env.Close()
}

// Unwrap returns the wrapped environment.
func (w wrapper) Unwrap() core.Env {
	return w.env
}
