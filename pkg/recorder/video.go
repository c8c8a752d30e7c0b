package recorder

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/boristopalov/crafter-record/pkg/core"
	"github.com/boristopalov/crafter-record/pkg/video"
)

// VideoRecorder renders one frame at reset and one per step, and encodes
// them to <directory>/<episode name>.mp4 when the episode ends.
type VideoRecorder struct {
	wrapper
	namer   core.Namer
	dir     string
	size    core.Size
	encoder video.Encoder
	logger  *slog.Logger
	frames  []core.Image
}

// NewVideoRecorder wraps env, interposing a Namer if env cannot name
// episodes itself.
func NewVideoRecorder(env core.Env, directory string, opts ...Option) (*VideoRecorder, error) {
	o := buildOptions(opts)
	dir, err := prepareDir(directory)
	if err != nil {
		return nil, err
	}
	inner, namer := ensureNamer(env, o.now)
	return &VideoRecorder{
		wrapper: wrapper{env: inner},
		namer:   namer,
		dir:     dir,
		size:    o.videoSize,
		encoder: o.encoder,
		logger:  o.logger,
	}, nil
}

func (r *VideoRecorder) EpisodeName() string {
	return r.namer.EpisodeName()
}

func (r *VideoRecorder) Reset() (core.Image, error) {
	obs, err := r.env.Reset()
	if err != nil {
		return obs, err
	}
	frame, err := r.env.Render(r.size)
	if err != nil {
		return obs, err
	}
	r.frames = []core.Image{frame}
	return obs, nil
}

func (r *VideoRecorder) Step(action int) (core.StepResult, error) {
	res, err := r.env.Step(action)
	if err != nil {
		return res, err
	}
	frame, err := r.env.Render(r.size)
	if err != nil {
		return res, err
	}
	r.frames = append(r.frames, frame)
	if res.Done {
		if err := r.save(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Frames returns the frames buffered for the current episode.
func (r *VideoRecorder) Frames() []core.Image {
	return r.frames
}

func (r *VideoRecorder) save() error {
	path := filepath.Join(r.dir, r.namer.EpisodeName()+".mp4")
	if err := r.encoder.Encode(path, r.frames); err != nil {
		return fmt.Errorf("failed to save episode video: %w", err)
	}
	r.logger.Debug("recorded episode video", "path", path, "frames", len(r.frames))
	return nil
}
