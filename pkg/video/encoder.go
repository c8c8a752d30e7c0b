// Package video turns rendered frame sequences into video files.
package video

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/boristopalov/crafter-record/pkg/core"
)

const (
	DefaultFPS   = 10
	DefaultCodec = "libx264"
)

var (
	ErrNoFrames  = errors.New("no frames to encode")
	ErrFrameSize = errors.New("frames differ in size")
)

// Encoder writes a frame sequence to a video file.
type Encoder interface {
	Encode(path string, frames []core.Image) error
}

// FFmpegEncoder pipes raw RGB frames through an ffmpeg process.
type FFmpegEncoder struct {
	FPS   int
	Codec string
	// Stderr receives ffmpeg's diagnostics, discarded when nil
	Stderr io.Writer
}

func NewFFmpegEncoder() *FFmpegEncoder {
	return &FFmpegEncoder{
		FPS:   DefaultFPS,
		Codec: DefaultCodec,
	}
}

func (e *FFmpegEncoder) Encode(path string, frames []core.Image) error {
	raw, size, err := Pack(frames)
	if err != nil {
		return err
	}
	fps := e.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	codec := e.Codec
	if codec == "" {
		codec = DefaultCodec
	}
	stderr := e.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	err = ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgb24",
		"s":         size.String(),
		"framerate": fps,
	}).
		Output(path, ffmpeg.KwArgs{
			"vcodec":  codec,
			"pix_fmt": "yuv420p",
		}).
		OverWriteOutput().
		WithInput(bytes.NewReader(raw)).
		WithErrorOutput(stderr).
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg failed to encode %s: %w", path, err)
	}
	return nil
}

// Pack concatenates frames into one rgb24 byte stream. Every frame must
// have the size of the first.
func Pack(frames []core.Image) ([]byte, core.Size, error) {
	if len(frames) == 0 {
		return nil, core.Size{}, ErrNoFrames
	}
	size := frames[0].Size()
	raw := make([]byte, 0, len(frames)*len(frames[0].Pix))
	for i, f := range frames {
		if f.Size() != size || len(f.Pix) != size.Width*size.Height*3 {
			return nil, core.Size{}, fmt.Errorf("%w: frame %d is %s, frame 0 is %s", ErrFrameSize, i, f.Size(), size)
		}
		raw = append(raw, f.Pix...)
	}
	return raw, size, nil
}
