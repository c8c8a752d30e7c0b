package core

import (
	"fmt"

	"github.com/boristopalov/crafter-record/pkg/npz"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Image is a row-major RGB image with shape (Height, Width, 3).
type Image struct {
	Height int
	Width  int
	Pix    []uint8
}

// NewImage allocates a black image of the given size.
func NewImage(size Size) Image {
	return Image{
		Height: size.Height,
		Width:  size.Width,
		Pix:    make([]uint8, size.Width*size.Height*3),
	}
}

func (img Image) Size() Size {
	return Size{Width: img.Width, Height: img.Height}
}

// Set writes one pixel.
func (img Image) Set(x, y int, c Color) {
	i := (y*img.Width + x) * 3
	img.Pix[i], img.Pix[i+1], img.Pix[i+2] = c.R, c.G, c.B
}

// At reads one pixel.
func (img Image) At(x, y int) Color {
	i := (y*img.Width + x) * 3
	return Color{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2]}
}

// MarshalArray implements npz.Marshaler.
func (img Image) MarshalArray() (npz.Array, error) {
	if len(img.Pix) != img.Width*img.Height*3 {
		return npz.Array{}, fmt.Errorf("image %dx%d has %d bytes, want %d",
			img.Width, img.Height, len(img.Pix), img.Width*img.Height*3)
	}
	data := make([]byte, len(img.Pix))
	copy(data, img.Pix)
	return npz.Array{
		DType: npz.Uint8,
		Shape: []int{img.Height, img.Width, 3},
		Data:  data,
	}, nil
}

type Color struct {
	R, G, B uint8
}

// Space describes the shape of observations or the range of actions.
type Space struct {
	Shape []int
	// N is the number of discrete values, zero for continuous spaces
	N int
}

// StepResult is everything a single Step call reports.
type StepResult struct {
	Obs       Image
	Reward    float64
	Done      bool
	Truncated bool
	Info      Info
}

// Info is the auxiliary payload of a step.
type Info struct {
	// Reward is the environment's own record of the step reward
	Reward       float64
	Achievements map[string]int
	Inventory    map[string]int
	// Extra holds every other info field, scalars or fixed-shape arrays
	Extra map[string]any
}

// Unlocked counts achievements that have been reached at least once.
func (i Info) Unlocked() int {
	n := 0
	for _, v := range i.Achievements {
		if v >= 1 {
			n++
		}
	}
	return n
}
