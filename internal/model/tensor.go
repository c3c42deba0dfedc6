package model

import "fmt"

// Tensor is a generated video tensor handed off by the sidecar as a raw
// little-endian float32 file on the shared filesystem. Shape is [C,F,H,W].
type Tensor struct {
	Path  string
	Shape [4]int
}

func (t *Tensor) Channels() int { return t.Shape[0] }
func (t *Tensor) Frames() int   { return t.Shape[1] }
func (t *Tensor) Height() int   { return t.Shape[2] }
func (t *Tensor) Width() int    { return t.Shape[3] }

// Validate checks the shape describes a renderable RGB video.
func (t *Tensor) Validate() error {
	if t.Channels() != 3 {
		return fmt.Errorf("expected 3 channels, got %d", t.Channels())
	}
	if t.Frames() <= 0 || t.Height() <= 0 || t.Width() <= 0 {
		return fmt.Errorf("invalid tensor shape %v", t.Shape)
	}
	return nil
}
