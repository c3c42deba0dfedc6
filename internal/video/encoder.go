// Package video encodes generated tensors to MP4 files via ffmpeg.
package video

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"

	"wanvideo/internal/model"
	"wanvideo/internal/pkg/errors"
)

// EncodeOptions mirror the model library's cache_video parameters.
type EncodeOptions struct {
	FPS        int
	NRow       int
	Normalize  bool
	ValueRange [2]float64
}

// FFmpegEncoder streams tensor frames as raw rgb24 into an ffmpeg child
// process. The tensor file is [C,F,H,W] float32 little-endian, so each
// frame is assembled from three per-channel section readers.
type FFmpegEncoder struct {
	binPath string
}

func NewFFmpegEncoder(binPath string) *FFmpegEncoder {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &FFmpegEncoder{binPath: binPath}
}

// Encode writes the tensor to outPath as H.264 MP4. On success the tensor
// scratch file is removed best-effort.
func (e *FFmpegEncoder) Encode(ctx context.Context, t *model.Tensor, outPath string, opts EncodeOptions) error {
	if err := e.encode(ctx, t, outPath, opts); err != nil {
		return errors.Wrap(err, "video.encode", "failed to save video")
	}
	_ = os.Remove(t.Path)
	return nil
}

func (e *FFmpegEncoder) encode(ctx context.Context, t *model.Tensor, outPath string, opts EncodeOptions) error {
	if err := t.Validate(); err != nil {
		return err
	}

	fps := opts.FPS
	if fps <= 0 {
		fps = model.DefaultSampleFPS
	}

	f, err := os.Open(t.Path)
	if err != nil {
		return fmt.Errorf("open tensor: %w", err)
	}
	defer f.Close()

	size := fmt.Sprintf("%dx%d", t.Width(), t.Height())
	cmd := exec.CommandContext(ctx, e.binPath,
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-video_size", size,
		"-framerate", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outPath,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	streamErr := writeFrames(stdin, f, t, opts)
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		if streamErr != nil {
			return streamErr
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	return streamErr
}

// writeFrames converts every frame to rgb24 and writes it to w. Channel c
// of frame i starts at ((c*F)+i)*H*W*4 in the tensor file.
func writeFrames(w io.Writer, f io.ReaderAt, t *model.Tensor, opts EncodeOptions) error {
	frames, height, width := t.Frames(), t.Height(), t.Width()
	plane := height * width

	raw := make([]byte, plane*4)
	channels := make([][]float32, 3)
	for c := range channels {
		channels[c] = make([]float32, plane)
	}
	frame := make([]byte, plane*3)

	for i := 0; i < frames; i++ {
		for c := 0; c < 3; c++ {
			off := int64(((c*frames)+i)*plane) * 4
			if _, err := io.ReadFull(io.NewSectionReader(f, off, int64(len(raw))), raw); err != nil {
				return fmt.Errorf("read tensor frame %d channel %d: %w", i, c, err)
			}
			for j := 0; j < plane; j++ {
				channels[c][j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*j:]))
			}
		}

		for j := 0; j < plane; j++ {
			frame[3*j+0] = toByte(float64(channels[0][j]), opts)
			frame[3*j+1] = toByte(float64(channels[1][j]), opts)
			frame[3*j+2] = toByte(float64(channels[2][j]), opts)
		}

		if _, err := w.Write(frame); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}

// toByte maps a tensor value to an 8-bit channel. With Normalize the value
// range (typically [-1,1]) is rescaled to [0,1] first, then clamped.
func toByte(v float64, opts EncodeOptions) byte {
	if opts.Normalize {
		lo, hi := opts.ValueRange[0], opts.ValueRange[1]
		if hi > lo {
			v = (v - lo) / (hi - lo)
		}
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return byte(v*255 + 0.5)
}
