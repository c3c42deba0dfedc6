// Package handler runs one video generation job end to end: validate,
// fetch the input image, acquire the model, generate, encode, upload.
// Every job ends in exactly one terminal event; the handler never returns
// an error to its caller.
package handler

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"wanvideo/internal/model"
	"wanvideo/internal/pkg/logger"
	"wanvideo/internal/video"
)

// ImageFetcher downloads and decodes a job's input image.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// ModelProvider hands out the lazily loaded model runtime and its config.
type ModelProvider interface {
	Acquire(ctx context.Context) (model.Runtime, *model.RuntimeConfig, error)
}

// Encoder writes a generated tensor to an MP4 file.
type Encoder interface {
	Encode(ctx context.Context, t *model.Tensor, outPath string, opts video.EncodeOptions) error
}

// Uploader publishes the encoded file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

type Deps struct {
	Fetcher    ImageFetcher
	Models     ModelProvider
	Encoder    Encoder
	Uploader   Uploader
	ScratchDir string
	Log        *logger.Logger
}

type Handler struct {
	fetcher    ImageFetcher
	models     ModelProvider
	encoder    Encoder
	uploader   Uploader
	scratchDir string
	log        *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	scratch := d.ScratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}
	return &Handler{
		fetcher:    d.Fetcher,
		models:     d.Models,
		encoder:    d.Encoder,
		uploader:   d.Uploader,
		scratchDir: scratch,
		log:        log.WithComponent("handler"),
	}
}

// Process runs the job and emits its event sequence. Validation failures
// short-circuit before any external call; any later failure is converted
// into a single terminal failure event.
func (h *Handler) Process(ctx context.Context, job Job, emit EmitFunc) {
	start := time.Now()
	log := h.log.FromContext(ctx).WithJobID(job.ID)

	if err := job.Input.validate(); err != nil {
		log.Warn("job rejected", "error", err.Error())
		emit(failureEvent(err, secondsSince(start)))
		return
	}

	log.Info("starting video generation",
		"prompt", job.Input.Prompt,
		"resolution", job.Input.Resolution,
	)

	if err := h.run(ctx, job.Input, emit, start); err != nil {
		log.Error("job failed",
			"error", err.Error(),
			"processing_time_s", secondsSince(start),
		)
		emit(failureEvent(err, secondsSince(start)))
		return
	}

	log.Info("job completed", "processing_time_s", secondsSince(start))
}

func (h *Handler) run(ctx context.Context, in Input, emit EmitFunc, start time.Time) error {
	params, _ := model.ParamsForResolution(in.Resolution)

	emit(progressEvent(StatusDownloading, ProgressDownloading, "Downloading input image...", secondsSince(start)))
	img, err := h.fetcher.Fetch(ctx, in.ImageURL)
	if err != nil {
		return err
	}

	emit(progressEvent(StatusLoading, ProgressLoading, "Loading model...", secondsSince(start)))
	rt, cfg, err := h.models.Acquire(ctx)
	if err != nil {
		return err
	}

	emit(progressEvent(StatusGenerating, ProgressGenerating, "Starting video generation...", secondsSince(start)))
	negative := in.Negative
	if negative == "" {
		negative = cfg.SampleNegPrompt
	}
	seed := in.Seed
	if seed < 0 {
		seed = -1
	}
	tensor, err := rt.Generate(ctx, model.GenerateRequest{
		Prompt:         in.Prompt,
		Image:          img,
		MaxArea:        params.MaxArea,
		FrameNum:       model.FrameNum,
		Shift:          params.Shift,
		SampleSolver:   model.SampleSolver,
		SamplingSteps:  model.SamplingSteps,
		GuideScale:     model.GuideScale,
		NegativePrompt: negative,
		Seed:           seed,
		OffloadModel:   model.OffloadModel,
	})
	if err != nil {
		return err
	}

	emit(progressEvent(StatusSaving, ProgressSaving, "Saving video...", secondsSince(start)))
	outPath := filepath.Join(h.scratchDir, fmt.Sprintf("wan21_i2v_%s.mp4", shortID()))
	err = h.encoder.Encode(ctx, tensor, outPath, video.EncodeOptions{
		FPS:        cfg.SampleFPS,
		NRow:       1,
		Normalize:  true,
		ValueRange: [2]float64{-1, 1},
	})
	if err != nil {
		return err
	}

	emit(progressEvent(StatusUploading, ProgressUploading, "Uploading video...", secondsSince(start)))
	videoURL, err := h.uploader.Upload(ctx, outPath)
	if err != nil {
		// The scratch file stays behind on upload failure; disk usage of
		// failed jobs is observable and callers rely on it (see DESIGN.md).
		return err
	}

	if _, statErr := os.Stat(outPath); statErr == nil {
		_ = os.Remove(outPath)
	}

	// The input seed is echoed verbatim, -1 included; the model's resolved
	// seed is not reported back.
	emit(successEvent(videoURL, in.Resolution, in.Seed, round2(secondsSince(start))))
	return nil
}

func secondsSince(start time.Time) float64 {
	return time.Since(start).Seconds()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
