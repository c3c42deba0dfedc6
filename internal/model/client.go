package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"

	"wanvideo/internal/pkg/errors"
)

// Client talks to the inference sidecar over HTTP. Load and generate have
// no client-side timeout: model loading and diffusion sampling take
// minutes, and the job contract places no deadline on inference.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// RuntimeConfig is the configuration object exposed by the loaded model.
type RuntimeConfig struct {
	SampleFPS       int    `json:"sample_fps"`
	SampleNegPrompt string `json:"sample_neg_prompt"`
}

type loadRequest struct {
	CheckpointDir string `json:"checkpoint_dir"`
}

// GenerateRequest carries one generate call. Image is encoded to PNG for
// the wire; field names follow the model library's generate signature.
type GenerateRequest struct {
	Prompt         string
	Image          image.Image
	MaxArea        int
	FrameNum       int
	Shift          float64
	SampleSolver   string
	SamplingSteps  int
	GuideScale     float64
	NegativePrompt string
	Seed           int64
	OffloadModel   bool
}

type generateWire struct {
	Prompt        string  `json:"prompt"`
	ImageB64      string  `json:"image_b64"`
	MaxArea       int     `json:"max_area"`
	FrameNum      int     `json:"frame_num"`
	Shift         float64 `json:"shift"`
	SampleSolver  string  `json:"sample_solver"`
	SamplingSteps int     `json:"sampling_steps"`
	GuideScale    float64 `json:"guide_scale"`
	NPrompt       string  `json:"n_prompt"`
	Seed          int64   `json:"seed"`
	OffloadModel  bool    `json:"offload_model"`
}

type generateResponse struct {
	TensorPath string `json:"tensor_path"`
	Shape      [4]int `json:"shape"`
}

// Load instructs the sidecar to load the model from the checkpoint
// directory and returns its configuration.
func (c *Client) Load(ctx context.Context, checkpointDir string) (*RuntimeConfig, error) {
	var cfg RuntimeConfig
	if err := c.post(ctx, "/load", loadRequest{CheckpointDir: checkpointDir}, &cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeModel, "model.load", "failed to load model")
	}
	if cfg.SampleFPS <= 0 {
		cfg.SampleFPS = DefaultSampleFPS
	}
	if cfg.SampleNegPrompt == "" {
		cfg.SampleNegPrompt = defaultNegativePrompt
	}
	return &cfg, nil
}

// Generate runs one inference call and returns the tensor handle. Failures
// keep the sidecar's message so OOM/CUDA errors classify as memory errors.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Tensor, error) {
	imageB64, err := encodeImage(req.Image)
	if err != nil {
		return nil, errors.Wrap(err, "model.generate", "failed to encode input image")
	}

	wire := generateWire{
		Prompt:        req.Prompt,
		ImageB64:      imageB64,
		MaxArea:       req.MaxArea,
		FrameNum:      req.FrameNum,
		Shift:         req.Shift,
		SampleSolver:  req.SampleSolver,
		SamplingSteps: req.SamplingSteps,
		GuideScale:    req.GuideScale,
		NPrompt:       req.NegativePrompt,
		Seed:          req.Seed,
		OffloadModel:  req.OffloadModel,
	}

	var res generateResponse
	if err := c.post(ctx, "/generate", wire, &res); err != nil {
		return nil, errors.WrapWithCode(err, errors.Classify(err), "model.generate", "video generation failed")
	}

	t := &Tensor{Path: res.TensorPath, Shape: res.Shape}
	if err := t.Validate(); err != nil {
		return nil, errors.Wrap(err, "model.generate", "runtime returned unusable tensor")
	}
	return t, nil
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("runtime http %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}

	return json.NewDecoder(res.Body).Decode(out)
}

func encodeImage(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
