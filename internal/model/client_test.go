package model

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"wanvideo/internal/pkg/errors"
)

func TestClientLoadAppliesDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/load" {
			t.Errorf("expected /load, got %s", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["checkpoint_dir"] != "/weights" {
			t.Errorf("expected checkpoint_dir=/weights, got %s", req["checkpoint_dir"])
		}
		// Sidecar reports nothing useful; client must fall back.
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg, err := NewClient(srv.URL).Load(context.Background(), "/weights")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SampleFPS != DefaultSampleFPS {
		t.Errorf("expected default fps %d, got %d", DefaultSampleFPS, cfg.SampleFPS)
	}
	if cfg.SampleNegPrompt == "" {
		t.Error("expected default negative prompt to be applied")
	}
}

func TestClientLoadErrorIsModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "weights checksum mismatch", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Load(context.Background(), "/weights")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeModel) {
		t.Errorf("expected MODEL_ERROR, got %s", errors.CodeOf(err))
	}
}

func TestClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("expected /generate, got %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["prompt"] != "a cat" {
			t.Errorf("expected prompt 'a cat', got %v", req["prompt"])
		}
		if req["frame_num"] != float64(81) {
			t.Errorf("expected frame_num 81, got %v", req["frame_num"])
		}
		if req["sample_solver"] != "unipc" {
			t.Errorf("expected sample_solver unipc, got %v", req["sample_solver"])
		}
		if req["seed"] != float64(-1) {
			t.Errorf("expected seed -1, got %v", req["seed"])
		}
		if req["offload_model"] != true {
			t.Errorf("expected offload_model true, got %v", req["offload_model"])
		}
		if req["image_b64"] == "" {
			t.Error("expected non-empty image payload")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"tensor_path": "/tmp/tensor.bin",
			"shape":       [4]int{3, 81, 480, 832},
		})
	}))
	defer srv.Close()

	tensor, err := NewClient(srv.URL).Generate(context.Background(), GenerateRequest{
		Prompt:        "a cat",
		Image:         image.NewRGBA(image.Rect(0, 0, 1, 1)),
		MaxArea:       832 * 480,
		FrameNum:      FrameNum,
		Shift:         3.0,
		SampleSolver:  SampleSolver,
		SamplingSteps: SamplingSteps,
		GuideScale:    GuideScale,
		Seed:          -1,
		OffloadModel:  OffloadModel,
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if tensor.Path != "/tmp/tensor.bin" {
		t.Errorf("expected tensor path /tmp/tensor.bin, got %s", tensor.Path)
	}
	if tensor.Frames() != 81 {
		t.Errorf("expected 81 frames, got %d", tensor.Frames())
	}
}

func TestClientGenerateErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		body string
		want errors.Code
	}{
		{"cuda oom", "CUDA out of memory. Tried to allocate 2.00 GiB", errors.CodeMemory},
		{"plain failure", "sampler diverged", errors.CodeGeneration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tt.body, http.StatusInternalServerError)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Generate(context.Background(), GenerateRequest{
				Prompt: "x",
				Image:  image.NewRGBA(image.Rect(0, 0, 1, 1)),
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, tt.want) {
				t.Errorf("expected %s, got %s", tt.want, errors.CodeOf(err))
			}
		})
	}
}
