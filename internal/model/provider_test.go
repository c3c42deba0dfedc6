package model

import (
	"context"
	"path/filepath"
	"testing"

	"wanvideo/internal/pkg/errors"
)

type fakeLoader struct {
	loads   int
	loadErr error
}

func (f *fakeLoader) Load(ctx context.Context, checkpointDir string) (*RuntimeConfig, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return &RuntimeConfig{SampleFPS: 16, SampleNegPrompt: "neg"}, nil
}

func (f *fakeLoader) Generate(ctx context.Context, req GenerateRequest) (*Tensor, error) {
	return &Tensor{Path: "/tmp/t.bin", Shape: [4]int{3, 81, 480, 832}}, nil
}

func TestProviderMissingCheckpointDir(t *testing.T) {
	loader := &fakeLoader{}
	p := NewProvider(loader, filepath.Join(t.TempDir(), "does-not-exist"))

	_, _, err := p.Acquire(context.Background())
	if err == nil {
		t.Fatal("expected error for missing checkpoint dir")
	}
	if !errors.IsCode(err, errors.CodeModel) {
		t.Errorf("expected MODEL_ERROR, got %s", errors.CodeOf(err))
	}
	if loader.loads != 0 {
		t.Errorf("expected no load attempt, got %d", loader.loads)
	}
	if p.Loaded() {
		t.Error("expected provider to stay unloaded")
	}
}

func TestProviderLoadsOnce(t *testing.T) {
	loader := &fakeLoader{}
	p := NewProvider(loader, t.TempDir())

	rt1, cfg1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if cfg1.SampleFPS != 16 {
		t.Errorf("expected fps 16, got %d", cfg1.SampleFPS)
	}

	rt2, cfg2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}

	if loader.loads != 1 {
		t.Errorf("expected exactly one load, got %d", loader.loads)
	}
	if rt1 != rt2 || cfg1 != cfg2 {
		t.Error("expected cached runtime and config on second acquire")
	}
	if !p.Loaded() {
		t.Error("expected provider to report loaded")
	}
}

func TestProviderRetriesAfterFailedLoad(t *testing.T) {
	loader := &fakeLoader{loadErr: errors.Model("weights corrupt")}
	p := NewProvider(loader, t.TempDir())

	if _, _, err := p.Acquire(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if p.Loaded() {
		t.Error("failed load must not be cached")
	}

	loader.loadErr = nil
	if _, _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if loader.loads != 2 {
		t.Errorf("expected two load attempts, got %d", loader.loads)
	}
}
