package model

import (
	"context"
	"os"
	"sync"

	"wanvideo/internal/pkg/errors"
)

// Runtime is a loaded model handle ready for inference calls.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*Tensor, error)
}

// RuntimeLoader loads the model and then serves inference. *Client
// implements it; tests substitute fakes.
type RuntimeLoader interface {
	Runtime
	Load(ctx context.Context, checkpointDir string) (*RuntimeConfig, error)
}

// Provider hands out the process-wide model handle. The first acquisition
// loads the model under a mutex; later ones return the cached handle
// without touching the sidecar. A failed load is not cached, so the next
// job retries.
type Provider struct {
	mu            sync.Mutex
	loader        RuntimeLoader
	checkpointDir string
	runtime       Runtime
	cfg           *RuntimeConfig
}

func NewProvider(loader RuntimeLoader, checkpointDir string) *Provider {
	return &Provider{
		loader:        loader,
		checkpointDir: checkpointDir,
	}
}

// Acquire returns the loaded runtime and its config, loading on first use.
func (p *Provider) Acquire(ctx context.Context) (Runtime, *RuntimeConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runtime != nil {
		return p.runtime, p.cfg, nil
	}

	if _, err := os.Stat(p.checkpointDir); err != nil {
		return nil, nil, errors.Newf(errors.CodeModel, "model path not found: %s", p.checkpointDir)
	}

	cfg, err := p.loader.Load(ctx, p.checkpointDir)
	if err != nil {
		return nil, nil, err
	}

	p.runtime = p.loader
	p.cfg = cfg
	return p.runtime, p.cfg, nil
}

// Loaded reports whether the model handle has been initialized. Used by
// the health endpoint.
func (p *Provider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runtime != nil
}
