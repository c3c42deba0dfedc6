package shutdown

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"wanvideo/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: &buf,
	})
}

func TestNewManager(t *testing.T) {
	log := newTestLogger()

	t.Run("with default timeout", func(t *testing.T) {
		mgr := NewManager(log, 0)
		if mgr == nil {
			t.Fatal("expected manager to be non-nil")
		}
		if mgr.timeout != 30*time.Second {
			t.Errorf("expected default timeout 30s, got %s", mgr.timeout)
		}
	})

	t.Run("with custom timeout", func(t *testing.T) {
		mgr := NewManager(log, 10*time.Second)
		if mgr.timeout != 10*time.Second {
			t.Errorf("expected timeout 10s, got %s", mgr.timeout)
		}
	})
}

func TestRegister(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	mgr.Register("queue", func(ctx context.Context) error {
		return nil
	})

	if len(mgr.handlers) != 1 {
		t.Errorf("expected 1 handler, got %d", len(mgr.handlers))
	}
	if mgr.handlers[0].Name != "queue" {
		t.Errorf("expected handler name 'queue', got %s", mgr.handlers[0].Name)
	}
}

func TestShutdownRunsAllHandlers(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	var ran int32
	mgr.Register("first", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	mgr.RegisterSimple("second", func() {
		atomic.AddInt32(&ran, 1)
	})
	mgr.Register("failing", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return errors.New("cleanup failed")
	})

	mgr.Shutdown()

	if got := atomic.LoadInt32(&ran); got != 3 {
		t.Errorf("expected all 3 handlers to run, got %d", got)
	}

	select {
	case <-mgr.Done():
	default:
		t.Error("expected Done channel to be closed after Shutdown")
	}
}

func TestShutdownTimeout(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 50*time.Millisecond)

	mgr.Register("slow", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return nil
	})

	start := time.Now()
	mgr.Shutdown()

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expected shutdown to give up after timeout, took %s", elapsed)
	}
}
