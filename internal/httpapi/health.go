package httpapi

import (
	"context"
	"net/http"
	"time"

	"wanvideo/internal/httpkit"
	"wanvideo/internal/pkg/logger"
)

type handler struct {
	deps Deps
	log  *logger.Logger
}

func newHandler(d Deps, log *logger.Logger) *handler {
	return &handler{deps: d, log: log.WithComponent("httpapi")}
}

// Health reports service liveness; ?deep=true also checks the queue
// connection, the model handle, and the upload provider.
func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	health := map[string]any{
		"status":  "ok",
		"service": "wanvideo-worker",
		"version": "0.1.0",
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, check := range checks {
			if checkMap, ok := check.(map[string]any); ok {
				if checkMap["status"] != "ok" {
					health["status"] = "degraded"
					log.Warn("health check degraded", "checks", checks)
					break
				}
			}
		}
	}

	httpkit.WriteJSON(w, 200, health)
}

func (h *handler) deepHealthCheck(ctx context.Context) map[string]any {
	checks := make(map[string]any)
	checks["redis"] = h.checkRedis(ctx)
	checks["model"] = h.checkModel()
	checks["upload"] = h.checkUpload()
	return checks
}

func (h *handler) checkRedis(ctx context.Context) map[string]any {
	start := time.Now()
	result := map[string]any{
		"status": "ok",
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if h.deps.RDB == nil {
		result["status"] = "error"
		result["error"] = "not configured"
	} else if err := h.deps.RDB.Ping(checkCtx).Err(); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}

func (h *handler) checkModel() map[string]any {
	// Loading takes minutes; a not-yet-loaded model is healthy, it just
	// has not served a job.
	return map[string]any{
		"status": "ok",
		"loaded": h.deps.Models != nil && h.deps.Models.Loaded(),
	}
}

func (h *handler) checkUpload() map[string]any {
	result := map[string]any{
		"status": "ok",
	}
	if h.deps.Uploader != nil {
		result["provider"] = h.deps.Uploader.Provider()
	}
	return result
}
