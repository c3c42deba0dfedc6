// Package httpapi exposes the worker's health endpoint.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"wanvideo/internal/model"
	"wanvideo/internal/pkg/logger"
	"wanvideo/internal/pkg/middleware"
	"wanvideo/internal/upload"
)

type Deps struct {
	RDB      *redis.Client
	Models   *model.Provider
	Uploader upload.Uploader
	Log      *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))

	h := newHandler(d, log)
	r.Get("/health", h.Health)

	return r
}
