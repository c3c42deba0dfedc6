package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"wanvideo/internal/handler"
	"wanvideo/internal/pkg/logger"
)

// EventsKey returns the Redis list the platform reads a job's events from.
func EventsKey(jobID string) string {
	return "wanvideo:jobs:" + jobID + ":events"
}

// RedisSink appends a job's events to its per-job list. Emission is
// best-effort: a sink failure must not fail the job, so errors are logged
// and swallowed.
type RedisSink struct {
	rdb *redis.Client
	key string
	ttl time.Duration
	log *logger.Logger
}

func NewRedisSink(rdb *redis.Client, jobID string, ttl time.Duration, log *logger.Logger) *RedisSink {
	return &RedisSink{
		rdb: rdb,
		key: EventsKey(jobID),
		ttl: ttl,
		log: log.WithComponent("sink").WithJobID(jobID),
	}
}

// Emit implements handler.EmitFunc.
func (s *RedisSink) Emit(ev handler.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("failed to marshal event", "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.rdb.RPush(ctx, s.key, payload).Err(); err != nil {
		s.log.Warn("failed to push event",
			"status", ev.Status,
			"error", err.Error(),
		)
		return
	}
	if s.ttl > 0 {
		_ = s.rdb.Expire(ctx, s.key, s.ttl).Err()
	}
}
