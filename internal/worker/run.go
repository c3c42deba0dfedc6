// Package worker runs the long-lived service mode: it pops dispatched
// jobs from the platform queue and streams each job's events back.
package worker

import (
	"context"
	"errors"
	"time"

	"wanvideo/internal/handler"
	"wanvideo/internal/pkg/logger"
	"wanvideo/internal/worker/queue"
)

// Run consumes the job queue until ctx is canceled. Jobs never abort the
// loop: the handler converts every failure into a terminal event.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	q := queue.NewRedisQueue(d.RDB, d.QueueName)

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		// Bound each blocking pop so shutdown is observed promptly.
		popCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		payload, err := q.Pop(popCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				// Idle tick, nothing queued.
				continue
			}

			log.Warn("queue pop error, retrying",
				"error", err.Error(),
			)
			time.Sleep(1 * time.Second)
			continue
		}

		if payload == "" {
			continue
		}

		job, err := handler.ParseJob([]byte(payload))
		if err != nil {
			log.Warn("dropping undecodable job payload",
				"error", err.Error(),
			)
			continue
		}

		jobCtx := logger.ContextWithJobID(ctx, job.ID)
		jobLog := log.WithJobID(job.ID)
		sink := queue.NewRedisSink(d.RDB, job.ID, d.EventTTL, log)

		jobLog.Info("processing job")
		startTime := time.Now()

		d.Handler.Process(jobCtx, job, sink.Emit)

		jobLog.Info("job finished",
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
	}
}
