package worker

import (
	"time"

	"github.com/redis/go-redis/v9"

	"wanvideo/internal/handler"
	"wanvideo/internal/pkg/logger"
)

type Deps struct {
	RDB       *redis.Client
	Handler   *handler.Handler
	QueueName string
	EventTTL  time.Duration
	Log       *logger.Logger
}
