// Package queue binds the worker to the platform's Redis lists: one list
// feeds job payloads in, one list per job carries its events out.
package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisQueue pops dispatched job payloads.
type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

// Pop blocks until a job payload is available (BRPOP) or ctx expires.
func (q *RedisQueue) Pop(ctx context.Context) (string, error) {
	res, err := q.rdb.BRPop(ctx, 0, q.queueName).Result()
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}
