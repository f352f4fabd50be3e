package queue

import (
	"github.com/hibiken/asynq"
	"github.com/hugh/zenshin-chart/pkg/config"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
	}
}

func NewClient(cfg *config.RedisConfig) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

func NewServer(cfg *config.RedisConfig, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueDefault: 3,
				QueueLow:     1,
			},
		},
	)
}

// NewScheduler returns a scheduler that enqueues periodic tasks on the same
// Redis as the worker.
func NewScheduler(cfg *config.RedisConfig) *asynq.Scheduler {
	return asynq.NewScheduler(redisOpt(cfg), nil)
}
