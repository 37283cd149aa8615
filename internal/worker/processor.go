package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/nhattran/livebid-BE/internal/auction"
	"github.com/nhattran/livebid-BE/internal/notification"
	"github.com/rs/zerolog/log"
)

/*
This file contains the code that picks up tasks from the Redis queue and processes them.
*/

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

type RedisTaskProcessor struct {
	server   *asynq.Server
	engine   *auction.Engine
	notifier notification.Notifier
}

func NewRedisTaskProcessor(redisOpt asynq.RedisClientOpt, engine *auction.Engine, notifier notification.Notifier) *RedisTaskProcessor {
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 10,
				QueueDefault:  5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("type", task.Type()).
					Bytes("payload", task.Payload()).Msg("process task failed")
			}),
			Logger: NewLogger(),
		},
	)

	return &RedisTaskProcessor{
		server:   server,
		engine:   engine,
		notifier: notifier,
	}
}

// Start registers the task handlers for the mux, attaches the mux to the asynq server, and starts the server.
func (processor *RedisTaskProcessor) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskCloseAuction, processor.ProcessTaskCloseAuction)
	mux.HandleFunc(TaskSendOutcome, processor.ProcessTaskSendOutcome)

	return processor.server.Start(mux)
}

func (processor *RedisTaskProcessor) Shutdown() {
	processor.server.Shutdown()
}
