package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

// TaskInspector reaches into tasks already sitting in the queue. The
// scheduler uses it to disarm an auction's clock after a buy-now close.
type TaskInspector interface {
	DeleteTask(ctx context.Context, queue, taskID string) error
}

type RedisTaskInspector struct {
	inspector *asynq.Inspector
}

func NewTaskInspector(redisOpt asynq.RedisClientOpt) TaskInspector {
	return &RedisTaskInspector{
		inspector: asynq.NewInspector(redisOpt),
	}
}

func (i *RedisTaskInspector) DeleteTask(ctx context.Context, queue, taskID string) error {
	return i.inspector.DeleteTask(queue, taskID)
}
