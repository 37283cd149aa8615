package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

const (
	TaskCloseAuction = "auction:close"
	TaskSendOutcome  = "auction:outcome"
)

/*
This file contains the code to create tasks and distribute them to the Redis queue.
*/

type TaskDistributor interface {
	DistributeTaskCloseAuction(ctx context.Context, payload *PayloadCloseAuction, opts ...asynq.Option) error
	DistributeTaskSendOutcome(ctx context.Context, payload *PayloadSendOutcome, opts ...asynq.Option) error
}

type RedisTaskDistributor struct {
	client *asynq.Client // client sends tasks to redis queue.
}

func NewTaskDistributor(redisOpt asynq.RedisClientOpt) TaskDistributor {
	client := asynq.NewClient(redisOpt)

	return &RedisTaskDistributor{
		client: client,
	}
}
