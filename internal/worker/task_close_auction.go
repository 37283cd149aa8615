package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type PayloadCloseAuction struct {
	AuctionID uuid.UUID `json:"auction_id"`
}

// CloseAuctionTaskID builds the deduplicating task ID for one auction's
// scheduled close.
func CloseAuctionTaskID(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:close:%s", auctionID.String())
}

func (distributor *RedisTaskDistributor) DistributeTaskCloseAuction(
	ctx context.Context,
	payload *PayloadCloseAuction,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	taskID := CloseAuctionTaskID(payload.AuctionID)
	task := asynq.NewTask(TaskCloseAuction, jsonPayload, append(opts, asynq.TaskID(taskID))...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().
		Str("type", task.Type()).
		Str("task_id", taskID).
		Str("auction_id", payload.AuctionID.String()).
		Str("queue", info.Queue).
		Time("process_at", info.NextProcessAt).
		Msg("auction close task scheduled")

	return nil
}

func (processor *RedisTaskProcessor) ProcessTaskCloseAuction(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadCloseAuction
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	log.Info().
		Str("auction_id", payload.AuctionID.String()).
		Msg("processing auction close task")

	result, err := processor.engine.Close(ctx, payload.AuctionID)
	if err != nil {
		log.Error().
			Err(err).
			Str("auction_id", payload.AuctionID.String()).
			Msg("failed to close auction")
		return err
	}

	log.Info().
		Str("auction_id", payload.AuctionID.String()).
		Bool("has_winner", result.Winner != nil).
		Bool("already_closed", result.AlreadyClosed).
		Msg("auction close task processed")

	return nil
}
