package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/nhattran/livebid-BE/internal/auction"
	"github.com/nhattran/livebid-BE/internal/notification"
	"github.com/rs/zerolog/log"
)

// PayloadSendOutcome contains all data of the task that we want to store in Redis.
type PayloadSendOutcome struct {
	RecipientID  string          `json:"recipient_id"`
	AuctionID    uuid.UUID       `json:"auction_id"`
	AuctionTitle string          `json:"auction_title"`
	Outcome      auction.Outcome `json:"outcome"`
	Amount       int64           `json:"amount"`
}

// OutcomeTaskID builds the deduplicating task ID for one bidder's WIN/LOSE
// notification, giving exactly-once enqueue per (auction, bidder).
func OutcomeTaskID(auctionID uuid.UUID, recipientID string) string {
	return fmt.Sprintf("auction:outcome:%s:%s", auctionID.String(), recipientID)
}

func (distributor *RedisTaskDistributor) DistributeTaskSendOutcome(
	ctx context.Context,
	payload *PayloadSendOutcome,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	taskID := OutcomeTaskID(payload.AuctionID, payload.RecipientID)
	task := asynq.NewTask(TaskSendOutcome, jsonPayload, append(opts, asynq.TaskID(taskID))...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().
		Str("type", task.Type()).
		Str("task_id", taskID).
		Str("queue", info.Queue).
		Msg("outcome notification task enqueued")

	return nil
}

func (processor *RedisTaskProcessor) ProcessTaskSendOutcome(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadSendOutcome
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	err := processor.notifier.NotifyOutcome(ctx, notification.Outcome{
		RecipientID:  payload.RecipientID,
		AuctionID:    payload.AuctionID,
		AuctionTitle: payload.AuctionTitle,
		Outcome:      string(payload.Outcome),
		Amount:       payload.Amount,
	})
	if err != nil {
		log.Error().Err(err).
			Str("recipient_id", payload.RecipientID).
			Str("auction_id", payload.AuctionID.String()).
			Msg("failed to send outcome notification")
		return err
	}

	log.Info().
		Str("recipient_id", payload.RecipientID).
		Str("auction_id", payload.AuctionID.String()).
		Str("outcome", string(payload.Outcome)).
		Msg("outcome notification sent")

	return nil
}
