package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/nhattran/livebid-BE/internal/auction"
)

// AuctionScheduler implements auction.Scheduler on top of the asynq
// distributor and inspector. Task IDs carry the deduplication: re-arming a
// close or re-enqueueing an outcome hits an ID conflict and is treated as
// success.
type AuctionScheduler struct {
	distributor TaskDistributor
	inspector   TaskInspector
}

func NewAuctionScheduler(distributor TaskDistributor, inspector TaskInspector) *AuctionScheduler {
	return &AuctionScheduler{
		distributor: distributor,
		inspector:   inspector,
	}
}

func (s *AuctionScheduler) ScheduleClose(ctx context.Context, auctionID uuid.UUID, at time.Time) error {
	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Queue(QueueCritical),
		asynq.ProcessAt(at),
	}

	err := s.distributor.DistributeTaskCloseAuction(ctx, &PayloadCloseAuction{AuctionID: auctionID}, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (s *AuctionScheduler) CancelClose(ctx context.Context, auctionID uuid.UUID) error {
	return s.inspector.DeleteTask(ctx, QueueCritical, CloseAuctionTaskID(auctionID))
}

func (s *AuctionScheduler) ScheduleOutcome(ctx context.Context, auctionID uuid.UUID, auctionTitle, bidderID string, outcome auction.Outcome, amount int64) error {
	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Queue(QueueCritical),
	}

	err := s.distributor.DistributeTaskSendOutcome(ctx, &PayloadSendOutcome{
		RecipientID:  bidderID,
		AuctionID:    auctionID,
		AuctionTitle: auctionTitle,
		Outcome:      outcome,
		Amount:       amount,
	}, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
