package auction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLose Outcome = "LOSE"
)

// Scheduler is the engine's boundary to deferred work. The production
// implementation lives in internal/worker on top of asynq; tests plug in a
// recording fake.
type Scheduler interface {
	// ScheduleClose arms the auction clock. Implementations must deduplicate
	// by auction id so re-arming after a restart is harmless.
	ScheduleClose(ctx context.Context, auctionID uuid.UUID, at time.Time) error

	// CancelClose disarms a previously scheduled close (buy-now path).
	CancelClose(ctx context.Context, auctionID uuid.UUID) error

	// ScheduleOutcome delivers a WIN/LOSE notification to one bidder.
	// Implementations must deduplicate by (auction id, bidder id) so each
	// participant is notified exactly once per close.
	ScheduleOutcome(ctx context.Context, auctionID uuid.UUID, auctionTitle, bidderID string, outcome Outcome, amount int64) error
}
