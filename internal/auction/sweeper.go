package auction

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Sweeper periodically closes auctions whose end time passed without the
// scheduled close task firing (missed timer, restart before re-arming).
// Close is idempotent, so the sweep racing the timer is harmless.
type Sweeper struct {
	engine    *Engine
	scheduler gocron.Scheduler
	interval  time.Duration
}

func NewSweeper(engine *Engine, interval time.Duration) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Sweeper{
		engine:    engine,
		scheduler: scheduler,
		interval:  interval,
	}, nil
}

// Start runs the sweep job until Stop is called.
func (s *Sweeper) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(
			func() {
				ctx, cancel := context.WithTimeout(context.Background(), s.interval)
				defer cancel()
				s.engine.CloseExpired(ctx)
			},
		),
	)
	if err != nil {
		return err
	}

	s.scheduler.Start()
	log.Info().Dur("interval", s.interval).Msg("auction sweep started")
	return nil
}

func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
