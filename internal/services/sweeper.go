package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"sealed-auction/internal/domain"
	"sealed-auction/pkg/logger"
)

// ResolutionSweeper periodically resolves expired auctions and abandons
// pending verifications past their deadline. With multiple engine instances
// behind the same redis, only the elected leader sweeps.
type ResolutionSweeper struct {
	cron       *cron.Cron
	engine     *Engine
	leader     domain.LeaderElection
	instanceID string
	caller     string
	interval   time.Duration
	log        logger.Logger
}

func NewResolutionSweeper(
	engine *Engine,
	leader domain.LeaderElection,
	instanceID string,
	caller string,
	interval time.Duration,
	log logger.Logger,
) *ResolutionSweeper {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ResolutionSweeper{
		cron:       cron.New(cron.WithSeconds()),
		engine:     engine,
		leader:     leader,
		instanceID: instanceID,
		caller:     caller,
		interval:   interval,
		log:        log,
	}
}

func (s *ResolutionSweeper) Start(ctx context.Context) error {
	s.log.Info("Starting resolution sweeper", "interval", s.interval)

	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *ResolutionSweeper) Stop() error {
	s.log.Info("Stopping resolution sweeper")
	s.cron.Stop()
	return nil
}

func (s *ResolutionSweeper) sweep(ctx context.Context) {
	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Leader check failed, skipping sweep", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	if abandoned := s.engine.AbandonExpiredVerifications(ctx); abandoned > 0 {
		s.log.Info("Abandoned stale verifications", "count", abandoned)
	}

	expired := s.engine.ExpiredUnresolved(ctx)
	if len(expired) == 0 {
		return
	}

	resolved, err := s.engine.BatchResolveAuctions(ctx, s.caller, expired)
	if err != nil {
		s.log.Error("Sweep batch resolve failed", "error", err)
		return
	}
	s.log.Info("Sweep resolved expired auctions", "expired", len(expired), "resolved", resolved)
}
