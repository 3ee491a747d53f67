package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ReconciliationSweeper periodically activates every Scheduled campaign whose start
// time has passed. It keeps no state of its own, so it also covers timers lost in a restart.
type ReconciliationSweeper struct {
	store       CampaignStore
	activator   Activator
	interval    time.Duration
	concurrency int
	now         func() time.Time

	cron *cron.Cron
	job  cron.Job
	wg   sync.WaitGroup
}

func NewReconciliationSweeper(store CampaignStore, activator Activator, interval time.Duration, concurrency int) *ReconciliationSweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	s := &ReconciliationSweeper{
		store:       store,
		activator:   activator,
		interval:    interval,
		concurrency: concurrency,
		now:         time.Now,
	}

	logger := cron.PrintfLogger(logrus.StandardLogger())
	s.cron = cron.New(cron.WithLogger(logger))
	// A sweep that outlives the interval makes the next tick a no-op
	s.job = cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(s.run))
	return s
}

// Start runs one sweep immediately, then one every interval
func (s *ReconciliationSweeper) Start() {
	s.cron.Schedule(cron.Every(s.interval), s.job)
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.job.Run()
	}()
	logrus.Infof("Reconciliation sweeper started (interval: %v)", s.interval)
}

// Stop stops scheduling new sweeps and waits for a running one to finish
func (s *ReconciliationSweeper) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	logrus.Info("Reconciliation sweeper stopped")
}

func (s *ReconciliationSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	activated, err := s.SweepOnce(ctx)
	if err != nil {
		logrus.Errorf("Reconciliation sweep failed: %v", err)
		return
	}
	if activated > 0 {
		logrus.Infof("Reconciliation sweep completed: activated %d campaign(s)", activated)
	} else {
		logrus.Debug("Reconciliation sweep completed: nothing due")
	}
}

// SweepOnce activates every Scheduled campaign due at the current time.
// A failing campaign is logged and does not stop the others.
func (s *ReconciliationSweeper) SweepOnce(ctx context.Context) (int, error) {
	due, err := s.store.FindScheduledDueBy(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to find due campaigns: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	var activated atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, campaign := range due {
		campaign := campaign
		g.Go(func() error {
			ok, err := s.activator.ActivateDue(gctx, campaign.ID)
			switch {
			case errors.Is(err, models.ErrIllegalTransition):
				// Already handled by its timer or an operator
				logrus.WithField("campaign_id", campaign.ID).Debugf("Sweep skipped campaign: %v", err)
			case err != nil:
				logrus.WithField("campaign_id", campaign.ID).Errorf("Sweep failed to activate campaign: %v", err)
			case ok:
				activated.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(activated.Load()), nil
}
