/*
scheduler.go - Background disbursement sweep

PURPOSE:
  Runs a daily cron job that flips scheduled disbursements to "due" once
  their due date arrives. The payout backend polls for due rows; this
  service only marks them.

DESIGN PRINCIPLES:
  - The sweep is idempotent: re-running it on the same day is a no-op for
    rows already marked.
  - A sweep runs once at startup so a restarted service catches up
    immediately instead of waiting for the next cron fire.

SEE ALSO:
  - store/sqlite: MarkDisbursementsDue
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sahayog/grant-engine/store/sqlite"
)

// Scheduler owns the cron runner for the disbursement sweep.
type Scheduler struct {
	cron  *cron.Cron
	store *sqlite.Store
	log   *logrus.Logger
}

// NewScheduler registers the sweep on the given cron spec. An empty spec
// disables the scheduler entirely.
func NewScheduler(store *sqlite.Store, log *logrus.Logger, spec string) (*Scheduler, error) {
	s := &Scheduler{store: store, log: log}
	if spec == "" {
		return s, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, s.sweep); err != nil {
		return nil, err
	}
	s.cron = c
	return s, nil
}

// Start runs an initial catch-up sweep and starts the cron loop.
func (s *Scheduler) Start() {
	s.sweep()
	if s.cron != nil {
		s.cron.Start()
		s.log.Info("disbursement scheduler started")
	}
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.log.Info("disbursement scheduler stopped")
	}
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.store.MarkDisbursementsDue(ctx, time.Now())
	if err != nil {
		s.log.WithError(err).Error("disbursement sweep failed")
		return
	}
	if n > 0 {
		s.log.WithField("count", n).Info("disbursements marked due")
	}
}
