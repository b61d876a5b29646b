// Package schedule triggers conversion passes from a cron spec.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"officeconv/internal/runs"
)

// Checker reports whether the converter binary is usable. Satisfied by
// *soffice.Runner.
type Checker interface {
	Check() error
}

// Scheduler starts a background pass on every tick of a standard 5-field
// cron spec. Ticks that land while a pass is still active, or while the
// converter binary is unusable, are skipped.
type Scheduler struct {
	spec  string
	cron  *cron.Cron
	mgr   *runs.Manager
	check Checker
	log   *slog.Logger

	ctx context.Context // lifetime for started passes, set by Start
}

func New(spec string, mgr *runs.Manager, check Checker, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		spec:  spec,
		cron:  cron.New(),
		mgr:   mgr,
		check: check,
		log:   log.With("component", "schedule"),
	}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", spec, err)
	}

	return s, nil
}

// Start begins firing ticks. Passes started by ticks run under ctx, so
// canceling it aborts in-flight conversions.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.log.Info("scheduled passes enabled", "spec", s.spec)
}

// Stop ends ticking and waits for tick callbacks to return. Passes already
// started keep running until their context is canceled.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	if err := s.check.Check(); err != nil {
		s.log.Error("skipping scheduled pass, converter unavailable", "error", err)
		return
	}

	run, err := s.mgr.Start(s.ctx)
	switch {
	case errors.Is(err, runs.ErrRunActive):
		s.log.Warn("skipping scheduled pass, previous run still active")
	case err != nil:
		s.log.Error("scheduled pass failed to start", "error", err)
	default:
		s.log.Info("scheduled pass started", "run_id", run.ID)
	}
}
