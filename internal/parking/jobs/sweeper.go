package jobs

import (
	"context"
	"fmt"
	"smartpark/pkg/logger"
	"time"

	"github.com/robfig/cron/v3"
)

type Sweepable interface {
	Sweep(ctx context.Context) (int, error)
}

// Sweeper runs Sweep on a cron schedule. Runs never overlap: a tick that
// arrives while the previous sweep is still going is skipped.
type Sweeper struct {
	cron    *cron.Cron
	target  Sweepable
	timeout time.Duration
	log     *logger.Logger
	entry   cron.EntryID
	spec    string
}

func NewSweeper(target Sweepable, schedule string, loc *time.Location, timeout time.Duration, log *logger.Logger) (*Sweeper, error) {
	if loc == nil {
		loc = time.UTC
	}
	log = log.Component("sweeper")
	cl := cronLogger{log: log}

	s := &Sweeper{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		target:  target,
		timeout: timeout,
		log:     log,
	}

	id, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.entry = id
	s.spec = schedule
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info("Expiry sweeper started", "schedule", s.spec)
}

// Stop prevents new runs and waits for a running sweep, or for ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("Expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.target.Sweep(ctx)
	if err != nil {
		s.log.Error("Expiry sweep failed", "error", err)
		return
	}
	s.log.Debug("Expiry sweep finished", "released", n)
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
