package finalizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule runs the sweep hourly.
const DefaultSchedule = "@every 1h"

// Status describes the recent health of scheduled sweeps.
type Status struct {
	Runs                int
	ConsecutiveFailures int
	LastRunID           string
	LastError           string
	LastFinalized       int
	LastAttempt         time.Time
	LastSuccess         time.Time
}

// Scheduler triggers FinalizeStaleGames on a cron schedule. Runs never overlap:
// a tick that fires while the previous sweep is still running is skipped.
type Scheduler struct {
	finalizer *Finalizer
	logger    *zap.Logger
	cron      *cron.Cron
	spec      string

	statusMu sync.RWMutex
	status   Status
}

func NewScheduler(f *Finalizer, spec string, logger *zap.Logger) (*Scheduler, error) {
	if f == nil {
		return nil, fmt.Errorf("nil finalizer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultSchedule
	}
	cl := cronLogger{l: logger.Sugar()}
	s := &Scheduler{
		finalizer: f,
		logger:    logger,
		spec:      spec,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("finalize_scheduler_started", zap.String("schedule", s.spec))
	s.cron.Start()
}

// Stop prevents new runs and waits for a running sweep or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("finalize_scheduler_stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single sweep and records its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	start := time.Now()
	n, err := s.finalizer.FinalizeStaleGames(ctx)

	s.statusMu.Lock()
	s.status.Runs++
	s.status.LastRunID = runID
	s.status.LastAttempt = start
	s.status.LastFinalized = n
	if err != nil {
		s.status.ConsecutiveFailures++
		s.status.LastError = err.Error()
	} else {
		s.status.ConsecutiveFailures = 0
		s.status.LastError = ""
		s.status.LastSuccess = start
	}
	s.statusMu.Unlock()

	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.Int("finalized", n),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		s.logger.Error("finalize_sweep_failed", append(fields, zap.Error(err))...)
		return n, err
	}
	s.logger.Info("finalize_sweep", fields...)
	return n, nil
}

func (s *Scheduler) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
