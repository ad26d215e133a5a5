package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner performs a single poll cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// ParseSchedule returns the delay schedule between poll cycles. An empty spec means
// a fixed delay of every; otherwise spec is a standard cron expression or descriptor
// such as "@every 10m".
func ParseSchedule(spec string, every time.Duration) (cron.Schedule, error) {
	if spec == "" {
		return cron.Every(every), nil
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// PollScheduler runs poll cycles one after another. After each cycle, whatever its
// outcome, it waits until the schedule's next activation before starting the next one.
type PollScheduler struct {
	runner   CycleRunner
	schedule cron.Schedule
	logger   *logrus.Entry
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPollScheduler(runner CycleRunner, schedule cron.Schedule, logger *logrus.Entry) *PollScheduler {
	return &PollScheduler{
		runner:   runner,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the poll loop in the background until Stop is called.
func (s *PollScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting poll scheduler...")
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.WithError(err).Error("Poll scheduler stopped unexpectedly")
		}
	}()
}

// Stop cancels the loop and waits for the current cycle to return.
func (s *PollScheduler) Stop() {
	s.logger.Info("Stopping poll scheduler...")
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Poll scheduler gracefully stopped.")
}

// Run blocks, executing cycles until ctx is done. It returns ctx.Err().
func (s *PollScheduler) Run(ctx context.Context) error {
	for {
		if err := s.runOnce(ctx); err != nil {
			return err
		}
	}
}

func (s *PollScheduler) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("Poll cycle panicked")
		}
		if waitErr := s.wait(ctx); waitErr != nil {
			err = waitErr
		}
	}()

	if cycleErr := s.runner.RunCycle(ctx); cycleErr != nil && ctx.Err() == nil {
		// Only reached when the failure report itself could not be delivered.
		s.logger.WithError(cycleErr).Error("Poll cycle failure could not be reported to the chat")
	}
	return nil
}

func (s *PollScheduler) wait(ctx context.Context) error {
	next := s.schedule.Next(s.now())
	timer := time.NewTimer(next.Sub(s.now()))
	defer timer.Stop()

	s.logger.WithField("next_run", next.Format(time.RFC3339)).Debug("Waiting for next poll cycle")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
