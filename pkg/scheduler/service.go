// Package scheduler triggers periodic retraining runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pricecast-to/pricecast-go/pkg/pipeline"
	"github.com/pricecast-to/pricecast-go/utils"
)

// Service runs the pipeline on a fixed cron schedule
type Service struct {
	runner *pipeline.Runner
	logger *utils.Logger
	cron   *cron.Cron
	spec   string
}

// NewService creates a scheduler for the given cron expression
func NewService(runner *pipeline.Runner, spec string, logger *utils.Logger) (*Service, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	return &Service{
		runner: runner,
		logger: logger,
		cron:   cron.New(),
		spec:   spec,
	}, nil
}

// Start registers the retraining job and starts the cron loop. It returns
// immediately; call Stop to shut down.
func (s *Service) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		started := time.Now()
		result, err := s.runner.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled run failed", err)
			return
		}
		s.logger.Info("scheduled run complete",
			utils.RunID(result.RunID),
			utils.Float("duration_s", time.Since(started).Seconds()))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retraining job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("retraining scheduler started", utils.String("cron", s.spec))

	if sched, err := cron.ParseStandard(s.spec); err == nil {
		s.logger.Info("next retraining run",
			utils.String("at", sched.Next(time.Now()).Format(time.RFC3339)))
	}

	return nil
}

// Stop stops the cron loop and waits for a running job to finish
func (s *Service) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("retraining scheduler stopped")
}
