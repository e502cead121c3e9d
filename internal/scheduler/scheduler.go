// Package scheduler wires up the cron job that executes auto-run draws
// once their scheduled time has passed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"fairdraw/internal/selection"
	"fairdraw/internal/service"
)

// Scheduler polls for due draws and runs them through the draw service.
type Scheduler struct {
	cron        *cron.Cron
	drawService service.DrawService
	logger      *zap.Logger
	spec        string // cron spec, e.g. "@every 30s"
}

func New(drawService service.DrawService, pollIntervalSeconds int64, logger *zap.Logger) *Scheduler {
	if pollIntervalSeconds <= 0 {
		pollIntervalSeconds = 30
	}
	return &Scheduler{
		cron:        cron.New(),
		drawService: drawService,
		logger:      logger,
		spec:        fmt.Sprintf("@every %ds", pollIntervalSeconds),
	}
}

// Start registers the polling job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runDueDraws(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Draw scheduler started", zap.String("spec", s.spec))
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Draw scheduler stopped")
}

func (s *Scheduler) runDueDraws(ctx context.Context) {
	draws, err := s.drawService.ListDueDraws(time.Now().UTC())
	if err != nil {
		s.logger.Error("Failed to list due draws", zap.Error(err))
		return
	}

	for _, draw := range draws {
		if ctx.Err() != nil {
			return
		}
		s.logger.Info("Executing scheduled draw",
			zap.String("draw_id", draw.ID),
			zap.String("title", draw.Title))

		if _, err := s.drawService.Execute(ctx, draw.ID); err != nil {
			var capErr *selection.CapacityError
			switch {
			case errors.As(err, &capErr):
				// Fatal for this draw; it is marked failed, the
				// operator has to add entries or lower the counts.
				s.logger.Warn("Scheduled draw lacks eligible participants",
					zap.String("draw_id", draw.ID),
					zap.Int("eligible", capErr.Eligible),
					zap.Int("requested", capErr.Requested))
			case errors.Is(err, service.ErrAlreadyRunning), errors.Is(err, service.ErrDrawNotReady):
				// Another instance picked it up first.
				s.logger.Debug("Scheduled draw already claimed", zap.String("draw_id", draw.ID))
			default:
				s.logger.Error("Failed to execute scheduled draw",
					zap.String("draw_id", draw.ID), zap.Error(err))
			}
		}
	}
}
