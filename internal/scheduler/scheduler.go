package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/sensor-uplink/internal/store"
)

// Scheduler periodically logs the uploader's status counters.
type Scheduler struct {
	scheduler *gocron.Scheduler
	tracker   *store.StatusTracker
	logger    *zap.Logger
	interval  time.Duration
}

// New creates a new Scheduler.
func New(interval time.Duration, tracker *store.StatusTracker, logger *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		tracker:   tracker,
		logger:    logger,
		interval:  interval,
	}
}

// Start schedules the status job and starts the underlying scheduler.
// A non-positive interval leaves the scheduler idle.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: status report disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.report)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) report() {
	snap := s.tracker.Snapshot()
	fields := []zap.Field{
		zap.Int64("uptime_s", snap.UptimeSeconds),
		zap.Int64("readings", snap.Readings),
		zap.Int64("succeeded", snap.Succeeded),
		zap.Int64("server_errors", snap.ServerErrors),
		zap.Int64("other", snap.Other),
	}
	if snap.LastUploadAt != nil {
		fields = append(fields,
			zap.String("last_status", snap.LastStatus),
			zap.Time("last_upload_at", *snap.LastUploadAt),
		)
	}
	s.logger.Info("status", fields...)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
