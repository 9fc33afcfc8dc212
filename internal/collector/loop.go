package collector

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/sensor-uplink/internal/sensor"
	"github.com/i474232898/sensor-uplink/internal/store"
	"github.com/i474232898/sensor-uplink/internal/telemetry"
	"github.com/i474232898/sensor-uplink/internal/uplink"
)

// Uplinker delivers one encoded reading to the collector.
type Uplinker interface {
	Send(ctx context.Context, payload []byte) (uplink.Outcome, error)
}

// Config holds the identifiers stamped on readings and the loop period.
type Config struct {
	LocationID string
	DeviceID   string
	Interval   time.Duration
}

// Loop runs read -> format -> send -> wait until the context ends or a step
// fails. Every step failure is returned to the caller unhandled.
type Loop struct {
	cfg     Config
	sensor  sensor.Sensor
	uplink  Uplinker
	tracker *store.StatusTracker
	out     io.Writer
	logger  *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Loop that prints the operator readout to out.
func New(cfg Config, s sensor.Sensor, u Uplinker, tracker *store.StatusTracker, out io.Writer, logger *zap.Logger) *Loop {
	return &Loop{
		cfg:     cfg,
		sensor:  s,
		uplink:  u,
		tracker: tracker,
		out:     out,
		logger:  logger,
		now:     time.Now,
		sleep:   SleepContext,
	}
}

// Run blocks until ctx is cancelled (returns nil) or an iteration fails.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("collector loop started",
		zap.String("sensor", l.sensor.Name()),
		zap.String("location_id", l.cfg.LocationID),
		zap.String("device_id", l.cfg.DeviceID),
		zap.Duration("interval", l.cfg.Interval),
	)
	for {
		if err := l.iterate(ctx); err != nil {
			if ctx.Err() != nil {
				l.logger.Info("collector loop stopped", zap.Error(ctx.Err()))
				return nil
			}
			return err
		}
		if err := l.sleep(ctx, l.cfg.Interval); err != nil {
			l.logger.Info("collector loop stopped", zap.Error(err))
			return nil
		}
	}
}

func (l *Loop) iterate(ctx context.Context) error {
	m, err := l.sensor.Read(ctx)
	if err != nil {
		return err
	}
	// Stamped after the read returns so the time never precedes the measurement.
	ts := l.now()
	l.tracker.RecordReading()

	fmt.Fprintf(l.out, "relative humidity=%v%%; temperature=%vC\n", m.Humidity, m.Temperature)

	rec := telemetry.NewRecord(m.Humidity, m.Temperature, l.cfg.LocationID, l.cfg.DeviceID, ts)
	out, err := l.uplink.Send(ctx, rec.Encode())
	if err != nil {
		return err
	}
	l.tracker.RecordOutcome(out, l.now())
	fmt.Fprintln(l.out, out.Line())

	if out.Class != uplink.ClassSuccess {
		l.logger.Warn("collector rejected reading",
			zap.Int("status_code", out.StatusCode),
			zap.String("class", string(out.Class)),
			zap.Int64("epoch_time", rec.EpochTime),
		)
	}
	return nil
}

// SleepContext waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
