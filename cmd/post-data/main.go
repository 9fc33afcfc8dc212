// Command post-data sends random readings to the collector every poll
// interval. It exercises the endpoint without sensor hardware.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/sensor-uplink/internal/collector"
	"github.com/i474232898/sensor-uplink/internal/config"
	"github.com/i474232898/sensor-uplink/internal/logging"
	"github.com/i474232898/sensor-uplink/internal/telemetry"
	"github.com/i474232898/sensor-uplink/internal/uplink"
)

// deviceID marks synthetic readings so the collector can tell them apart.
const deviceID = "test"

// Ranges of the generated values, inclusive.
const (
	minTemperature = -10
	maxTemperature = 120
	minHumidity    = 0
	maxHumidity    = 100
)

// poster posts one synthetic reading per interval and echoes the response body.
type poster struct {
	client   collector.Uplinker
	location string
	device   string
	interval time.Duration
	rnd      *rand.Rand
	out      io.Writer
	logger   *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func (p *poster) next() telemetry.Record {
	temperature := minTemperature + p.rnd.IntN(maxTemperature-minTemperature+1)
	humidity := minHumidity + p.rnd.IntN(maxHumidity-minHumidity+1)
	return telemetry.NewRecord(float32(humidity), float32(temperature), p.location, p.device, p.now())
}

// Run returns nil once ctx is cancelled. A transport failure is returned as is.
func (p *poster) Run(ctx context.Context) error {
	for {
		rec := p.next()
		out, err := p.client.Send(ctx, rec.Encode())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Fprintln(p.out, string(out.Body))
		p.logger.Debug("posted synthetic reading",
			zap.Int("status_code", out.StatusCode),
			zap.Float32("temperature", float32(rec.Temperature)),
			zap.Float32("humidity", float32(rec.Humidity)),
		)

		if err := p.sleep(ctx, p.interval); err != nil {
			return nil
		}
	}
}

func main() {
	os.Exit(run(os.Args, os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintf(stdout, "usage: %s\n", filepath.Base(args[0]))
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "post-data")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	client := uplink.NewClient(uplink.Config{
		Endpoint:  cfg.Endpoint,
		AuthToken: cfg.AuthToken,
		Timeout:   cfg.HTTPTimeout,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed := uint64(time.Now().UnixNano())
	p := &poster{
		client:   client,
		location: cfg.LocationID,
		device:   deviceID,
		interval: cfg.PollInterval,
		rnd:      rand.New(rand.NewPCG(seed, seed>>1)),
		out:      stdout,
		logger:   logger,
		now:      time.Now,
		sleep:    collector.SleepContext,
	}
	if err := p.Run(ctx); err != nil {
		logger.Error("post failed", zap.Error(err))
		return 1
	}
	return 0
}
