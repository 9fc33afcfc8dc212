package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/drivers"

	httpapi "github.com/i474232898/sensor-uplink/internal/api/http"
	"github.com/i474232898/sensor-uplink/internal/collector"
	"github.com/i474232898/sensor-uplink/internal/config"
	"github.com/i474232898/sensor-uplink/internal/logging"
	"github.com/i474232898/sensor-uplink/internal/scheduler"
	"github.com/i474232898/sensor-uplink/internal/sensor"
	"github.com/i474232898/sensor-uplink/internal/store"
	"github.com/i474232898/sensor-uplink/internal/uplink"
)

// bus is what the sensor driver needs from an opened adapter.
type bus interface {
	drivers.I2C
	io.Closer
}

type deps struct {
	openBus func(path string) (bus, error)
}

func main() {
	d := deps{
		openBus: func(path string) (bus, error) {
			b, err := sensor.OpenBus(path)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
	}
	os.Exit(run(os.Args, os.Stdout, d))
}

func run(args []string, stdout io.Writer, d deps) int {
	if len(args) != 2 {
		prog := "sensor-uplink"
		if len(args) > 0 {
			prog = filepath.Base(args[0])
		}
		fmt.Fprintf(stdout, "usage: %s /dev/i2c-N\n", prog)
		return 1
	}
	busPath := args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, httpapi.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	i2c, err := d.openBus(busPath)
	if err != nil {
		logger.Error("failed to open i2c bus", zap.String("path", busPath), zap.Error(err))
		return 1
	}
	defer i2c.Close()

	dev := sensor.NewAHT20(i2c, cfg.SensorAddr)
	client := uplink.NewClient(uplink.Config{
		Endpoint:  cfg.Endpoint,
		AuthToken: cfg.AuthToken,
		Timeout:   cfg.HTTPTimeout,
	}, logger)
	tracker := store.NewStatusTracker(nil)

	// Periodic status log.
	sched := scheduler.New(cfg.StatusReportInterval, tracker, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", zap.Error(err))
		return 1
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.StatusAddr != "" {
		app := httpapi.NewApp()
		httpapi.RegisterRoutes(app, tracker)
		go func() {
			if err := app.Listen(cfg.StatusAddr); err != nil {
				logger.Warn("status server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				logger.Warn("error during status server shutdown", zap.Error(err))
			}
		}()
	}

	loop := collector.New(collector.Config{
		LocationID: cfg.LocationID,
		DeviceID:   cfg.DeviceID,
		Interval:   cfg.PollInterval,
	}, dev, client, tracker, stdout, logger)

	if err := loop.Run(ctx); err != nil {
		logger.Error("collector loop failed", zap.Error(err))
		return 1
	}
	return 0
}
