package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Defaults reproduce the values the uploader has always shipped with.
const (
	DefaultEndpoint     = "https://bko7deq544.execute-api.us-east-2.amazonaws.com/dev/sensors"
	DefaultAuthToken    = "allow"
	DefaultLocationID   = "45203"
	DefaultDeviceID     = "sensor"
	DefaultPollInterval = 5 * time.Second
	DefaultSensorAddr   = 0x38
)

// ErrInvalid is returned when the loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New()

// AppConfig holds the uploader settings.
type AppConfig struct {
	// Uplink target and static header value.
	Endpoint  string `validate:"required,url"`
	AuthToken string `validate:"required"`

	// Identifiers stamped on every reading.
	LocationID string `validate:"required"`
	DeviceID   string `validate:"required"`

	// PollInterval is the pause between the end of one upload and the next read.
	PollInterval time.Duration `validate:"gt=0"`
	HTTPTimeout  time.Duration `validate:"gte=0"` // 0 = transport default

	SensorAddr uint16 `validate:"gt=0,lte=127"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	// StatusAddr enables the local status API when non-empty.
	StatusAddr           string
	StatusReportInterval time.Duration // <= 0 disables the status log job
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &AppConfig{
		Endpoint:   getenvDefault("UPLINK_ENDPOINT", DefaultEndpoint),
		AuthToken:  getenvDefault("UPLINK_AUTH_TOKEN", DefaultAuthToken),
		LocationID: getenvDefault("LOCATION_ID", DefaultLocationID),
		DeviceID:   getenvDefault("DEVICE_ID", DefaultDeviceID),
		LogLevel:   getenvDefault("LOG_LEVEL", "info"),
		LogFormat:  getenvDefault("LOG_FORMAT", "console"),
		StatusAddr: os.Getenv("STATUS_ADDR"),
	}

	var err error
	if cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.StatusReportInterval, err = getenvDuration("STATUS_REPORT_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	addr, err := strconv.ParseUint(getenvDefault("SENSOR_ADDR", "0x38"), 0, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid SENSOR_ADDR: %w", err)
	}
	cfg.SensorAddr = uint16(addr)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
