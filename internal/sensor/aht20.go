package sensor

import (
	"context"
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/aht20"
)

// AHT20 reads an Aosong AHT20 over I2C using the TinyGo driver.
type AHT20 struct {
	dev aht20.Device
}

// NewAHT20 binds the driver to bus at addr and runs the calibration check.
// A zero addr selects the default 0x38.
func NewAHT20(bus drivers.I2C, addr uint16) *AHT20 {
	dev := aht20.New(bus)
	if addr != 0 {
		dev.Address = addr
	}
	dev.Configure()
	return &AHT20{dev: dev}
}

// Name identifies the driver in logs.
func (s *AHT20) Name() string {
	return "aht20"
}

// Read triggers a conversion and blocks until the driver returns the result.
// Values are passed through without range checks.
func (s *AHT20) Read(ctx context.Context) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}
	if err := s.dev.Read(); err != nil {
		return Measurement{}, fmt.Errorf("%w: %s at 0x%02x: %v", ErrReadFailed, s.Name(), s.dev.Address, err)
	}
	return Measurement{
		Humidity:    s.dev.RelHumidity(),
		Temperature: s.dev.Celsius(),
	}, nil
}
