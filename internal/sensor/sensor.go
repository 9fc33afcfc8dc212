package sensor

import (
	"context"
	"errors"
)

// ErrReadFailed wraps any failure to obtain a measurement from the device.
var ErrReadFailed = errors.New("sensor read failed")

// Measurement is one decoded humidity/temperature pair.
type Measurement struct {
	Humidity    float32 // relative humidity, %
	Temperature float32 // degrees Celsius
}

// Sensor abstracts a humidity/temperature source.
type Sensor interface {
	Name() string
	Read(ctx context.Context) (Measurement, error)
}
