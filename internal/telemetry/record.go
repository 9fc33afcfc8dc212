package telemetry

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Record is one reading as sent to the collector. Field order is the wire order.
type Record struct {
	LocationID  string  `json:"LocationId"`
	DeviceID    string  `json:"DeviceId"`
	EpochTime   int64   `json:"EpochTime"`
	Temperature Float32 `json:"Temperature"` // degrees Celsius
	Humidity    Float32 `json:"Humidity"`    // relative humidity, %
}

// NewRecord stamps a measurement with the site identifiers and capture time.
func NewRecord(humidity, temperature float32, location, device string, ts time.Time) Record {
	return Record{
		LocationID:  location,
		DeviceID:    device,
		EpochTime:   ts.Unix(),
		Temperature: Float32(temperature),
		Humidity:    Float32(humidity),
	}
}

// Encode returns the JSON payload for r. Every field has an infallible
// encoder, so a marshal error is a programming bug.
func (r Record) Encode() []byte {
	b, err := json.Marshal(r)
	if err != nil {
		panic("telemetry: encode record: " + err.Error())
	}
	return b
}

// Float32 encodes with 32-bit shortest formatting. NaN and infinities become
// null instead of failing the whole payload.
type Float32 float32

// MarshalJSON implements json.Marshaler.
func (f Float32) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	format := byte('f')
	if abs := math.Abs(v); abs != 0 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, v, format, -1, 32)
	if format == 'e' {
		// 1e-07 -> 1e-7, matching encoding/json.
		if n := len(b); n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return b, nil
}
