package sensor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"periph.io/x/host/v3/sysfs"
)

// ErrInvalidBusPath is returned for paths that do not name an i2c-dev node.
var ErrInvalidBusPath = errors.New("invalid i2c bus path")

// Bus is an open I2C adapter usable by TinyGo drivers.
type Bus struct {
	path string
	i2c  *sysfs.I2C
}

// OpenBus opens the Linux i2c-dev character device at path, e.g. /dev/i2c-1.
func OpenBus(path string) (*Bus, error) {
	n, err := busNumber(path)
	if err != nil {
		return nil, err
	}
	i2c, err := sysfs.NewI2C(n)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Bus{path: path, i2c: i2c}, nil
}

// Tx writes w then reads into r within one transaction addressed to addr.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.i2c.Tx(addr, w, r)
}

// Close releases the device node.
func (b *Bus) Close() error {
	return b.i2c.Close()
}

func (b *Bus) String() string {
	return b.path
}

func busNumber(path string) (int, error) {
	base := filepath.Base(path)
	suffix, ok := strings.CutPrefix(base, "i2c-")
	if !ok || suffix == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBusPath, path)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBusPath, path)
	}
	return n, nil
}
