// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/wall_robot/internal/imu"
)

// DefaultI2CAddr is the WT61's factory I2C address.
const DefaultI2CAddr = 0x50

// I2CConfig describes an IMU polled over I2C.
type I2CConfig struct {
	Bus          string // "" selects the first bus, "1" is /dev/i2c-1 on a Pi
	Addr         uint16
	PollInterval time.Duration
}

type transactor interface {
	Tx(w, r []byte) error
}

// I2CSource polls an 11-byte block from register 0 of the IMU and exposes the
// blocks as a byte stream, so the same frame reader serves both links.
type I2CSource struct {
	dev      transactor
	closer   func() error
	interval time.Duration
	sleep    func(time.Duration)

	buf     [imu.FrameLen]byte
	pending []byte

	// Errors counts failed bus transactions.
	Errors uint64
}

// OpenI2C initialises the periph host drivers and opens the bus.
func OpenI2C(cfg I2CConfig) (*I2CSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "i2c: periph host init")
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, errors.Wrapf(err, "i2c: open bus %q", cfg.Bus)
	}
	addr := cfg.Addr
	if addr == 0 {
		addr = DefaultI2CAddr
	}
	log.Printf("i2c: polling IMU at 0x%02X on bus %q every %v", addr, bus.String(), cfg.PollInterval)
	src := newI2CSource(&i2c.Dev{Addr: addr, Bus: bus}, cfg.PollInterval)
	src.closer = bus.Close
	return src, nil
}

func newI2CSource(dev transactor, interval time.Duration) *I2CSource {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &I2CSource{dev: dev, interval: interval, sleep: time.Sleep}
}

// Read returns buffered frame bytes, polling the device once the buffer is
// empty. A failed transaction is logged and reported as a read with no data so
// the caller treats it like a serial timeout.
func (s *I2CSource) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		s.sleep(s.interval)
		if err := s.dev.Tx([]byte{0x00}, s.buf[:]); err != nil {
			s.Errors++
			log.Printf("i2c: read error: %v", err)
			return 0, nil
		}
		if s.buf[0] != imu.SyncByte {
			return 0, nil
		}
		s.pending = s.buf[:]
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Close releases the bus.
func (s *I2CSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
