// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors opens the byte sources the IMU frames arrive on: the UART
// link, the I2C bus, or a simulator for bench work without hardware.
package sensors

import (
	"io"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SerialConfig describes a UART link.
type SerialConfig struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration // zero blocks until at least one byte arrives
}

// serialOptions maps cfg onto the driver options. The driver's read timeout
// has 100 ms resolution; shorter non-zero timeouts are rounded up.
func serialOptions(cfg SerialConfig) serial.OpenOptions {
	opts := serial.OpenOptions{
		PortName:        cfg.PortName,
		BaudRate:        uint(cfg.BaudRate),
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	}
	if cfg.ReadTimeout > 0 {
		ms := uint(cfg.ReadTimeout / time.Millisecond)
		ms = (ms + 99) / 100 * 100
		opts.MinimumReadSize = 0
		opts.InterCharacterTimeout = ms
	}
	return opts
}

// OpenSerial opens the port described by cfg. With a read timeout set, a read
// that times out returns no data, which imu.NewPortReader reports as idle.
func OpenSerial(cfg SerialConfig) (io.ReadWriteCloser, error) {
	if cfg.PortName == "" {
		return nil, errors.New("serial: port name is required")
	}
	opts := serialOptions(cfg)
	port, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "serial: open %s at %d baud", cfg.PortName, cfg.BaudRate)
	}
	log.Printf("serial: port opened on %s at %d baud (timeout %dms)",
		opts.PortName, opts.BaudRate, opts.InterCharacterTimeout)
	return port, nil
}
