// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/wall_robot/internal/config"
	"github.com/relabs-tech/wall_robot/internal/imu"
	"github.com/relabs-tech/wall_robot/internal/sensors"
	"github.com/relabs-tech/wall_robot/internal/telemetry"
)

// openIMU opens the frame source selected by cfg.IMUSource.
func openIMU(cfg *config.Config) (io.ReadCloser, error) {
	switch cfg.IMUSource {
	case "serial":
		return sensors.OpenSerial(sensors.SerialConfig{
			PortName:    cfg.IMUSerialPort,
			BaudRate:    cfg.IMUBaudRate,
			ReadTimeout: cfg.IMUReadTimeoutDuration(),
		})
	case "i2c":
		return sensors.OpenI2C(sensors.I2CConfig{
			Bus:          cfg.IMUI2CBus,
			Addr:         cfg.IMUI2CAddr,
			PollInterval: cfg.IMUPollIntervalDuration(),
		})
	case "sim":
		log.Println("imu: using simulated IMU")
		return sensors.NewSimulator(cfg.IMUPollIntervalDuration()), nil
	default:
		return nil, fmt.Errorf("unknown IMU source %q", cfg.IMUSource)
	}
}

// RunIMU reads the IMU and feeds store until ctx is cancelled. A failure here
// ends the telemetry loop only; callers keep serving the last snapshot.
func RunIMU(ctx context.Context, cfg *config.Config, store *telemetry.Store) error {
	src, err := openIMU(cfg)
	if err != nil {
		return fmt.Errorf("imu open: %w", err)
	}
	defer src.Close()

	p := telemetry.NewPipeline(store, cfg.AccelDominantThreshold, cfg.WallSectorWidth)
	log.WithFields(log.Fields{
		"source":      cfg.IMUSource,
		"threshold_g": cfg.AccelDominantThreshold,
		"sector_deg":  cfg.WallSectorWidth,
	}).Info("imu: telemetry loop started")
	return p.Run(ctx, imu.NewPortReader(src))
}
