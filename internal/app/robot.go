// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/wall_robot/internal/config"
	"github.com/relabs-tech/wall_robot/internal/motor"
	"github.com/relabs-tech/wall_robot/internal/sensors"
	"github.com/relabs-tech/wall_robot/internal/telemetry"
)

// openMotor returns the drive controller. Without a usable port, commands are
// accepted and dropped so the UI and telemetry keep working.
func openMotor(cfg *config.Config) (*motor.Driver, func() error) {
	noop := func() error { return nil }
	if !cfg.MotorEnable {
		log.Println("motor: disabled, commands are discarded")
		return motor.NewDriver(io.Discard, cfg.MotorAddress), noop
	}
	port, err := sensors.OpenSerial(sensors.SerialConfig{
		PortName: cfg.MotorSerialPort,
		BaudRate: cfg.MotorBaudRate,
	})
	if err != nil {
		log.Printf("motor: %v; commands are discarded", err)
		return motor.NewDriver(io.Discard, cfg.MotorAddress), noop
	}
	d := motor.NewDriver(port, cfg.MotorAddress)
	return d, func() error {
		if err := d.Stop(); err != nil {
			log.Printf("motor: stop error: %v", err)
		}
		return port.Close()
	}
}

// RunRobot runs the telemetry loop, the web server, the motor link and, when a
// broker is configured, the MQTT publisher. It returns when ctx is cancelled
// or the web server fails.
func RunRobot(ctx context.Context, cfg *config.Config) error {
	store := telemetry.NewStore()
	driver, closeMotor := openMotor(cfg)
	defer closeMotor()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := RunIMU(ctx, cfg, store); err != nil {
			log.Errorf("imu: telemetry stopped: %v", err)
		}
		return nil
	})

	if cfg.MQTTBroker != "" {
		g.Go(func() error {
			if err := RunMQTTPublisher(ctx, cfg, store); err != nil {
				log.Errorf("mqtt: publisher stopped: %v", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return RunWeb(ctx, cfg, store, driver)
	})

	return g.Wait()
}
