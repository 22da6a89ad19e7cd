// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/wall_robot/internal/app"
	"github.com/relabs-tech/wall_robot/internal/config"
)

func main() {
	configPath := flag.String("config", "robot_config.txt", "path to config file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	app.SetupLogging(cfg)

	log.Println("starting wall robot (IMU telemetry, web UI, motor control)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunRobot(ctx, cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	log.Println("shut down")
}
