// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"

	"github.com/relabs-tech/wall_robot/internal/config"
	"github.com/relabs-tech/wall_robot/internal/telemetry"
)

// RunConsole reads the IMU directly and prints one line per attitude.
func RunConsole(ctx context.Context, cfg *config.Config) error {
	store := telemetry.NewStore()
	id, updates := store.Subscribe(32)
	defer store.Unsubscribe(id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunIMU(ctx, cfg, store)
	}()

	for {
		select {
		case err := <-errCh:
			return err
		case snap := <-updates:
			fmt.Println(formatAttitude(snap))
		}
	}
}

func formatAttitude(s telemetry.Snapshot) string {
	return fmt.Sprintf("[%s] Facing: %s | Surface: %s | Location: %s",
		s.Timestamp, s.Facing, s.Surface, s.Location)
}
