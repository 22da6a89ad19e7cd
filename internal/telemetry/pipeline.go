// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/wall_robot/internal/imu"
	"github.com/relabs-tech/wall_robot/internal/orientation"
)

// Pipeline decodes frames, classifies orientation readings and writes the
// results to a Store. It is the single writer of the calibration state and
// must be driven from one goroutine.
type Pipeline struct {
	store      *Store
	classifier orientation.Classifier
	walls      *orientation.WallCalibrator
	accel      *r3.Vector

	// Now stamps published attitudes; tests replace it.
	Now func() time.Time
}

// NewPipeline wires a pipeline to store. Zero thresholds select defaults.
func NewPipeline(store *Store, accelThreshold, sectorWidth float64) *Pipeline {
	return &Pipeline{
		store:      store,
		classifier: orientation.NewClassifier(accelThreshold),
		walls:      orientation.NewWallCalibrator(sectorWidth),
		Now:        time.Now,
	}
}

// Calibration returns the current wall calibration.
func (p *Pipeline) Calibration() orientation.Calibration {
	return p.walls.State()
}

// HandleFrame decodes f and handles the reading, if any. It reports whether
// the frame produced a reading.
func (p *Pipeline) HandleFrame(f imu.Frame) bool {
	r, ok := imu.Decode(f)
	if !ok {
		return false
	}
	p.Handle(r)
	return true
}

// Handle applies one reading. Orientation readings are classified against the
// latest acceleration, or against pitch/roll until an acceleration arrives.
func (p *Pipeline) Handle(r imu.Reading) {
	switch v := r.(type) {
	case imu.Acceleration:
		g := v.Vector()
		p.accel = &g
		p.store.Update(v)
	case imu.AngularVelocity:
		p.store.Update(v)
	case imu.Orientation:
		p.store.Update(p.classify(v))
	}
}

func (p *Pipeline) classify(o imu.Orientation) Attitude {
	pose := orientation.Pose{Roll: o.Roll, Pitch: o.Pitch, Yaw: o.Yaw}
	surface := p.classifier.Classify(p.accel, pose)
	if p.walls.Observe(o.Yaw, surface) {
		log.WithFields(log.Fields{
			"reference_yaw": fmt.Sprintf("%.2f", o.Yaw),
			"surface":       surface.String(),
		}).Info("telemetry: wall calibration latched (Wall A)")
	}
	return Attitude{
		Orientation: o,
		Surface:     surface,
		Facing:      orientation.Facing(o.Yaw),
		Location:    p.walls.Label(o.Yaw, surface),
		Calibration: p.walls.State(),
		At:          p.Now(),
	}
}

// Run pulls frames from fr until ctx is cancelled or the stream ends.
// Read timeouts are not errors; they give the loop a chance to notice
// cancellation. Any other read error ends the loop and is returned; it is
// fatal to the IMU subsystem only.
func (p *Pipeline) Run(ctx context.Context, fr *imu.FrameReader) error {
	var frames, rejected uint64
	defer func() {
		log.Printf("telemetry: loop stopped after %d frames (%d rejected, %d bytes skipped, %d partial)",
			frames, rejected, fr.Skipped, fr.Dropped)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		f, err := fr.Next()
		switch {
		case err == nil:
		case errors.Is(err, imu.ErrIdle):
			continue
		case errors.Is(err, io.EOF):
			return nil
		default:
			return fmt.Errorf("imu read: %w", err)
		}

		frames++
		if !p.HandleFrame(f) {
			rejected++
			log.Debugf("telemetry: dropped frame % X", f[:])
		}
	}
}
