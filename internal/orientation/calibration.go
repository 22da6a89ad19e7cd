// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// CalibratingLabel is reported until the first wall has been seen.
const CalibratingLabel = "Calibrating..."

// DefaultSectorWidth is the yaw span of one wall sector, in degrees.
const DefaultSectorWidth = 90.0

// Calibration is the latched wall reference.
type Calibration struct {
	Calibrated       bool
	ReferenceYaw     float64
	ReferenceSurface Surface
}

// WallCalibrator names walls relative to the first one the robot climbs.
// The first wall seen becomes "Wall A" and the reference yaw is latched; later
// wall readings are bucketed by how far the robot has turned since then.
// It is not safe for concurrent use; the telemetry loop owns it.
type WallCalibrator struct {
	sectorWidth float64
	state       Calibration
}

// NewWallCalibrator returns an uncalibrated WallCalibrator. A width that is
// not positive or does not divide 360 falls back to DefaultSectorWidth.
func NewWallCalibrator(sectorWidth float64) *WallCalibrator {
	if sectorWidth <= 0 || sectorWidth > 180 || math.Mod(360, sectorWidth) != 0 {
		sectorWidth = DefaultSectorWidth
	}
	return &WallCalibrator{sectorWidth: sectorWidth}
}

// Observe latches yaw and surface as the reference the first time a wall
// surface is observed. It reports whether this call did the latching.
func (w *WallCalibrator) Observe(yaw float64, s Surface) bool {
	if w.state.Calibrated || !s.IsWall() {
		return false
	}
	w.state = Calibration{
		Calibrated:       true,
		ReferenceYaw:     yaw,
		ReferenceSurface: s,
	}
	return true
}

// State returns a copy of the current calibration.
func (w *WallCalibrator) State() Calibration {
	return w.state
}

// Sectors returns the number of wall sectors around a full turn.
func (w *WallCalibrator) Sectors() int {
	return int(360 / w.sectorWidth)
}

// Label returns the location label for the given yaw and surface.
func (w *WallCalibrator) Label(yaw float64, s Surface) string {
	if !w.state.Calibrated {
		return CalibratingLabel
	}
	if !s.IsWall() {
		return s.String()
	}
	return "Wall " + string(rune('A'+w.Sector(yaw)))
}

// Sector returns the zero-based sector index of yaw relative to the
// reference. Sector k covers [k*width - width/2, k*width + width/2).
func (w *WallCalibrator) Sector(yaw float64) int {
	delta := math.Mod(yaw-w.state.ReferenceYaw, 360)
	if delta < 0 {
		delta += 360
	}
	shifted := math.Mod(delta+w.sectorWidth/2, 360)
	return int(shifted/w.sectorWidth) % w.Sectors()
}
