// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/wall_robot/internal/imu"
	"github.com/relabs-tech/wall_robot/internal/orientation"
)

// Simulated run, repeated every simPeriod: on the floor, a climb onto the left
// wall, then a slow turn on the wall.
const (
	simPeriod    = 40 * time.Second
	simFloorEnd  = 5 * time.Second
	simClimbEnd  = 8 * time.Second
	simTurnRate  = 12.0 // deg/s on the wall
	simFloorSpin = 6.0  // deg/s on the floor
)

// Simulator is an io.Reader producing the byte stream of an IMU mounted on a
// robot that drives onto a wall and turns around on it. A stray byte precedes
// every batch so the reader's resync path runs too.
type Simulator struct {
	start    time.Time
	interval time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
	pending  []byte
}

// NewSimulator emits one accel/gyro/angle batch every interval.
func NewSimulator(interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Simulator{
		start:    time.Now(),
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

func (s *Simulator) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		s.sleep(s.interval)
		s.pending = s.batch(s.now().Sub(s.start))
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *Simulator) Close() error { return nil }

// batch builds the frames for the given time into the run.
func (s *Simulator) batch(elapsed time.Duration) []byte {
	g, yaw, rate := simState(elapsed % simPeriod)

	// Tilt from the reaction to gravity so a flat device reads roll = pitch = 0.
	pose := orientation.ComputePoseFromAccel(-g[0], -g[1], -g[2])

	frames := []imu.Frame{
		imu.AccelerationFrame(imu.Acceleration{X: g[0], Y: g[1], Z: g[2]}),
		imu.AngularVelocityFrame(imu.AngularVelocity{Z: rate}),
		imu.OrientationFrame(imu.Orientation{Roll: pose.Roll, Pitch: pose.Pitch, Yaw: yaw}),
	}
	out := make([]byte, 0, 1+len(frames)*imu.FrameLen)
	out = append(out, 0x00)
	for _, f := range frames {
		out = append(out, f[:]...)
	}
	return out
}

// simState returns the gravity vector in g, the yaw in degrees and the yaw
// rate in deg/s at time t into one run.
func simState(t time.Duration) (g [3]float64, yaw, rate float64) {
	secs := t.Seconds()
	switch {
	case t < simFloorEnd:
		return [3]float64{0, 0, -1}, simFloorSpin * secs, simFloorSpin
	case t < simClimbEnd:
		// Gravity swings from -Z to -X while pitching up the wall.
		frac := (t - simFloorEnd).Seconds() / (simClimbEnd - simFloorEnd).Seconds()
		a := frac * math.Pi / 2
		yaw = simFloorSpin * simFloorEnd.Seconds()
		return [3]float64{-math.Sin(a), 0, -math.Cos(a)}, yaw, 0
	default:
		yaw = simFloorSpin*simFloorEnd.Seconds() + simTurnRate*(t-simClimbEnd).Seconds()
		return [3]float64{-1, 0, 0}, yaw, simTurnRate
	}
}
