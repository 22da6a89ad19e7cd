// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry turns decoded IMU readings into the snapshot polled by
// the web UI and pushed to live listeners.
package telemetry

import (
	"sync"
	"time"

	"github.com/relabs-tech/wall_robot/internal/imu"
	"github.com/relabs-tech/wall_robot/internal/orientation"
)

// TimestampLayout is the wall-clock format the browser UI displays.
const TimestampLayout = "15:04:05"

// Attitude is a classified orientation reading.
type Attitude struct {
	imu.Orientation
	Surface     orientation.Surface
	Facing      string
	Location    string
	Calibration orientation.Calibration
	At          time.Time
}

// Snapshot is the latest telemetry state. Field names are stable:
//   - facing:   8-point compass direction from yaw
//   - surface:  raw surface classification
//   - location: calibrated wall label ("Wall A".."Wall D"), the surface name
//     off the walls, or "Calibrating..." before the first wall
type Snapshot struct {
	Timestamp string    `json:"timestamp"`
	UpdatedAt time.Time `json:"updated_at"`

	Facing   string `json:"facing"`
	Location string `json:"location"`
	Surface  string `json:"surface"`

	Accel *imu.Acceleration    `json:"accel"`
	Gyro  *imu.AngularVelocity `json:"gyro"`

	Roll  *float64 `json:"roll"`
	Pitch *float64 `json:"pitch"`
	Yaw   *float64 `json:"yaw"`

	Calibrated       bool     `json:"calibrated"`
	ReferenceYaw     *float64 `json:"reference_yaw"`
	ReferenceSurface string   `json:"reference_surface,omitempty"`
}

// Store holds the latest snapshot. The telemetry loop is the only writer;
// any number of readers may poll Snapshot or Subscribe for pushes.
type Store struct {
	mu       sync.RWMutex
	snap     Snapshot
	haveSnap bool

	accel *imu.Acceleration
	gyro  *imu.AngularVelocity

	subs   map[int]chan Snapshot
	nextID int
}

func NewStore() *Store {
	return &Store{
		snap: Snapshot{
			Facing:   orientation.Unknown.String(),
			Location: orientation.Unknown.String(),
			Surface:  orientation.Unknown.String(),
		},
		subs: make(map[int]chan Snapshot),
	}
}

// Update merges r into the snapshot. Acceleration and angular velocity are
// kept as last-known values; an Attitude (or bare Orientation) replaces the
// angles and labels, stamps the snapshot and notifies subscribers.
func (s *Store) Update(r imu.Reading) {
	switch v := r.(type) {
	case imu.Acceleration:
		s.mu.Lock()
		s.accel = &v
		s.snap.Accel = &v
		s.mu.Unlock()
	case imu.AngularVelocity:
		s.mu.Lock()
		s.gyro = &v
		s.snap.Gyro = &v
		s.mu.Unlock()
	case imu.Orientation:
		s.publish(Attitude{Orientation: v})
	case Attitude:
		s.publish(v)
	}
}

func (s *Store) publish(att Attitude) {
	at := att.At
	if at.IsZero() {
		at = time.Now()
	}
	roll, pitch, yaw := att.Roll, att.Pitch, att.Yaw

	snap := Snapshot{
		Timestamp:  at.Format(TimestampLayout),
		UpdatedAt:  at,
		Facing:     att.Facing,
		Location:   att.Location,
		Surface:    att.Surface.String(),
		Roll:       &roll,
		Pitch:      &pitch,
		Yaw:        &yaw,
		Calibrated: att.Calibration.Calibrated,
	}
	if snap.Facing == "" {
		snap.Facing = orientation.Facing(yaw)
	}
	if snap.Location == "" {
		snap.Location = snap.Surface
	}
	if att.Calibration.Calibrated {
		ref := att.Calibration.ReferenceYaw
		snap.ReferenceYaw = &ref
		snap.ReferenceSurface = att.Calibration.ReferenceSurface.String()
	}

	// Swap and fan-out under one lock so a new subscriber sees each
	// snapshot exactly once.
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Accel = s.accel
	snap.Gyro = s.gyro
	s.snap = snap
	s.haveSnap = true
	for _, ch := range s.subs {
		select {
		case ch <- snap.clone():
		default:
		}
	}
}

// Snapshot returns a copy of the latest state. ok is false until the first
// orientation reading has been published.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone(), s.haveSnap
}

func (s Snapshot) clone() Snapshot {
	c := s
	if s.Accel != nil {
		a := *s.Accel
		c.Accel = &a
	}
	if s.Gyro != nil {
		g := *s.Gyro
		c.Gyro = &g
	}
	return c
}

// Subscribe registers a listener for published snapshots. The latest snapshot,
// if any, is delivered immediately. Slow listeners miss samples rather than
// stall the telemetry loop.
func (s *Store) Subscribe(buffer int) (int, <-chan Snapshot) {
	if buffer <= 0 {
		buffer = 2
	}
	ch := make(chan Snapshot, buffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	if s.haveSnap {
		ch <- s.snap.clone()
	}
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	ch, ok := s.subs[id]
	if ok {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
}
