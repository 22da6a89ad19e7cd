// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/golang/geo/r3"
)

// Pose is the canonical representation of orientation for the robot, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Surface is the face of the room the robot is currently on.
type Surface int

const (
	Unknown Surface = iota
	Floor
	Ceiling
	LeftWall
	RightWall
	FrontWall
	BackWall
	Wall // generic wall, pitch/roll fallback only
	Transitioning
)

var surfaceNames = [...]string{
	Unknown:       "N/A",
	Floor:         "Floor",
	Ceiling:       "Ceiling",
	LeftWall:      "Left Wall",
	RightWall:     "Right Wall",
	FrontWall:     "Front Wall",
	BackWall:      "Back Wall",
	Wall:          "Wall",
	Transitioning: "Transitioning",
}

func (s Surface) String() string {
	if s < 0 || int(s) >= len(surfaceNames) {
		return surfaceNames[Unknown]
	}
	return surfaceNames[s]
}

// IsWall reports whether s is one of the wall faces, generic Wall included.
func (s Surface) IsWall() bool {
	switch s {
	case LeftWall, RightWall, FrontWall, BackWall, Wall:
		return true
	}
	return false
}

// DefaultDominantThreshold is the share of 1 g an axis needs before it is
// taken as the gravity axis.
const DefaultDominantThreshold = 0.7

// Classifier maps the measured gravity vector, or failing that the device
// Euler angles, to a Surface.
type Classifier struct {
	Threshold float64 // g
}

// NewClassifier returns a Classifier; a non-positive threshold selects the default.
func NewClassifier(threshold float64) Classifier {
	if threshold <= 0 {
		threshold = DefaultDominantThreshold
	}
	return Classifier{Threshold: threshold}
}

// ClassifyAccel picks the first axis whose magnitude exceeds the threshold,
// testing z, then x, then y. The sign of that axis selects the face. When no
// axis qualifies the robot is between surfaces.
func (c Classifier) ClassifyAccel(g r3.Vector) Surface {
	th := c.Threshold
	if th <= 0 {
		th = DefaultDominantThreshold
	}
	switch {
	case math.Abs(g.Z) > th:
		if g.Z < 0 {
			return Floor
		}
		return Ceiling
	case math.Abs(g.X) > th:
		if g.X < 0 {
			return LeftWall
		}
		return RightWall
	case math.Abs(g.Y) > th:
		if g.Y < 0 {
			return FrontWall
		}
		return BackWall
	}
	return Transitioning
}

// ClassifyPose is the fallback used before any acceleration has arrived.
// A device lying flat (small pitch and roll) is on the floor; one flipped
// past 135° is on the ceiling; anything else is on some wall.
func (c Classifier) ClassifyPose(p Pose) Surface {
	pitch, roll := math.Abs(p.Pitch), math.Abs(p.Roll)
	switch {
	case pitch < 45 && roll < 45:
		return Floor
	case pitch > 135 || roll > 135:
		return Ceiling
	}
	return Wall
}

// Classify uses the gravity vector when one is known and the pose otherwise.
func (c Classifier) Classify(accel *r3.Vector, p Pose) Surface {
	if accel != nil {
		return c.ClassifyAccel(*accel)
	}
	return c.ClassifyPose(p)
}

var compassPoints = [...]string{"North", "NE", "East", "SE", "South", "SW", "West", "NW"}

// Facing returns the 8-point compass direction for a yaw angle in degrees.
func Facing(yaw float64) string {
	d := math.Mod(yaw+22.5, 360)
	if d < 0 {
		d += 360
	}
	return compassPoints[int(d/45)%len(compassPoints)]
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is unobservable from gravity and is left at 0. Used by the simulator to
// keep the Euler angles it emits consistent with its gravity vector.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}
