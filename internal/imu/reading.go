// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"

	"github.com/golang/geo/r3"
)

// Full-scale ranges of the device outputs.
const (
	AccelRangeG   = 16.0
	GyroRangeDPS  = 2000.0
	AngleRangeDeg = 180.0

	fullScale = 32768.0
)

// Reading is a decoded, physically scaled value from a valid frame. Kind
// returns the frame type tag it was decoded from.
type Reading interface {
	Kind() byte
}

// Acceleration in g, ±16 g range.
type Acceleration struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// AngularVelocity in degrees per second, ±2000 °/s range.
type AngularVelocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Orientation holds the Euler angles computed on the device, in degrees.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

func (Acceleration) Kind() byte    { return TypeAcceleration }
func (AngularVelocity) Kind() byte { return TypeAngularVelocity }
func (Orientation) Kind() byte     { return TypeOrientation }

// Vector returns the acceleration as a gravity vector.
func (a Acceleration) Vector() r3.Vector {
	return r3.Vector{X: a.X, Y: a.Y, Z: a.Z}
}

func scale(raw int16, r float64) float64 {
	return float64(raw) / fullScale * r
}

// Raw converts a physical value back to the int16 word the device would send
// for the given full-scale range. Values outside the range saturate.
func Raw(v, r float64) int16 {
	x := math.Round(v / r * fullScale)
	if x > math.MaxInt16 {
		return math.MaxInt16
	}
	if x < math.MinInt16 {
		return math.MinInt16
	}
	return int16(x)
}

// Decode interprets a candidate frame. It returns ok == false for frames with
// a bad sync byte or checksum and for type tags it does not know; both are
// normal on a shared serial line.
func Decode(f Frame) (Reading, bool) {
	if !f.Valid() {
		return nil, false
	}
	v := f.Values()
	switch f.Type() {
	case TypeAcceleration:
		return Acceleration{
			X: scale(v[0], AccelRangeG),
			Y: scale(v[1], AccelRangeG),
			Z: scale(v[2], AccelRangeG),
		}, true
	case TypeAngularVelocity:
		return AngularVelocity{
			X: scale(v[0], GyroRangeDPS),
			Y: scale(v[1], GyroRangeDPS),
			Z: scale(v[2], GyroRangeDPS),
		}, true
	case TypeOrientation:
		return Orientation{
			Roll:  scale(v[0], AngleRangeDeg),
			Pitch: scale(v[1], AngleRangeDeg),
			Yaw:   scale(v[2], AngleRangeDeg),
		}, true
	default:
		return nil, false
	}
}

// AccelerationFrame encodes a into a valid 0x51 frame.
func AccelerationFrame(a Acceleration) Frame {
	return EncodeFrame(TypeAcceleration, [4]int16{
		Raw(a.X, AccelRangeG), Raw(a.Y, AccelRangeG), Raw(a.Z, AccelRangeG), 0,
	})
}

// AngularVelocityFrame encodes g into a valid 0x52 frame.
func AngularVelocityFrame(g AngularVelocity) Frame {
	return EncodeFrame(TypeAngularVelocity, [4]int16{
		Raw(g.X, GyroRangeDPS), Raw(g.Y, GyroRangeDPS), Raw(g.Z, GyroRangeDPS), 0,
	})
}

// OrientationFrame encodes o into a valid 0x53 frame. Yaw is wrapped into
// [-180, 180) first since the device never reports anything else.
func OrientationFrame(o Orientation) Frame {
	return EncodeFrame(TypeOrientation, [4]int16{
		Raw(wrap180(o.Roll), AngleRangeDeg),
		Raw(wrap180(o.Pitch), AngleRangeDeg),
		Raw(wrap180(o.Yaw), AngleRangeDeg),
		0,
	})
}

func wrap180(deg float64) float64 {
	d := math.Mod(deg+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}
