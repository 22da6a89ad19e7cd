// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imu implements the WitMotion-style binary protocol spoken by the
// robot's IMU: 11-byte frames carrying acceleration, angular velocity and
// Euler angles as little-endian int16 values.
package imu

import "encoding/binary"

const (
	// FrameLen is the size of one protocol frame, sync byte and checksum included.
	FrameLen = 11

	// SyncByte marks the start of every frame.
	SyncByte = 0x55

	TypeAcceleration    = 0x51
	TypeAngularVelocity = 0x52
	TypeOrientation     = 0x53
)

// Frame is one candidate protocol frame. It is not necessarily valid.
type Frame [FrameLen]byte

// Checksum is the low 8 bits of the sum of b.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// Valid reports whether the sync byte and the checksum both match.
func (f Frame) Valid() bool {
	return f[0] == SyncByte && Checksum(f[:FrameLen-1]) == f[FrameLen-1]
}

// Type returns the type tag in byte 1.
func (f Frame) Type() byte {
	return f[1]
}

// Values returns the four signed payload words.
func (f Frame) Values() [4]int16 {
	var v [4]int16
	for i := range v {
		v[i] = int16(binary.LittleEndian.Uint16(f[2+2*i:]))
	}
	return v
}

// EncodeFrame builds a valid frame for the given type and payload words.
func EncodeFrame(kind byte, v [4]int16) Frame {
	var f Frame
	f[0] = SyncByte
	f[1] = kind
	for i, w := range v {
		binary.LittleEndian.PutUint16(f[2+2*i:], uint16(w))
	}
	f[FrameLen-1] = Checksum(f[:FrameLen-1])
	return f
}
