// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package motor drives the Sabertooth dual motor controller over its
// packetized serial protocol.
package motor

import (
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultAddress is the controller address selected by the DIP switches.
const DefaultAddress = 128

// MaxSpeed is the largest speed value a packet can carry.
const MaxSpeed = 127

// Packetized serial command bytes.
const (
	CmdMotor1Forward  = 0
	CmdMotor1Backward = 1
	CmdMotor2Forward  = 4
	CmdMotor2Backward = 5
)

// Actions understood by Driver.Apply. Anything else stops both motors.
const (
	ActionForward      = "forward"
	ActionReverse      = "reverse"
	ActionTurningRight = "Turning Right"
	ActionTurningLeft  = "Turning Left"
	ActionStop         = "stop"
)

// Packet encodes one command. The checksum is the 7-bit sum of the first
// three bytes; it is unrelated to the IMU frame checksum.
func Packet(address, command, value byte) [4]byte {
	return [4]byte{address, command, value, (address + command + value) & 0x7F}
}

// Command is one drive request from the teleoperation client.
type Command struct {
	Motor1Speed int    `json:"motor1_speed"`
	Motor2Speed int    `json:"motor2_speed"`
	Action      string `json:"action"`
}

// Input is the last control action received, for display in the UI.
type Input struct {
	Timestamp *string `json:"timestamp"`
	Input     string  `json:"input"`
}

// Driver writes drive commands to the controller. It is safe for concurrent use.
type Driver struct {
	mu      sync.Mutex
	w       io.Writer
	address byte
	last    Input
	now     func() time.Time
}

// NewDriver sends packets for the controller at address over w.
func NewDriver(w io.Writer, address byte) *Driver {
	return &Driver{
		w:       w,
		address: address,
		last:    Input{Input: "None"},
		now:     time.Now,
	}
}

func clampSpeed(v int) byte {
	if v < 0 {
		return 0
	}
	if v > MaxSpeed {
		return MaxSpeed
	}
	return byte(v)
}

// Apply sends the two packets for cmd. Motor 1 is the left track and motor 2
// the right; turning in place runs them in opposite directions.
func (d *Driver) Apply(cmd Command) error {
	m1, m2 := clampSpeed(cmd.Motor1Speed), clampSpeed(cmd.Motor2Speed)

	var c1, c2 byte
	switch cmd.Action {
	case ActionForward:
		c1, c2 = CmdMotor1Forward, CmdMotor2Forward
	case ActionReverse:
		c1, c2 = CmdMotor1Backward, CmdMotor2Backward
	case ActionTurningRight:
		c1, c2 = CmdMotor1Forward, CmdMotor2Backward
	case ActionTurningLeft:
		c1, c2 = CmdMotor1Backward, CmdMotor2Forward
	default:
		c1, c2 = CmdMotor1Forward, CmdMotor2Forward
		m1, m2 = 0, 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	ts := d.now().Format("15:04:05")
	d.last = Input{Timestamp: &ts, Input: cmd.Action}

	if err := d.send(c1, m1); err != nil {
		return err
	}
	return d.send(c2, m2)
}

// Stop brings both motors to rest.
func (d *Driver) Stop() error {
	return d.Apply(Command{Action: ActionStop})
}

// LastInput returns the most recent control action.
func (d *Driver) LastInput() Input {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Driver) send(command, value byte) error {
	p := Packet(d.address, command, value)
	if _, err := d.w.Write(p[:]); err != nil {
		return fmt.Errorf("motor: send command %d: %w", command, err)
	}
	log.Debugf("motor: sent % X", p[:])
	return nil
}
