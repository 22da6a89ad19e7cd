// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// ErrIdle is returned by FrameReader.Next when a port read timed out without
// data, or when MaxScan bytes went by without a sync byte. It is not a
// failure; callers use it to yield and check for shutdown.
var ErrIdle = errors.New("imu: read timeout")

// ErrHangup is returned by a port reader whose reads keep reporting io.EOF
// without waiting for the read timeout, as a tty does after the device goes away.
var ErrHangup = errors.New("imu: port hung up")

const (
	// MaxScan bounds the bytes one Next call discards while hunting for sync.
	MaxScan = 256

	// A port read with a timeout blocks for it before reporting EOF. This many
	// EOFs in a row, each returned faster than fastIdle, mean a hangup.
	hangupRun = 100
	fastIdle  = 500 * time.Microsecond
)

// FrameReader splits a byte stream into candidate frames. It does not validate
// them; see Decode.
type FrameReader struct {
	r         io.Reader
	idleOnEOF bool
	b         [1]byte

	now       func() time.Time
	fastIdles int

	// Skipped counts bytes discarded while hunting for a sync byte,
	// Dropped counts candidates lost to a short tail.
	Skipped uint64
	Dropped uint64
}

// NewFrameReader reads frames from a finite stream such as a capture file.
// io.EOF from r ends the stream.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// NewPortReader reads frames from a serial port configured with a bounded read
// timeout. A read that returns no data is reported as ErrIdle instead of io.EOF.
func NewPortReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, idleOnEOF: true, now: time.Now}
}

func (fr *FrameReader) readByte() (byte, error) {
	var start time.Time
	if fr.idleOnEOF {
		start = fr.now()
	}
	n, err := fr.r.Read(fr.b[:])
	if n == 1 {
		fr.fastIdles = 0
		return fr.b[0], nil
	}
	switch {
	case err == nil:
		return 0, ErrIdle
	case err == io.EOF && fr.idleOnEOF:
		if fr.now().Sub(start) >= fastIdle {
			fr.fastIdles = 0
			return 0, ErrIdle
		}
		fr.fastIdles++
		if fr.fastIdles >= hangupRun {
			return 0, errors.Wrapf(ErrHangup, "%d reads returned EOF without waiting", fr.fastIdles)
		}
		return 0, ErrIdle
	}
	return 0, err
}

// Next returns the next 11-byte candidate starting with SyncByte.
//
// When the stream stalls after the sync byte the partial candidate is dropped
// and the stall is reported (ErrIdle or io.EOF); the next call resumes
// scanning for a sync byte. A call that skips MaxScan bytes returns ErrIdle so
// a line carrying only noise still lets the caller check for shutdown.
func (fr *FrameReader) Next() (Frame, error) {
	var f Frame
	for skipped := 0; ; skipped++ {
		if skipped == MaxScan {
			return f, ErrIdle
		}
		b, err := fr.readByte()
		if err != nil {
			return f, err
		}
		if b == SyncByte {
			break
		}
		fr.Skipped++
	}
	f[0] = SyncByte
	for i := 1; i < FrameLen; i++ {
		b, err := fr.readByte()
		if err != nil {
			fr.Dropped++
			return Frame{}, err
		}
		f[i] = b
	}
	return f, nil
}
