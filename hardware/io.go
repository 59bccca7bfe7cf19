// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package hardware

import (
	"fmt"

	"github.com/gmofishsauce/wut4os/kernel"
)

// TerminalBackend is a single byte-at-a-time terminal connection, backed
// either by the process's own controlling terminal (console.go) or a
// real serial line (serialport.go).
type TerminalBackend interface {
	// TryReadByte returns the next input byte without blocking. ok is
	// false if nothing is available yet.
	TryReadByte() (value byte, ok bool)
	// TryWriteByte writes a byte without blocking. ok is false if the
	// backend's output is momentarily busy.
	TryWriteByte(value byte) (ok bool)
	Close() error
}

// port bundles a backend with the one-byte lookahead needed so that
// reading the keyboard status register doesn't consume the byte the
// data register is about to return.
type port struct {
	backend      TerminalBackend
	lookahead    byte
	hasLookahead bool
}

// IO is the device bank the kernel traps into for terminal port
// registers and the timer. It implements kernel.IO. Each terminal port
// index is backed by a TerminalBackend supplied at construction; index 0
// is conventionally the machine's own console.
type IO struct {
	ports    []port
	clockAck int
}

// NewIO builds a device bank with one backend per terminal port. The
// slice length must match the port pool size the kernel was configured
// with.
func NewIO(backends []TerminalBackend) *IO {
	ports := make([]port, len(backends))
	for i, b := range backends {
		ports[i] = port{backend: b}
	}
	return &IO{ports: ports}
}

func (io *IO) Read(device int) (int, error) {
	if device == kernel.DevClockTimer {
		return 0, nil
	}
	if device == kernel.DevClockAck {
		return io.clockAck, nil
	}

	idx, reg, err := decodeDevice(device, len(io.ports))
	if err != nil {
		return 0, err
	}

	switch reg {
	case kernel.DevKeyboardStatusBase:
		return io.keyboardStatus(idx), nil
	case kernel.DevKeyboardDataBase:
		return io.keyboardData(idx), nil
	case kernel.DevScreenStatusBase:
		return 1, nil // always reports ready; a refused byte surfaces as a Write error
	default:
		return 0, fmt.Errorf("hardware: read from write-only device %d", device)
	}
}

func (io *IO) Write(device int, value int) error {
	if device == kernel.DevClockAck {
		io.clockAck = value
		return nil
	}

	idx, reg, err := decodeDevice(device, len(io.ports))
	if err != nil {
		return err
	}
	if reg != kernel.DevScreenDataBase {
		return fmt.Errorf("hardware: write to read-only device %d", device)
	}
	if ok := io.ports[idx].backend.TryWriteByte(byte(value)); !ok {
		return fmt.Errorf("hardware: port %d screen busy", idx)
	}
	return nil
}

// decodeDevice maps a device address back to a port index and register
// offset, inverting the stride formula kernel.Port uses to derive
// addresses (spec §6: base + 4*index).
func decodeDevice(device int, numPorts int) (idx int, reg int, err error) {
	const stride = 4
	idx = device / stride
	reg = device % stride
	if idx < 0 || idx >= numPorts {
		return 0, 0, fmt.Errorf("hardware: device %d addresses unknown port %d", device, idx)
	}
	return idx, reg, nil
}

func (io *IO) keyboardStatus(idx int) int {
	p := &io.ports[idx]
	if p.hasLookahead {
		return 1
	}
	b, ok := p.backend.TryReadByte()
	if !ok {
		return 0
	}
	p.lookahead = b
	p.hasLookahead = true
	return 1
}

func (io *IO) keyboardData(idx int) int {
	p := &io.ports[idx]
	if p.hasLookahead {
		p.hasLookahead = false
		return int(p.lookahead)
	}
	b, ok := p.backend.TryReadByte()
	if !ok {
		return 0
	}
	return int(b)
}
