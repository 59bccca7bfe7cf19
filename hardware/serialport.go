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
	"syscall"

	"go.bug.st/serial"
)

// SerialTerminal is a TerminalBackend backed by a real serial line, for
// terminal ports beyond port 0 when the kernel is driven against actual
// hardware (e.g. a lab bench UART) instead of the local console.
type SerialTerminal struct {
	port serial.Port
}

// OpenSerialTerminal opens deviceName at baudRate 8N1. The read side is
// polled with a short timeout so TryReadByte can stay non-blocking.
func OpenSerialTerminal(deviceName string, baudRate int) (*SerialTerminal, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(deviceName, mode)
	if err != nil {
		return nil, fmt.Errorf("hardware: open %s: %w", deviceName, err)
	}
	if err := p.SetReadTimeout(0); err != nil {
		return nil, fmt.Errorf("hardware: set read timeout on %s: %w", deviceName, err)
	}
	return &SerialTerminal{port: p}, nil
}

func (s *SerialTerminal) TryReadByte() (byte, bool) {
	buf := make([]byte, 1)
	var n int
	var err error
	for {
		n, err = s.port.Read(buf)
		if !isRetryableSyscallError(err) {
			break
		}
	}
	if err != nil || n == 0 {
		return 0, false
	}
	return buf[0], true
}

func (s *SerialTerminal) TryWriteByte(value byte) bool {
	toWrite := []byte{value}
	var n int
	var err error
	for {
		n, err = s.port.Write(toWrite)
		if !isRetryableSyscallError(err) {
			break
		}
	}
	return err == nil && n == len(toWrite)
}

func (s *SerialTerminal) Close() error {
	return s.port.Close()
}

// isRetryableSyscallError reports EINTR, which shows up constantly as a
// side effect of goroutine-level scheduling preempting blocking syscalls.
func isRetryableSyscallError(err error) bool {
	const eIntr = 4
	if errno, ok := err.(syscall.Errno); ok {
		return errno == eIntr
	}
	return false
}
