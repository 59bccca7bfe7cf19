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

// Package kernel implements the core of a teaching-grade operating
// system simulator: the process table, the four-phase interrupt
// dispatch loop, the five-syscall surface, the scheduler, and the
// terminal port pool. The CPU, memory, I/O device, loader and trap
// stub are external collaborators, reached only through the
// interfaces declared in this file.
package kernel

// Memory is the word-addressable memory collaborator (spec §6). No
// protection is enforced at this layer.
type Memory interface {
	Read(addr int) (int, error)
	Write(addr int, value int) error
}

// IO is the device register collaborator (spec §6): the timer and the
// terminal ports all live in this address space, separate from Memory.
type IO interface {
	Read(device int) (int, error)
	Write(device int, value int) error
}

// Loader loads a named program image into memory and returns its load
// address, or an error if the image could not be found or placed.
type Loader interface {
	Load(name string) (loadAddress int, err error)
}

// Console is the line-oriented diagnostic sink (spec §6). It is not
// part of the kernel's functional contract.
type Console interface {
	Printf(format string, args ...any)
}

// Fixed memory cells the trap stub uses to spill/fill CPU registers
// around a trap (spec §6). IRQ_END_TRATADOR is where the loader must
// place the trap stub image, not a register cell, but it lives in the
// same fixed-address convention.
const (
	MemA          = 0
	MemX          = 1
	MemPC         = 2
	MemError      = 3
	MemComplement = 4
	MemMode       = 5
	MemTrapStub   = 6
)

// Timer device registers (spec §6). Writing to DevClockAck acknowledges
// the pending timer interrupt; writing to DevClockTimer reloads the
// countdown.
const (
	DevClockTimer = 4096
	DevClockAck   = 4097
)
