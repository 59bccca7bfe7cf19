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

package kernel

// Process is one process table entry. The zero value is a DEAD slot.
type Process struct {
	slot int // fixed table index, assigned once by Table and never changed

	PID      PID
	State    ProcessState
	Regs     Registers
	Port     *Port
	Block    Block
	Priority float64
}

// Slot returns this descriptor's fixed index in the process table.
func (p *Process) Slot() int { return p.slot }

// reinit reinitializes a DEAD slot into a fresh READY process. Callers
// must have already acquired the port and must set it afterward.
func (p *Process) reinit(pid PID, loadAddr int, priority float64) {
	p.PID = pid
	p.State = Ready
	p.Regs = Registers{PC: loadAddr, Mode: ModeUser}
	p.Block = Block{}
	p.Priority = priority
}
