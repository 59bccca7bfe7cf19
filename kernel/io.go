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

// attemptRead tries to read one word from p's keyboard port into A.
// allowBlock distinguishes a first-entry syscall (may block) from a
// pending-sweep retry, which must never re-enter the blocking branch
// (spec §4.3's chamada_sistema flag, modeled as a parameter per §9's
// design note rather than a descriptor field). A syscall that succeeds
// without ever blocking leaves p's state untouched: it only moves
// BLOCKED back to READY, never RUNNING to READY, so a process that
// never gave up the CPU keeps it until its quantum runs out.
func (k *Kernel) attemptRead(p *Process, allowBlock bool) {
	status, err := k.io.Read(p.Port.KeyboardStatus)
	if err != nil {
		k.fail(ErrIO, "read keyboard status", err)
		return
	}
	if status == 0 {
		if allowBlock {
			p.State = Blocked
			p.Block = Block{Kind: BlockRead}
		}
		return
	}

	data, err := k.io.Read(p.Port.KeyboardData)
	if err != nil {
		k.fail(ErrIO, "read keyboard data", err)
		return
	}

	p.Regs.A = data
	if p.State == Blocked {
		p.State = Ready
	}
	p.Block = Block{}
}

// attemptWrite tries to write X to p's screen port. The word goes
// straight to the screen data register: an earlier source revision read
// it back through memory first, which spec §9 flags as a bug in the
// device address vs. memory address, corrected here.
func (k *Kernel) attemptWrite(p *Process, allowBlock bool) {
	status, err := k.io.Read(p.Port.ScreenStatus)
	if err != nil {
		k.fail(ErrIO, "read screen status", err)
		return
	}
	if status == 0 {
		if allowBlock {
			p.State = Blocked
			p.Block = Block{Kind: BlockWrite}
		}
		return
	}

	if err := k.io.Write(p.Port.ScreenData, p.Regs.X); err != nil {
		k.fail(ErrIO, "write screen data", err)
		return
	}

	p.Regs.A = 0
	if p.State == Blocked {
		p.State = Ready
	}
	p.Block = Block{}
}
