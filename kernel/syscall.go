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

// defaultPriority is assigned to every freshly created process, whether
// by RESET or SPAWN.
const defaultPriority = 0.5

// dispatchSyscall reads the syscall id from p's saved A register and
// runs the matching handler. An unknown id terminates the caller
// (spec §4.3).
func (k *Kernel) dispatchSyscall(p *Process) {
	id := p.Regs.A
	k.console.Printf("kernel: pid %d syscall %d", p.PID, id)

	switch id {
	case SysRead:
		k.attemptRead(p, true)
	case SysWrite:
		k.attemptWrite(p, true)
	case SysSpawn:
		k.sysSpawn(p)
	case SysKill:
		k.sysKill(p)
	case SysWait:
		k.sysWait(p)
	default:
		k.console.Printf("kernel: pid %d unknown syscall %d, terminating", p.PID, id)
		k.killProcess(p)
	}
}

// sysSpawn loads the program named by the NUL-terminated string at the
// caller's X and creates a new process to run it.
func (k *Kernel) sysSpawn(p *Process) {
	name, ok := k.readCString(p.Regs.X)
	if !ok {
		p.Regs.A = -1
		return
	}

	loadAddr, err := k.loader.Load(name)
	if err != nil || loadAddr < 0 {
		k.console.Printf("kernel: spawn %q: load failed: %v", name, err)
		p.Regs.A = -1
		return
	}

	child, ok := k.table.FindDeadSlot()
	if !ok {
		k.console.Printf("kernel: spawn %q: no free process slot", name)
		p.Regs.A = -1
		return
	}

	port, ok := k.ports.Acquire()
	if !ok {
		k.console.Printf("kernel: spawn %q: no free port", name)
		p.Regs.A = -1
		return
	}

	pid := k.nextPID
	k.nextPID++
	child.reinit(pid, loadAddr, defaultPriority)
	child.Port = port

	k.console.Printf("kernel: spawned pid %d (%q) at %d, port %d", pid, name, loadAddr, port.Index)
	p.Regs.A = int(pid)
}

// readCString copies up to maxProgramNameBytes bytes from memory
// starting at addr, stopping at a NUL. It rejects values outside the
// byte range, matching the source's "no valor não char na memória" check.
func (k *Kernel) readCString(addr int) (string, bool) {
	buf := make([]byte, 0, maxProgramNameBytes)
	for i := 0; i <= maxProgramNameBytes; i++ {
		word, err := k.mem.Read(addr + i)
		if err != nil {
			return "", false
		}
		if word < 0 || word > 255 {
			return "", false
		}
		if word == 0 {
			return string(buf), true
		}
		buf = append(buf, byte(word))
	}
	return "", false
}

// sysKill terminates the process named by X, or the caller itself if
// X is 0.
func (k *Kernel) sysKill(p *Process) {
	target := PID(p.Regs.X)

	if target == 0 {
		k.console.Printf("kernel: pid %d killing self", p.PID)
		k.killProcess(p)
		p.Regs.A = 0
		return
	}

	victim, ok := k.table.FindLive(target)
	if !ok {
		p.Regs.A = -1
		return
	}

	k.console.Printf("kernel: pid %d killing pid %d", p.PID, target)
	k.killProcess(victim)
	p.Regs.A = 0
}

// sysWait blocks the caller until the process named by X reaches DEAD.
// WAIT on self, on pid 0, or on a pid that is already DEAD or never
// existed fails immediately instead of blocking (spec §4.3).
func (k *Kernel) sysWait(p *Process) {
	target := PID(p.Regs.X)

	if target == 0 || target == p.PID {
		p.Regs.A = -1
		return
	}

	if _, ok := k.table.FindLive(target); !ok {
		p.Regs.A = -1
		return
	}

	k.console.Printf("kernel: pid %d waiting on pid %d", p.PID, target)
	p.State = Blocked
	p.Block = Block{Kind: BlockWaitPID, Target: target}
}

// killProcess transitions proc to DEAD and releases its port exactly
// once. It is the single place that performs this transition so the
// "DEAD owns no port" invariant (spec §3) can't be violated by a
// duplicate release.
func (k *Kernel) killProcess(proc *Process) {
	if proc.State == Dead {
		return
	}
	if proc.Port != nil {
		if err := k.ports.Release(proc.Port); err != nil {
			k.fail(ErrPortPool, "release port on process death", err)
		}
		proc.Port = nil
	}
	proc.State = Dead
	proc.Block = Block{}
}
