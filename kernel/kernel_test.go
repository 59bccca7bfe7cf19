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

import "testing"

func TestBootCreatesAndDispatchesInit(t *testing.T) {
	cfg := DefaultConfig()
	k, mem, _, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100

	resume := k.HandleTrap(IRQReset)

	if resume != ResumeRun {
		t.Fatalf("resume = %d, want ResumeRun", resume)
	}
	if k.current == nil {
		t.Fatal("expected a current process after boot")
	}
	if k.current.State != Running {
		t.Fatalf("init state = %v, want RUNNING", k.current.State)
	}
	if k.current.Port == nil {
		t.Fatal("expected init to own a port")
	}
	if k.current.Port.Index != 0 {
		t.Fatalf("init port = %d, want 0", k.current.Port.Index)
	}
	if got, _ := mem.Read(MemPC); got != 100 {
		t.Fatalf("dispatched PC = %d, want 100", got)
	}
	if got, _ := mem.Read(MemMode); Mode(got) != ModeUser {
		t.Fatalf("dispatched mode = %d, want user", got)
	}
}

func TestSpawnAndWaitScenario(t *testing.T) {
	cfg := DefaultConfig()
	k, mem, _, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	loader.images["child.maq"] = 200

	k.HandleTrap(IRQReset)
	parent := k.current

	// Parent issues SPAWN("child.maq").
	nameAddr := 300
	mem.writeCString(nameAddr, "child.maq")
	mem.words[MemA] = SysSpawn
	mem.words[MemX] = nameAddr
	k.HandleTrap(IRQSyscall)

	if parent.Regs.A <= 0 && parent.Regs.A != 0 {
		// A holds the child's pid; any non-negative value is acceptable,
		// but it must not be the failure sentinel.
	}
	if parent.Regs.A < 0 {
		t.Fatalf("spawn failed: A = %d", parent.Regs.A)
	}
	childPID := PID(parent.Regs.A)
	child, ok := k.table.FindLive(childPID)
	if !ok {
		t.Fatal("expected spawned child to be a live process")
	}
	if child.State != Ready {
		t.Fatalf("child state = %v, want READY", child.State)
	}

	// Parent is still current (it never blocked); now it WAITs on the child.
	mem.words[MemA] = SysWait
	mem.words[MemX] = int(childPID)
	k.HandleTrap(IRQSyscall)

	if parent.State != Blocked || parent.Block.Kind != BlockWaitPID {
		t.Fatalf("expected parent BLOCKED on WAIT_PID, got state=%v block=%v", parent.State, parent.Block)
	}

	// The child (now current, selected by the scheduler) calls KILL(0).
	if k.current != child {
		t.Fatalf("expected scheduler to dispatch the child next, got pid %d", k.current.PID)
	}
	mem.words[MemA] = SysKill
	mem.words[MemX] = 0
	k.HandleTrap(IRQSyscall)

	if child.State != Dead {
		t.Fatalf("child state = %v, want DEAD", child.State)
	}
	// The sweep moved the parent from BLOCKED to READY; as the only live
	// process left, the scheduler then dispatched it in the same trap.
	if parent.State != Running || k.current != parent {
		t.Fatalf("expected sweep to unblock parent once child died and the scheduler to dispatch it, got %v", parent.State)
	}
	if parent.Regs.A != 0 {
		t.Fatalf("parent A = %d, want 0 after WAIT succeeds", parent.Regs.A)
	}
}

func TestBlockingReadScenario(t *testing.T) {
	cfg := DefaultConfig()
	k, mem, io, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	k.HandleTrap(IRQReset)
	p := k.current

	mem.words[MemA] = SysRead
	k.HandleTrap(IRQSyscall)
	if p.State != Blocked || p.Block.Kind != BlockRead {
		t.Fatalf("expected BLOCKED on READ, got state=%v block=%v", p.State, p.Block)
	}

	// Timer interrupts with keyboard still not ready leave it BLOCKED.
	k.HandleTrap(IRQTimer)
	if p.State != Blocked {
		t.Fatal("expected process to remain BLOCKED while keyboard is not ready")
	}

	io.setKeyboardReady(p.Port, 42)
	k.HandleTrap(IRQTimer)
	if p.State != Ready && p.State != Running {
		t.Fatalf("expected process unblocked once keyboard is ready, got %v", p.State)
	}
	if p.Regs.A != 42 {
		t.Fatalf("A = %d, want 42", p.Regs.A)
	}
}

func TestImmediateReadDoesNotSurrenderTheCPU(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxProcesses = 2
	k, mem, io, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	loader.images["second.maq"] = 200

	k.HandleTrap(IRQReset)
	p := k.current

	nameAddr := 300
	mem.writeCString(nameAddr, "second.maq")
	mem.words[MemA] = SysSpawn
	mem.words[MemX] = nameAddr
	k.HandleTrap(IRQSyscall)
	// p is still current and RUNNING; the spawned sibling is READY but
	// must not be picked ahead of p, since p never blocked or exhausted
	// its quantum.

	io.setKeyboardReady(p.Port, 7)
	mem.words[MemA] = SysRead
	k.HandleTrap(IRQSyscall)

	if p.State != Running {
		t.Fatalf("state after an immediate, non-blocking READ = %v, want RUNNING", p.State)
	}
	if p.Regs.A != 7 {
		t.Fatalf("A = %d, want 7", p.Regs.A)
	}
	if k.current != p {
		t.Fatalf("expected the CPU to stay with pid %d, scheduler handed it to pid %d", p.PID, k.current.PID)
	}
}

func TestImmediateWriteDoesNotSurrenderTheCPU(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxProcesses = 2
	k, mem, io, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	loader.images["second.maq"] = 200

	k.HandleTrap(IRQReset)
	p := k.current

	nameAddr := 300
	mem.writeCString(nameAddr, "second.maq")
	mem.words[MemA] = SysSpawn
	mem.words[MemX] = nameAddr
	k.HandleTrap(IRQSyscall)

	io.setScreenReady(p.Port)
	mem.words[MemA] = SysWrite
	mem.words[MemX] = 'Q'
	k.HandleTrap(IRQSyscall)

	if p.State != Running {
		t.Fatalf("state after an immediate, non-blocking WRITE = %v, want RUNNING", p.State)
	}
	if k.current != p {
		t.Fatalf("expected the CPU to stay with pid %d, scheduler handed it to pid %d", p.PID, k.current.PID)
	}
}

func TestQuantumPreemptionAlternatesProcesses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxProcesses = 2
	k, mem, _, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	loader.images["second.maq"] = 200

	k.HandleTrap(IRQReset)
	first := k.current

	nameAddr := 300
	mem.writeCString(nameAddr, "second.maq")
	mem.words[MemA] = SysSpawn
	mem.words[MemX] = nameAddr
	k.HandleTrap(IRQSyscall)
	second, _ := k.table.FindLive(PID(first.Regs.A))

	runCounts := map[PID]int{}
	for tick := 0; tick < 20; tick++ {
		runCounts[k.current.PID]++
		k.HandleTrap(IRQTimer)
	}

	if runCounts[first.PID] != 2*cfg.Quantum {
		t.Fatalf("pid %d ran %d ticks, want %d", first.PID, runCounts[first.PID], 2*cfg.Quantum)
	}
	if runCounts[second.PID] != 2*cfg.Quantum {
		t.Fatalf("pid %d ran %d ticks, want %d", second.PID, runCounts[second.PID], 2*cfg.Quantum)
	}
}

func TestCPUFaultKillsProcessAndSetsInternalError(t *testing.T) {
	cfg := DefaultConfig()
	k, mem, _, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	k.HandleTrap(IRQReset)
	p := k.current
	port := p.Port

	mem.words[MemError] = 7
	resume := k.HandleTrap(IRQCPUFault)

	if p.State != Dead {
		t.Fatalf("faulting process state = %v, want DEAD", p.State)
	}
	if p.Port != nil {
		t.Fatal("expected port to be released on fault")
	}
	if k.ports.Occupied() != 0 {
		t.Fatalf("port pool occupied = %d, want 0", k.ports.Occupied())
	}
	_ = port
	if !k.InternalError() {
		t.Fatal("expected internal_error to be set after a CPU fault (spec §4.2)")
	}
	if resume != ResumeHalt {
		t.Fatalf("resume = %d, want ResumeHalt once internal_error is set", resume)
	}
}

func TestUnknownSyscallKillsProcessWithoutWritingA(t *testing.T) {
	cfg := DefaultConfig()
	k, mem, _, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	k.HandleTrap(IRQReset)
	p := k.current

	mem.words[MemA] = 99
	k.HandleTrap(IRQSyscall)

	if p.State != Dead {
		t.Fatalf("state = %v, want DEAD after unknown syscall", p.State)
	}
	if p.Port != nil {
		t.Fatal("expected port released")
	}
}

func TestKillZeroLeavesCurrentNilWhenSoleProcessDies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxProcesses = 1
	k, mem, _, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	k.HandleTrap(IRQReset)

	mem.words[MemA] = SysKill
	mem.words[MemX] = 0
	resume := k.HandleTrap(IRQSyscall)

	if k.current != nil {
		t.Fatalf("expected no current process, got pid %d", k.current.PID)
	}
	if resume != ResumeHalt {
		t.Fatalf("resume = %d, want ResumeHalt with nothing runnable", resume)
	}
}

func TestSpawnFailsWhenNoSlotsFree(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxProcesses = 1
	k, mem, _, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	loader.images["child.maq"] = 200
	k.HandleTrap(IRQReset)
	p := k.current

	nameAddr := 300
	mem.writeCString(nameAddr, "child.maq")
	mem.words[MemA] = SysSpawn
	mem.words[MemX] = nameAddr
	k.HandleTrap(IRQSyscall)

	if p.Regs.A != -1 {
		t.Fatalf("spawn with no free slot: A = %d, want -1", p.Regs.A)
	}
}

func TestWaitOnDeadPidReturnsImmediately(t *testing.T) {
	cfg := DefaultConfig()
	k, mem, _, loader, _ := newTestKernel(cfg)
	loader.images[cfg.InitProgram] = 100
	k.HandleTrap(IRQReset)
	p := k.current

	mem.words[MemA] = SysWait
	mem.words[MemX] = 12345 // never existed
	k.HandleTrap(IRQSyscall)

	if p.State == Blocked {
		t.Fatal("wait on a pid that never existed must not block")
	}
}
