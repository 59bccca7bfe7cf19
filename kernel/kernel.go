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

// Config gathers the kernel's tunable constants (spec §6). Zero values
// are not valid configuration; use DefaultConfig as a starting point.
type Config struct {
	MaxProcesses int
	Quantum      int
	InitProgram  string
}

// DefaultConfig returns the constants spec §6 lists as defaults.
func DefaultConfig() Config {
	return Config{
		MaxProcesses: 4,
		Quantum:      5,
		InitProgram:  "init.maq",
	}
}

// Kernel owns the process table, port pool, and scheduler, and is the
// single entry point the CPU collaborator traps into.
type Kernel struct {
	cfg Config

	mem     Memory
	io      IO
	loader  Loader
	console Console

	table *Table
	ports *PortPool
	sched *scheduler

	current *Process
	quantum int
	nextPID PID

	internalError bool
}

// New constructs a kernel over the given collaborators. The process
// table and port pool are created empty; boot happens on the first
// IRQReset trap, as on real hardware.
func New(cfg Config, mem Memory, io IO, loader Loader, console Console) *Kernel {
	return &Kernel{
		cfg:     cfg,
		mem:     mem,
		io:      io,
		loader:  loader,
		console: console,
		table:   NewTable(cfg.MaxProcesses),
		ports:   NewPortPool(cfg.MaxProcesses),
		sched:   newScheduler(),
		quantum: cfg.Quantum,
	}
}

// InternalError reports whether the kernel has hit an unrecoverable
// collaborator failure. Once set it is sticky: every subsequent
// HandleTrap call returns ResumeHalt (spec §7).
func (k *Kernel) InternalError() bool { return k.internalError }

// Table exposes the process table for inspection (tests, diagnostics).
func (k *Kernel) Table() *Table { return k.table }

// Ports exposes the port pool for inspection (tests, diagnostics).
func (k *Kernel) Ports() *PortPool { return k.ports }

// HandleTrap is the kernel's single entry point, called by the CPU
// collaborator on every trap. It runs the four-phase cycle from spec
// §4.1 and is never called recursively within one invocation: the CPU
// is expected to block on its call into HandleTrap until it returns.
func (k *Kernel) HandleTrap(code InterruptCode) int {
	k.save()
	k.service(code)
	k.sweepIfAlive()
	k.schedule()
	return k.dispatch()
}

// save copies the running process's registers out of the well-known
// memory cells the trap stub spilled them to.
func (k *Kernel) save() {
	if k.current == nil || k.current.State != Running {
		return
	}

	regs, err := k.readRegisters()
	if err != nil {
		k.fail(ErrMemory, "save CPU state", err)
		return
	}
	k.current.Regs = regs
}

func (k *Kernel) readRegisters() (Registers, error) {
	a, err := k.mem.Read(MemA)
	if err != nil {
		return Registers{}, err
	}
	x, err := k.mem.Read(MemX)
	if err != nil {
		return Registers{}, err
	}
	pc, err := k.mem.Read(MemPC)
	if err != nil {
		return Registers{}, err
	}
	errReg, err := k.mem.Read(MemError)
	if err != nil {
		return Registers{}, err
	}
	compl, err := k.mem.Read(MemComplement)
	if err != nil {
		return Registers{}, err
	}
	mode, err := k.mem.Read(MemMode)
	if err != nil {
		return Registers{}, err
	}
	return Registers{PC: pc, A: a, X: x, Error: errReg, Complement: compl, Mode: Mode(mode)}, nil
}

// service dispatches on the interrupt code to a type-specific handler
// (spec §4.2).
func (k *Kernel) service(code InterruptCode) {
	switch code {
	case IRQReset:
		k.handleReset()
	case IRQSyscall:
		k.handleSyscall()
	case IRQCPUFault:
		k.handleFault()
	case IRQTimer:
		k.handleTimer()
	default:
		k.console.Printf("kernel: unknown interrupt code %d", code)
		k.internalError = true
	}
}

// handleReset loads the init program and creates its process.
func (k *Kernel) handleReset() {
	loadAddr, err := k.loader.Load(k.cfg.InitProgram)
	if err != nil || loadAddr < 0 {
		k.fail(ErrLoader, "load init program", err)
		return
	}

	proc, ok := k.table.FindDeadSlot()
	if !ok {
		k.console.Printf("kernel: reset: process table full, cannot create init")
		k.internalError = true
		return
	}

	port, ok := k.ports.Acquire()
	if !ok {
		k.console.Printf("kernel: reset: no free port for init")
		k.internalError = true
		return
	}

	pid := k.nextPID
	k.nextPID++
	proc.reinit(pid, loadAddr, defaultPriority)
	proc.Port = port

	k.console.Printf("kernel: init loaded at %d as pid %d, port %d", loadAddr, pid, port.Index)
}

// handleSyscall reads the syscall id from the current process's saved
// A register and dispatches it.
func (k *Kernel) handleSyscall() {
	if k.current == nil {
		k.console.Printf("kernel: syscall trap with no current process")
		k.internalError = true
		return
	}
	k.dispatchSyscall(k.current)
}

// handleFault terminates the faulting process. Spec §4.2 has this also
// set internal_error: a production redesign would scope a user fault to
// just that process, but this teaching kernel treats it as a kernel-wide
// condition too (see DESIGN.md).
func (k *Kernel) handleFault() {
	if k.current == nil {
		k.console.Printf("kernel: CPU fault trap with no current process")
		k.internalError = true
		return
	}
	k.console.Printf("kernel: pid %d CPU fault %d, terminating", k.current.PID, k.current.Regs.Error)
	k.killProcess(k.current)
	k.internalError = true
}

// handleTimer acknowledges the timer interrupt and preempts the running
// process once its quantum is exhausted. It does not write DevClockTimer,
// so the countdown is not reloaded here.
func (k *Kernel) handleTimer() {
	if err := k.io.Write(DevClockAck, 0); err != nil {
		k.fail(ErrIO, "acknowledge timer interrupt", err)
		return
	}

	k.quantum--
	if k.quantum > 0 {
		return
	}
	if k.current != nil && k.current.State == Running {
		k.current.State = Ready
	}
}

func (k *Kernel) sweepIfAlive() {
	if k.internalError {
		return
	}
	k.sweep()
}

// schedule selects the next process to run, per spec §4.4.
func (k *Kernel) schedule() {
	if k.internalError {
		return
	}
	k.current = k.sched.pick(k.table, k.current, &k.quantum, k.cfg.Quantum)
	k.sched.noted(k.current)
}

// dispatch writes the chosen process's registers back to the well-known
// memory cells and signals the CPU to resume, or signals halt if there
// is nothing runnable or the cycle hit an internal error.
func (k *Kernel) dispatch() int {
	if k.internalError || k.current == nil {
		return ResumeHalt
	}

	if err := k.writeRegisters(k.current.Regs); err != nil {
		k.fail(ErrMemory, "dispatch process state", err)
		return ResumeHalt
	}

	k.current.State = Running
	return ResumeRun
}

func (k *Kernel) writeRegisters(r Registers) error {
	if err := k.mem.Write(MemA, r.A); err != nil {
		return err
	}
	if err := k.mem.Write(MemX, r.X); err != nil {
		return err
	}
	if err := k.mem.Write(MemPC, r.PC); err != nil {
		return err
	}
	if err := k.mem.Write(MemError, r.Error); err != nil {
		return err
	}
	if err := k.mem.Write(MemComplement, r.Complement); err != nil {
		return err
	}
	if err := k.mem.Write(MemMode, int(r.Mode)); err != nil {
		return err
	}
	return nil
}

// fail logs a collaborator failure and sets the sticky internal_error
// flag (spec §7: kernel-internal errors are fatal for the rest of the
// cycle and every cycle after it).
func (k *Kernel) fail(kind ErrorKind, op string, err error) {
	kerr := &KernelError{Kind: kind, Op: op, Err: err}
	k.console.Printf("kernel: %v", kerr)
	k.internalError = true
}
