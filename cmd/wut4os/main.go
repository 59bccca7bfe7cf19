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

// Command wut4os drives the kernel package against a simulated machine:
// flat memory, a console-backed terminal port 0, optional real serial
// ports for the rest of the pool, and a timer goroutine standing in for
// the hardware clock. The CPU itself -- the thing that would actually
// execute process code and call HandleTrap on a fault or syscall trap --
// is outside this module; this binary only exercises the reset and
// timer edges of that contract so the kernel can be watched running.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gmofishsauce/wut4os/hardware"
	"github.com/gmofishsauce/wut4os/kernel"
)

var (
	programDir   = flag.String("programs", ".", "Directory of .img program images")
	maxProcesses = flag.Int("max-processes", kernel.DefaultConfig().MaxProcesses, "Process table size")
	quantum      = flag.Int("quantum", kernel.DefaultConfig().Quantum, "Timer ticks per scheduling quantum")
	initProgram  = flag.String("init", kernel.DefaultConfig().InitProgram, "Init program image name")
	memWords     = flag.Int("mem-words", 65536, "Simulated memory size in words")
	loadBase     = flag.Int("load-base", 100, "Load address for the first program image (spec: init loads at 100)")
	tickInterval = flag.Duration("tick", 10*time.Millisecond, "Wall-clock interval between timer interrupts")
	serialPorts  = flag.String("serial-ports", "", "Comma-separated serial device names for ports 1..N")
	maxTicks     = flag.Uint64("max-ticks", 0, "Stop after N timer ticks (0 = unlimited)")
	showVersion  = flag.Bool("version", false, "Show version and exit")
)

const version = "1.0.0"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("wut4os kernel harness v%s\n", version)
		os.Exit(0)
	}

	console := hardware.NewLogger(os.Stderr)
	mem := hardware.NewMemory(*memWords)
	loader := hardware.NewLoader(*programDir, mem, *loadBase)

	backends, closeBackends, err := openTerminalBackends(*serialPorts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wut4os: %v\n", err)
		os.Exit(1)
	}
	defer closeBackends()

	io := hardware.NewIO(backends)

	cfg := kernel.Config{
		MaxProcesses: *maxProcesses,
		Quantum:      *quantum,
		InitProgram:  *initProgram,
	}
	k := kernel.New(cfg, mem, io, loader, console)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		closeBackends()
		os.Exit(130)
	}()

	if resume := k.HandleTrap(kernel.IRQReset); resume == kernel.ResumeHalt {
		fmt.Fprintf(os.Stderr, "wut4os: kernel halted immediately after reset\n")
		os.Exit(1)
	}
	console.Printf("wut4os: booted, ticking every %v", *tickInterval)

	runHarness(k, console, *tickInterval, *maxTicks)
}

// runHarness feeds timer interrupts to the kernel until it halts or the
// tick budget is exhausted. A real CPU would also deliver syscall and
// fault traps as user code executes; this harness has no user code to
// run, so it only demonstrates the reset/timer edge of the contract.
func runHarness(k *kernel.Kernel, console *hardware.Logger, interval time.Duration, maxTicks uint64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var ticks uint64
	for range ticker.C {
		resume := k.HandleTrap(kernel.IRQTimer)
		ticks++

		if resume == kernel.ResumeHalt {
			if k.InternalError() {
				console.Printf("wut4os: kernel reported an internal error, halting")
			} else {
				console.Printf("wut4os: nothing runnable, halting")
			}
			return
		}
		if maxTicks > 0 && ticks >= maxTicks {
			console.Printf("wut4os: max ticks reached (%d)", maxTicks)
			return
		}
	}
}

// openTerminalBackends wires port 0 to the local controlling terminal and
// any further comma-separated serial device names to the remaining ports.
func openTerminalBackends(serialList string) ([]hardware.TerminalBackend, func(), error) {
	local, err := hardware.NewLocalTerminal(os.Stdin, os.Stdout)
	if err != nil {
		return nil, nil, fmt.Errorf("open local terminal: %w", err)
	}
	backends := []hardware.TerminalBackend{local}

	if serialList != "" {
		for _, name := range splitNonEmpty(serialList, ',') {
			st, err := hardware.OpenSerialTerminal(name, 9600)
			if err != nil {
				for _, b := range backends {
					b.Close()
				}
				return nil, nil, fmt.Errorf("open serial port %s: %w", name, err)
			}
			backends = append(backends, st)
		}
	}

	closeAll := func() {
		for _, b := range backends {
			b.Close()
		}
	}
	return backends, closeAll, nil
}

func splitNonEmpty(s string, sep rune) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "wut4os - run the teaching kernel against a simulated machine\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}
