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

// Package hardware implements the fixed external collaborators the
// kernel package traps into: memory, device I/O, a program loader, and
// a console. None of it simulates CPU instruction execution; the CPU
// itself is a fixed interface the kernel assumes, not something this
// module provides (see cmd/wut4os for the harness that drives traps).
package hardware

import "fmt"

// Memory is a flat, word-addressable address space sized at
// construction time. It implements kernel.Memory.
type Memory struct {
	words []int
}

// NewMemory allocates a zeroed memory of the given size in words.
func NewMemory(words int) *Memory {
	return &Memory{words: make([]int, words)}
}

func (m *Memory) Read(addr int) (int, error) {
	if addr < 0 || addr >= len(m.words) {
		return 0, fmt.Errorf("memory: read out of range: addr=%d size=%d", addr, len(m.words))
	}
	return m.words[addr], nil
}

func (m *Memory) Write(addr int, value int) error {
	if addr < 0 || addr >= len(m.words) {
		return fmt.Errorf("memory: write out of range: addr=%d size=%d", addr, len(m.words))
	}
	m.words[addr] = value
	return nil
}

// Size reports the memory's capacity in words.
func (m *Memory) Size() int { return len(m.words) }
