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

import "fmt"

// fakeMemory is a flat word-addressable memory with an optional
// injected failure, standing in for the memory collaborator in tests.
type fakeMemory struct {
	words   map[int]int
	failOn  int // address that errors on next access, or -1 for none
	failErr error
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{words: make(map[int]int), failOn: -1}
}

func (m *fakeMemory) Read(addr int) (int, error) {
	if addr == m.failOn {
		return 0, m.failErr
	}
	return m.words[addr], nil
}

func (m *fakeMemory) Write(addr int, value int) error {
	if addr == m.failOn {
		return m.failErr
	}
	m.words[addr] = value
	return nil
}

func (m *fakeMemory) writeCString(addr int, s string) {
	for i, c := range []byte(s) {
		m.words[addr+i] = int(c)
	}
	m.words[addr+len(s)] = 0
}

// fakeIO is a terminal+timer device bank, standing in for the I/O
// collaborator. Tests drive it directly to simulate device readiness.
type fakeIO struct {
	regs map[int]int
}

func newFakeIO() *fakeIO {
	return &fakeIO{regs: make(map[int]int)}
}

func (io *fakeIO) Read(device int) (int, error)      { return io.regs[device], nil }
func (io *fakeIO) Write(device int, value int) error { io.regs[device] = value; return nil }

func (io *fakeIO) setKeyboardReady(p *Port, data int) {
	io.regs[p.KeyboardStatus] = 1
	io.regs[p.KeyboardData] = data
}

func (io *fakeIO) clearKeyboard(p *Port) {
	io.regs[p.KeyboardStatus] = 0
}

func (io *fakeIO) setScreenReady(p *Port) {
	io.regs[p.ScreenStatus] = 1
}

func (io *fakeIO) clearScreen(p *Port) {
	io.regs[p.ScreenStatus] = 0
}

// fakeLoader maps program names to a load address, or fails for unknown
// names.
type fakeLoader struct {
	images map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{images: make(map[string]int)}
}

func (l *fakeLoader) Load(name string) (int, error) {
	addr, ok := l.images[name]
	if !ok {
		return -1, fmt.Errorf("fake loader: no such program %q", name)
	}
	return addr, nil
}

// fakeConsole records every line printed, for assertions that expect
// (or don't expect) a particular diagnostic.
type fakeConsole struct {
	lines []string
}

func (c *fakeConsole) Printf(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}
