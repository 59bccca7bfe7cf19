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
	"io"
	"os"

	"golang.org/x/term"
)

// Logger is a line-oriented diagnostic sink for kernel.Console,
// separate from the simulated terminal ports: kernel log lines always
// go to the host's stderr, never down a simulated port.
type Logger struct {
	out io.Writer
}

// NewLogger wraps w (typically os.Stderr) as a kernel.Console.
func NewLogger(w io.Writer) *Logger {
	return &Logger{out: w}
}

func (l *Logger) Printf(format string, args ...any) {
	fmt.Fprintf(l.out, format+"\n", args...)
}

// LocalTerminal is a TerminalBackend bound to the process's own
// controlling terminal, put into raw mode so the simulated keyboard
// port sees bytes as they're typed rather than after a line edit.
// Adapted from the raw-mode dance the original emulator's main used
// around stdin/stdout.
type LocalTerminal struct {
	in    *os.File
	out   *os.File
	saved *term.State
	bytes chan byte
}

// NewLocalTerminal puts stdin into raw mode, if it is a terminal, and
// starts a background reader feeding bytes to TryReadByte. Call
// Close to restore the terminal.
func NewLocalTerminal(in, out *os.File) (*LocalTerminal, error) {
	lt := &LocalTerminal{in: in, out: out, bytes: make(chan byte, 256)}

	if term.IsTerminal(int(in.Fd())) {
		saved, err := term.MakeRaw(int(in.Fd()))
		if err != nil {
			return nil, fmt.Errorf("hardware: set raw mode: %w", err)
		}
		lt.saved = saved
	}

	go lt.readLoop()
	return lt, nil
}

func (lt *LocalTerminal) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := lt.in.Read(buf)
		if n > 0 {
			lt.bytes <- buf[0]
		}
		if err != nil {
			close(lt.bytes)
			return
		}
	}
}

func (lt *LocalTerminal) TryReadByte() (byte, bool) {
	select {
	case b, ok := <-lt.bytes:
		return b, ok
	default:
		return 0, false
	}
}

func (lt *LocalTerminal) TryWriteByte(value byte) bool {
	_, err := lt.out.Write([]byte{value})
	return err == nil
}

// Close restores the terminal's original mode, if it was changed.
func (lt *LocalTerminal) Close() error {
	if lt.saved == nil {
		return nil
	}
	return term.Restore(int(lt.in.Fd()), lt.saved)
}
