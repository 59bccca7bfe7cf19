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

// scheduler picks the next process to run, per spec §4.4. It owns no
// state of its own beyond the rotation cursor used to make round-robin
// actually rotate; the process table is the source of truth for who is
// READY.
type scheduler struct {
	// lastSlot is the table index most recently dispatched, or -1 before
	// the first dispatch. Round-robin selection scans starting just after
	// this slot and wraps around, so repeated exhaustion cycles through
	// every READY process instead of always picking the lowest index
	// (spec §4.4's "rebuild from scratch... table order" is read here as
	// table order rotated to start after whoever just ran; see DESIGN.md).
	lastSlot int
}

func newScheduler() *scheduler {
	return &scheduler{lastSlot: -1}
}

// pick selects the next process to run. current may be nil. quantum is
// the kernel's quantum counter; pick resets it to initialQuantum when it
// takes the round-robin branch.
func (s *scheduler) pick(table *Table, current *Process, quantum *int, initialQuantum int) *Process {
	if current != nil && current.State == Running {
		return current
	}

	if *quantum <= 0 {
		if next := s.nextReadyRotated(table); next != nil {
			*quantum = initialQuantum
			return next
		}
		return nil
	}

	return s.highestPriorityReady(table)
}

// nextReadyRotated scans the table starting just after lastSlot,
// wrapping once, and returns the first READY descriptor found.
func (s *scheduler) nextReadyRotated(table *Table) *Process {
	n := table.Len()
	for i := 1; i <= n; i++ {
		idx := (s.lastSlot + i) % n
		p := table.At(idx)
		if p.State == Ready {
			return p
		}
	}
	return nil
}

// highestPriorityReady returns the READY descriptor with the greatest
// priority, ties broken by ascending table index.
func (s *scheduler) highestPriorityReady(table *Table) *Process {
	var best *Process
	for i := 0; i < table.Len(); i++ {
		p := table.At(i)
		if p.State != Ready {
			continue
		}
		if best == nil || p.Priority > best.Priority {
			best = p
		}
	}
	return best
}

// noted records that proc was just dispatched, advancing the rotation
// cursor for the next round-robin selection.
func (s *scheduler) noted(proc *Process) {
	if proc != nil {
		s.lastSlot = proc.Slot()
	}
}
