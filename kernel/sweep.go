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

// sweep re-examines every BLOCKED descriptor and retries the condition
// that blocked it, unblocking those that can now make progress (spec
// §4.6). It is idempotent: running it twice in a row has the same
// effect as running it once, since a descriptor that is unblocked on
// the first pass is no longer BLOCKED on the second.
func (k *Kernel) sweep() {
	for i := 0; i < k.table.Len(); i++ {
		p := k.table.At(i)
		if p.State != Blocked {
			continue
		}
		switch p.Block.Kind {
		case BlockRead:
			k.attemptRead(p, false)
		case BlockWrite:
			k.attemptWrite(p, false)
		case BlockWaitPID:
			k.retryWait(p)
		}
	}
}

// retryWait resolves a process blocked in WAIT. A target that no longer
// exists as a live process (dead, or never created) is treated as an
// already-satisfied wait: spec §4.6 takes this "not found and not in
// MORTO" condition as vacuously true, and §9 records this as the
// deliberately preserved source behavior.
func (k *Kernel) retryWait(p *Process) {
	if _, live := k.table.FindLive(p.Block.Target); live {
		return
	}
	p.State = Ready
	p.Block = Block{}
	p.Regs.A = 0
}
