/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package critsec is the kernel's single atomicity primitive: a scoped
// guard standing in for "disable interrupts globally; restore on exit."
//
// On real hardware, disabling already-disabled interrupts is free and
// nesting is automatic because there is exactly one interrupt-enable flag.
// nanokern's host simulation has no such flag, only goroutines, so nesting
// is instead a structural discipline: exactly one exported entry point per
// public operation calls Guard.Enter, and every kernel-internal helper it
// calls assumes the guard is already held (and is named with a Locked
// suffix, the same convention the teacher's mutex-guarded Logger uses via
// defer l.mtx.Unlock()). Guard itself never nests a real lock acquisition.
package critsec

import "sync"

// Guard is the kernel-wide critical section. There is exactly one live
// instance per kernel.Kernel.
type Guard struct {
	mu sync.Mutex
}

// Enter disables interrupts (acquires the guard) and returns a function
// that restores them (releases the guard). Callers use it the same way the
// teacher's code uses a mutex plus defer:
//
//	exit := g.Enter()
//	defer exit()
func (g *Guard) Enter() (exit func()) {
	g.mu.Lock()
	return g.mu.Unlock
}

// TryEnter attempts to acquire the guard without blocking, reporting
// whether it succeeded; on success the returned function releases it.
func (g *Guard) TryEnter() (exit func(), ok bool) {
	if g.mu.TryLock() {
		return g.mu.Unlock, true
	}
	return nil, false
}

// Unlock releases a held guard without acquiring it again later; paired
// with Relock, it lets platform.ContextSwitch release the guard across the
// blocking half of a switch and reacquire it before returning, mirroring
// each process's saved interrupt-enable state traveling independently of
// every other process's.
func (g *Guard) Unlock() { g.mu.Unlock() }

// Relock reacquires a guard previously released with Unlock.
func (g *Guard) Relock() { g.mu.Lock() }
