/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package platform is the kernel's one required external collaborator:
// spec.md section 6 specifies start_first, context_switch, init_stack_frame
// and the deferred-scheme trap primitives as per-target assembly, with fixed
// contracts but port-defined signatures. nanokern ships exactly one
// realization, a goroutine/channel simulator, so the core is testable on a
// host without any assembly at all. A real microcontroller port replaces
// this package; nothing above it changes.
package platform

import (
	"runtime"

	"github.com/nanokern/nanokern/critsec"
)

// StackPointer stands in for a saved stack pointer: a one-slot token
// channel. Sending wakes the process parked receiving on it; nothing else
// about the token carries meaning.
type StackPointer chan struct{}

// NewStackPointer allocates an unset stack pointer (a process not yet
// constructed).
func NewStackPointer() StackPointer {
	return make(StackPointer, 1)
}

// InitStackFrame is the simulated init_stack_frame(stack_top, entry_fn):
// it spawns entry as a goroutine that immediately blocks on sp, so the
// first token sent to sp "lands" control in entry with nothing else having
// executed yet — the synthetic interrupt-return frame spec.md describes.
// If entry returns (spec.md section 7: "exiting the entry function" is
// forbidden misuse), the goroutine parks forever rather than exhibiting
// truly undefined behavior.
func InitStackFrame(sp StackPointer, entry func()) {
	go func() {
		<-sp
		entry()
		select {}
	}()
}

// StartFirst is run(): hand the first process its token and never return,
// exactly as spec.md section 4.7 requires of the real primitive.
func StartFirst(first StackPointer) {
	first <- struct{}{}
	select {}
}

// ContextSwitch is the simulated context_switch(save_sp_slot, new_sp). It
// wakes next, then releases guard before parking on cur and reacquires
// guard once resumed.
//
// The unlock/relock pair is the crux of the simulation: on real hardware,
// the CPU status register's interrupt-enable bit is saved and restored as
// part of each process's own register set, so a process that is not
// currently executing is not "holding" the critical section at all — only
// the process that is actually running holds it, and that changes exactly
// at ContextSwitch. Keeping the guard locked across the parked receive
// would instead make every blocked process hold the lock forever, and the
// kernel would wedge the first time anything blocked. Releasing here and
// reacquiring on resume reproduces the hardware behavior precisely: the
// critical section is held continuously from the caller's perspective
// (Enter...ContextSwitch...return still looks atomic to the caller) while
// genuinely allowing concurrent ISR goroutines and other processes to make
// progress during the parked interval.
func ContextSwitch(guard *critsec.Guard, cur, next StackPointer) {
	next <- struct{}{}
	guard.Unlock()
	<-cur
	guard.Relock()
}

// DummyInstr is the deferred scheme's DUMMY_INSTR(): one architectural
// no-op, executed so that any interrupt pended during the preceding brief
// enable is actually taken before interrupts are masked again. Gosched is
// the closest stand-in available on a hosted Go scheduler: it yields the
// current goroutine so any pending, runnable ISR goroutine gets a turn.
func DummyInstr() {
	runtime.Gosched()
}
