/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package kernel

import (
	"github.com/nanokern/nanokern/config"
	"github.com/nanokern/nanokern/kagent"
	"github.com/nanokern/nanokern/platform"
	"github.com/nanokern/nanokern/procmap"
)

// Kernel implements kagent.Agent; this file holds that implementation plus
// the two scheduler schemes of spec.md section 4.4.

var _ kagent.Agent = (*Kernel)(nil)

func (k *Kernel) Order() procmap.Order { return k.cfg.PriorityOrder }
func (k *Kernel) N() int               { return k.cfg.ProcessCount }
func (k *Kernel) Guard() kagent.Locker { return &k.guard }

// ReadyMap, SetReady and ClearReady assume the caller already holds
// k.guard — every exported entry point above takes it, and these three are
// only ever called from inside a held guard (process.Process's operations,
// and InvokeScheduler/InvokeSchedulerISR below).
func (k *Kernel) ReadyMap() procmap.Map { return k.readyMap }
func (k *Kernel) SetReady(tag procmap.Tag) { k.readyMap |= procmap.Map(tag) }
func (k *Kernel) ClearReady(tag procmap.Tag) { k.readyMap &^= procmap.Map(tag) }

func (k *Kernel) CurProc() kagent.ProcHandle {
	return k.procs[k.curPriority]
}

func (k *Kernel) ProcAt(priority int) (kagent.ProcHandle, bool) {
	if priority < 0 || priority >= len(k.procs) || k.procs[priority] == nil {
		return nil, false
	}
	return k.procs[priority], true
}

func (k *Kernel) HighestPrioTag(m procmap.Map) procmap.Tag {
	return procmap.HighestPrioTag(k.cfg.PriorityOrder, k.cfg.ProcessCount, m)
}

func (k *Kernel) DebugEnabled() bool    { return k.cfg.DebugEnable }
func (k *Kernel) RestartEnabled() bool  { return k.cfg.ProcessRestartEnable }

// InvokeScheduler is scheduler()/sched() from process context (spec.md
// section 4.4). The caller must hold k.guard; InvokeScheduler releases it
// around the blocking half of a context switch and re-acquires it before
// returning, exactly like process.Process's other guarded operations.
func (k *Kernel) InvokeScheduler() {
	switch k.cfg.ContextSwitchScheme {
	case config.SchemeDeferred:
		k.schedDeferred()
	default:
		k.schedDirect()
	}
}

// schedDirect is the direct scheme: compute the new highest-ready
// priority and, if it differs from the one currently executing, switch to
// it immediately and inline.
func (k *Kernel) schedDirect() {
	next := procmap.HighestPriority(k.cfg.PriorityOrder, k.cfg.ProcessCount, k.readyMap)
	if next == k.curPriority {
		return
	}
	k.switchTo(next)
}

// switchTo performs the actual platform.ContextSwitch from k.curPriority to
// next, updating curPriority first (so the resumed process sees itself as
// current once it wakes) and invoking the optional user hook beforehand,
// per cfg.ContextSwitchUserHookEnable.
func (k *Kernel) switchTo(next int) {
	if k.cfg.ContextSwitchUserHookEnable && k.ctxSwitchHook != nil {
		k.ctxSwitchHook()
	}
	cur := k.procs[k.curPriority]
	k.curPriority = next
	nextProc := k.procs[next]
	platform.ContextSwitch(&k.guard, cur.StackPointer(), nextProc.StackPointer())
}

// schedDeferred is the deferred scheme: pend the computed priority and
// open a release window (drop the lock, yield, reacquire) so a racing ISR
// gets a chance to update schedPriority to a still-higher decision before
// the trap is taken. This call's own goroutine always performs the
// eventual switch, which is what platform.ContextSwitch requires — see
// InvokeSchedulerISR's doc comment for why an ISR never may.
func (k *Kernel) schedDeferred() {
	next := procmap.HighestPriority(k.cfg.PriorityOrder, k.cfg.ProcessCount, k.readyMap)
	if next == k.curPriority {
		return
	}
	k.schedPriority = next
	k.trapPending = true

	for k.trapPending {
		k.guard.Unlock()
		platform.DummyInstr()
		k.guard.Relock()
		if k.trapPending {
			k.takeTrapLocked()
		}
	}
}

// takeTrapLocked performs the pended switch; the caller must hold k.guard
// and have already confirmed trapPending.
func (k *Kernel) takeTrapLocked() {
	next := k.schedPriority
	k.trapPending = false
	if next == k.curPriority {
		return
	}
	k.switchTo(next)
}

// InvokeSchedulerISR is sched_isr(): called only by isrguard's EndISR, only
// on the outermost ISR exit (isrNest having just returned to zero).
//
// Unlike real hardware — where the interrupted process's own stack and
// thread of control resume the scheduler synchronously at ISR exit —
// nanokern's ISRs run on whatever goroutine is driving the simulated
// interrupt (the timer loop, an injected test ISR, ...), which is never
// the interrupted process's own goroutine. Only a process's own goroutine
// may safely block inside platform.ContextSwitch (it parks there to be
// resumed later by exactly that same call stack), so InvokeSchedulerISR
// never performs the switch itself. It only records the decision
// (schedPriority/trapPending, reused here for both schemes as a uniform
// pending-switch flag); the currently running process's own next
// cooperative scheduling point picks it up — either its next blocking
// kernel call, which always recomputes highest_priority(ready_map) fresh,
// or, for the idle process, the next loop iteration, which calls
// InvokeScheduler on every pass for exactly this reason (see
// NewIdleProcess). This is the one place nanokern trades true hardware
// preemption for a cooperative approximation a hosted goroutine
// simulation can actually make good on; see DESIGN.md.
func (k *Kernel) InvokeSchedulerISR() {
	exit := k.guard.Enter()
	defer exit()

	next := procmap.HighestPriority(k.cfg.PriorityOrder, k.cfg.ProcessCount, k.readyMap)
	if next == k.curPriority {
		return
	}
	k.schedPriority = next
	k.trapPending = true
}

// BeginISR and EndISR track ISR nesting (spec.md section 4.6); only the
// outermost EndISR invokes the scheduler.
//
// cfg.SystimerNestIntsEnable gates whether a second ISR may actually
// preempt one already in progress: when false (the default), BeginISR
// spins until isrNest has returned to zero before counting itself,
// matching real hardware running with nested interrupts masked; when
// true, it counts itself immediately and the two may interleave, exactly
// as spec.md section 6 describes for the tick ISR.
func (k *Kernel) BeginISR() {
	exit := k.guard.Enter()
	for !k.cfg.SystimerNestIntsEnable && k.isrNest > 0 {
		exit()
		platform.DummyInstr()
		exit = k.guard.Enter()
	}
	k.isrNest++
	exit()
}

func (k *Kernel) EndISR() {
	exit := k.guard.Enter()
	outermost := k.isrNest == 1
	k.isrNest--
	exit()
	if outermost {
		k.InvokeSchedulerISR()
	}
}
