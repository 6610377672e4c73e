/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package service factors the waiter-map bookkeeping spec.md section 5
// repeats across every IPC primitive (event flag, mutex, message, typed
// channel): suspend the current process against a procmap.Map of waiters,
// resume one or all of them, and recognize a timeout wakeup versus a
// genuine event. Each IPC package embeds a Waiters and calls these
// functions instead of re-deriving the bitmap arithmetic.
package service

import (
	"github.com/nanokern/nanokern/kagent"
	"github.com/nanokern/nanokern/procmap"
)

// Waiters is the bitmap of processes blocked on one service instance,
// shared by every IPC primitive's wait queue.
type Waiters struct {
	Map procmap.Map
}

// Suspend blocks the calling process (agent.CurProc()) against w until
// either it is resumed (ResumeAll/ResumeNextReady) or timeout ticks
// elapse. The caller must hold agent.Guard(); Suspend releases it for the
// duration of the context switch, as process.Process's own Sleep does.
//
// It returns true if the process was resumed by an event (its tag was
// cleared from w by a Resume call before the timeout ticks elapsed), and
// false if it woke because the timeout expired first — spec.md section
// 5's "timeouted" outcome every IPC wait reports.
//
// spec.md section 4.8 is explicit that is_timeouted's caller, not the tick
// handler, clears its own bit from w before acting on the result — the tick
// handler only readies the process, since it has no notion of which
// waiter map (if any) that process belongs to. Suspend is that caller: on a
// timeout outcome it clears cur's tag from w itself, so the bit never
// lingers in a service's waiter map past the wait call that put it there
// (spec.md invariants I4/P2).
func Suspend(agent kagent.Agent, w *Waiters, timeout uint32) bool {
	cur := agent.CurProc()
	w.Map |= procmap.Map(cur.Tag())
	cur.SetWaitingMapRef(&w.Map)
	cur.SetTimeout(timeout)
	agent.ClearReady(cur.Tag())
	agent.InvokeScheduler()

	cur.ClearWaitingMapRef()
	timedOut := w.Map&procmap.Map(cur.Tag()) != 0
	if timedOut {
		w.Map &^= procmap.Map(cur.Tag())
	}
	return !timedOut
}

// resume clears tag from w and readies the corresponding process,
// returning its ProcHandle.
func resume(agent kagent.Agent, w *Waiters, tag procmap.Tag) (kagent.ProcHandle, bool) {
	w.Map &^= procmap.Map(tag)
	for pr := 0; pr < agent.N(); pr++ {
		ph, ok := agent.ProcAt(pr)
		if ok && ph.Tag() == tag {
			ph.SetTimeout(0)
			agent.SetReady(tag)
			return ph, true
		}
	}
	return nil, false
}

// ResumeAll wakes every process waiting on w: spec.md's broadcast-style
// resume used by event flags and typed channels reaching a watermark. The
// caller must hold agent.Guard() and call agent.InvokeScheduler() (or rely
// on the ISR-side scheduler) afterward; ResumeAll itself never switches.
func ResumeAll(agent kagent.Agent, w *Waiters) {
	m := w.Map
	for m != 0 {
		tag := agent.HighestPrioTag(m)
		resume(agent, w, tag)
		m &^= procmap.Map(tag)
	}
}

// ResumeNextReady wakes only the single highest-priority waiter on w:
// spec.md's mutex-unlock and channel push/pop semantics, where ownership,
// a freed slot or a queued item goes to exactly one process. It reports
// whether any waiter existed. The caller must hold agent.Guard() and call
// agent.InvokeScheduler() afterward.
func ResumeNextReady(agent kagent.Agent, w *Waiters) (kagent.ProcHandle, bool) {
	if w.Map == 0 {
		return nil, false
	}
	tag := agent.HighestPrioTag(w.Map)
	return resume(agent, w, tag)
}
