/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package kagent is the single narrow boundary through which services and
// processes reach into kernel-private state. spec.md section 9 calls the
// source pattern this replaces "friend-class access from services to
// kernel internals," and prescribes exactly this shape: a documented
// capability interface implemented only by the kernel, never a second
// implementation and never broader than the primitives below.
//
// kagent imports nothing from kernel, process, or service — it only
// depends on procmap — which is what lets process.Process
// satisfy ProcHandle and kernel.Kernel satisfy Agent purely structurally,
// with no import cycle between the packages that use this boundary.
package kagent

import "github.com/nanokern/nanokern/procmap"

// ProcHandle is everything a service or the base process operations need
// from a process, without depending on the concrete process.Process type.
type ProcHandle interface {
	Tag() procmap.Tag
	Priority() int
	Name() string

	Timeout() uint32
	SetTimeout(uint32)

	SetWaitingFor(svc interface{})
	ClearWaitingFor()
	WaitingFor() interface{}

	SetWaitingMapRef(m *procmap.Map)
	ClearWaitingMapRef()
}

// Agent is the kernel's documented surface for services and processes.
type Agent interface {
	Order() procmap.Order
	N() int
	Guard() Locker

	ReadyMap() procmap.Map
	SetReady(tag procmap.Tag)
	ClearReady(tag procmap.Tag)

	CurProc() ProcHandle
	ProcAt(priority int) (ProcHandle, bool)

	// HighestPrioTag returns the tag of the highest-priority bit set in m.
	HighestPrioTag(m procmap.Map) procmap.Tag

	// InvokeScheduler runs the scheduler from process context (spec.md
	// section 4.4's scheduler()/sched()); it may block the calling
	// goroutine until this process is rescheduled.
	InvokeScheduler()
	// InvokeSchedulerISR is sched_isr(): called only by the outermost
	// isrguard.Enter exit function. It never switches inline from nested ISR
	// context (EndISR only calls it once isrNest has returned to zero).
	InvokeSchedulerISR()

	// BeginISR and EndISR back isrguard.Enter: they track ISR nesting and,
	// on the outermost EndISR, invoke InvokeSchedulerISR.
	BeginISR()
	EndISR()

	DebugEnabled() bool
	RestartEnabled() bool
}

// Locker is the subset of critsec.Guard that kagent consumers need; kept
// as an interface here (rather than importing *critsec.Guard's concrete
// type) so kagent's only real dependency stays procmap.
type Locker interface {
	Enter() func()
}
