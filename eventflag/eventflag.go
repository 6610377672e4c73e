/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package eventflag implements spec.md section 4.9: a broadcast binary
// event with a latching pending bit.
package eventflag

import (
	"github.com/nanokern/nanokern/kagent"
	"github.com/nanokern/nanokern/service"
)

// EventFlag is off/on with a set of waiters blocked in Wait.
type EventFlag struct {
	agent   kagent.Agent
	value   bool
	waiters service.Waiters
}

// New constructs an EventFlag bound to agent, off.
func New(agent kagent.Agent) *EventFlag {
	return &EventFlag{agent: agent}
}

// Wait blocks until the flag is signaled or timeout ticks elapse (0 means
// unbounded). It returns true if an event was observed — either the flag
// was already on, or a Signal call woke this process — and false if the
// wait expired.
func (f *EventFlag) Wait(timeout uint32) bool {
	exit := f.agent.Guard().Enter()
	defer exit()

	if f.value {
		f.value = false
		return true
	}

	cur := f.agent.CurProc()
	cur.SetWaitingFor(f)
	woken := service.Suspend(f.agent, &f.waiters, timeout)
	cur.ClearWaitingFor()
	return woken
}

// Signal wakes every current waiter. If there were none, the flag latches
// on so the next Wait call returns true immediately without suspending.
func (f *EventFlag) Signal() {
	exit := f.agent.Guard().Enter()
	defer exit()
	f.signalLocked()
}

func (f *EventFlag) signalLocked() {
	if f.waiters.Map == 0 {
		f.value = true
		return
	}
	service.ResumeAll(f.agent, &f.waiters)
	f.agent.InvokeScheduler()
}

// SignalISR is the ISR-safe variant: it resumes waiters but relies on the
// isrguard exit path to invoke the scheduler rather than doing so inline.
func (f *EventFlag) SignalISR() {
	exit := f.agent.Guard().Enter()
	defer exit()
	if f.waiters.Map == 0 {
		f.value = true
		return
	}
	service.ResumeAll(f.agent, &f.waiters)
}

// Clear forces the flag off without waking anyone.
func (f *EventFlag) Clear() {
	exit := f.agent.Guard().Enter()
	defer exit()
	f.value = false
}

// IsSignaled reports the current latch state.
func (f *EventFlag) IsSignaled() bool {
	exit := f.agent.Guard().Enter()
	defer exit()
	return f.value
}
