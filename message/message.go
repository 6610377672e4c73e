/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package message implements spec.md section 4.11: an event flag composed
// with a single in-place payload slot. The slot retains its last value
// between sends — Message is a mailbox, not a queue (see channel for the
// bounded-FIFO primitive).
package message

import (
	"github.com/nanokern/nanokern/kagent"
	"github.com/nanokern/nanokern/service"
)

// Message[T] is an event flag plus a T payload, both protected by the
// same critical section.
type Message[T any] struct {
	agent    kagent.Agent
	nonEmpty bool
	slot     T
	waiters  service.Waiters
}

// New constructs an empty Message bound to agent.
func New[T any](agent kagent.Agent) *Message[T] {
	return &Message[T]{agent: agent}
}

// Assign copies msg into the slot without signaling; a subsequent Send
// delivers whatever the slot currently holds.
func (m *Message[T]) Assign(msg T) {
	exit := m.agent.Guard().Enter()
	defer exit()
	m.slot = msg
}

// Send signals the message; if nobody was waiting, the event latches so
// the next Wait returns immediately.
func (m *Message[T]) Send() {
	exit := m.agent.Guard().Enter()
	defer exit()
	if m.waiters.Map == 0 {
		m.nonEmpty = true
		return
	}
	service.ResumeAll(m.agent, &m.waiters)
	m.agent.InvokeScheduler()
}

// SendISR is the ISR-safe variant; the scheduler runs at the outermost
// isrguard exit rather than inline.
func (m *Message[T]) SendISR() {
	exit := m.agent.Guard().Enter()
	defer exit()
	if m.waiters.Map == 0 {
		m.nonEmpty = true
		return
	}
	service.ResumeAll(m.agent, &m.waiters)
}

// Wait blocks until Send/SendISR is observed or timeout ticks elapse (0 =
// unbounded), exactly like eventflag.Wait over the non_empty bit.
func (m *Message[T]) Wait(timeout uint32) bool {
	exit := m.agent.Guard().Enter()
	defer exit()
	if m.nonEmpty {
		m.nonEmpty = false
		return true
	}
	cur := m.agent.CurProc()
	cur.SetWaitingFor(m)
	woken := service.Suspend(m.agent, &m.waiters, timeout)
	cur.ClearWaitingFor()
	return woken
}

// Out copies the current slot value out under the critical section; the
// slot is left unchanged (spec.md: "the slot retains its last value").
func (m *Message[T]) Out() T {
	exit := m.agent.Guard().Enter()
	defer exit()
	return m.slot
}
