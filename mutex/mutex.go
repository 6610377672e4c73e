/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package mutex implements spec.md section 4.10: an ownership-tagged
// binary lock with direct ownership transfer on unlock (no priority
// inheritance, no recursion).
package mutex

import (
	"errors"

	"github.com/nanokern/nanokern/kagent"
	"github.com/nanokern/nanokern/procmap"
	"github.com/nanokern/nanokern/service"
)

// ErrNotOwner is returned by Unlock when the caller does not hold the
// mutex; spec.md documents unlock-by-a-non-owner as forbidden misuse, and
// nanokern reports it rather than silently corrupting owner_tag.
var ErrNotOwner = errors.New("mutex: unlock called by non-owner")

// Mutex is a binary lock whose owner is identified by process tag, not by
// a counting depth — it is not reentrant.
type Mutex struct {
	agent   kagent.Agent
	owner   procmap.Tag // 0 means unlocked
	waiters service.Waiters
}

// New constructs an unlocked Mutex bound to agent.
func New(agent kagent.Agent) *Mutex {
	return &Mutex{agent: agent}
}

// Lock blocks until the calling process owns the mutex. If it was already
// unlocked, ownership transfers immediately; otherwise the process is
// queued and, regardless of why it resumes, becomes the new owner — the
// unlocker always hands ownership directly to the woken process (spec.md
// section 4.10).
func (m *Mutex) Lock() {
	exit := m.agent.Guard().Enter()
	defer exit()

	cur := m.agent.CurProc()
	if m.owner == 0 {
		m.owner = cur.Tag()
		return
	}
	cur.SetWaitingFor(m)
	service.Suspend(m.agent, &m.waiters, 0)
	cur.ClearWaitingFor()
	m.owner = cur.Tag()
}

// TryLock acquires the mutex only if it is currently free, never blocking.
func (m *Mutex) TryLock() bool {
	exit := m.agent.Guard().Enter()
	defer exit()
	if m.owner != 0 {
		return false
	}
	m.owner = m.agent.CurProc().Tag()
	return true
}

// TryLockTimeout behaves like Lock but bounds the wait; on expiry the
// caller was never chosen by any unlocker and does not own the mutex.
func (m *Mutex) TryLockTimeout(timeout uint32) bool {
	exit := m.agent.Guard().Enter()
	defer exit()

	cur := m.agent.CurProc()
	if m.owner == 0 {
		m.owner = cur.Tag()
		return true
	}
	cur.SetWaitingFor(m)
	woken := service.Suspend(m.agent, &m.waiters, timeout)
	cur.ClearWaitingFor()
	if !woken {
		return false
	}
	m.owner = cur.Tag()
	return true
}

// Unlock releases the mutex. Only the current owner may call it; the
// highest-priority waiter, if any, becomes the new owner directly —
// ownership passes without any window where the mutex appears free.
func (m *Mutex) Unlock() error {
	exit := m.agent.Guard().Enter()
	defer exit()

	if m.owner != m.agent.CurProc().Tag() {
		return ErrNotOwner
	}
	m.owner = 0
	if next, ok := service.ResumeNextReady(m.agent, &m.waiters); ok {
		m.owner = next.Tag()
		m.agent.InvokeScheduler()
	}
	return nil
}

// UnlockISR is the ISR-safe variant, relying on the isrguard exit path to
// invoke the scheduler.
func (m *Mutex) UnlockISR() error {
	exit := m.agent.Guard().Enter()
	defer exit()

	if m.owner != m.agent.CurProc().Tag() {
		return ErrNotOwner
	}
	m.owner = 0
	if next, ok := service.ResumeNextReady(m.agent, &m.waiters); ok {
		m.owner = next.Tag()
	}
	return nil
}

// IsLocked reports whether the mutex currently has an owner.
func (m *Mutex) IsLocked() bool {
	exit := m.agent.Guard().Enter()
	defer exit()
	return m.owner != 0
}
