/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanokern/nanokern/kagent"
	"github.com/nanokern/nanokern/procmap"
	"github.com/nanokern/nanokern/service"
)

// fakeProc and fakeAgent give these tests a minimal kagent.Agent without
// pulling in the real kernel's goroutine-per-process machinery; service's
// contract is pure bitmap bookkeeping, so a fake agent is the narrower,
// more direct test.

type fakeProc struct {
	tag      procmap.Tag
	priority int
	timeout  uint32
	waitRef  *procmap.Map
	ready    bool
}

func (p *fakeProc) Tag() procmap.Tag    { return p.tag }
func (p *fakeProc) Priority() int       { return p.priority }
func (p *fakeProc) Name() string        { return "fake" }
func (p *fakeProc) Timeout() uint32     { return p.timeout }
func (p *fakeProc) SetTimeout(t uint32) { p.timeout = t }
func (p *fakeProc) SetWaitingFor(interface{}) {}
func (p *fakeProc) ClearWaitingFor()          {}
func (p *fakeProc) WaitingFor() interface{}   { return nil }
func (p *fakeProc) SetWaitingMapRef(m *procmap.Map) { p.waitRef = m }
func (p *fakeProc) ClearWaitingMapRef()             { p.waitRef = nil }

type fakeAgent struct {
	procs   []*fakeProc
	ready   procmap.Map
	cur     int
	nSched  int
}

func (a *fakeAgent) Order() procmap.Order { return procmap.LSBFirst }
func (a *fakeAgent) N() int               { return len(a.procs) }
func (a *fakeAgent) Guard() kagent.Locker { return noopLocker{} }

func (a *fakeAgent) ReadyMap() procmap.Map        { return a.ready }
func (a *fakeAgent) SetReady(tag procmap.Tag)     { a.ready |= procmap.Map(tag) }
func (a *fakeAgent) ClearReady(tag procmap.Tag)   { a.ready &^= procmap.Map(tag) }

func (a *fakeAgent) CurProc() kagent.ProcHandle { return a.procs[a.cur] }
func (a *fakeAgent) ProcAt(priority int) (kagent.ProcHandle, bool) {
	for _, p := range a.procs {
		if p.priority == priority {
			return p, true
		}
	}
	return nil, false
}

func (a *fakeAgent) HighestPrioTag(m procmap.Map) procmap.Tag {
	return procmap.HighestPrioTag(procmap.LSBFirst, len(a.procs), m)
}

func (a *fakeAgent) InvokeScheduler()    { a.nSched++ }
func (a *fakeAgent) InvokeSchedulerISR() {}
func (a *fakeAgent) BeginISR()           {}
func (a *fakeAgent) EndISR()             {}
func (a *fakeAgent) DebugEnabled() bool  { return false }
func (a *fakeAgent) RestartEnabled() bool { return false }

type noopLocker struct{}

func (noopLocker) Enter() func() { return func() {} }

func newFakeAgent(n int) *fakeAgent {
	a := &fakeAgent{}
	for i := 0; i < n; i++ {
		a.procs = append(a.procs, &fakeProc{
			tag:      procmap.PrioTag(procmap.LSBFirst, n, i),
			priority: i,
		})
	}
	return a
}

func TestResumeNextReadyWakesSingleHighestPriority(t *testing.T) {
	a := newFakeAgent(4)
	var w service.Waiters
	w.Map |= procmap.Map(a.procs[2].tag)
	w.Map |= procmap.Map(a.procs[1].tag)

	ph, ok := service.ResumeNextReady(a, &w)
	require.True(t, ok)
	require.Equal(t, 1, ph.Priority())
	require.Equal(t, procmap.Map(a.procs[2].tag), w.Map)
	require.NotZero(t, a.ready&procmap.Map(a.procs[1].tag))
}

func TestResumeAllClearsEveryWaiter(t *testing.T) {
	a := newFakeAgent(5)
	var w service.Waiters
	for _, i := range []int{0, 2, 4} {
		w.Map |= procmap.Map(a.procs[i].tag)
	}

	service.ResumeAll(a, &w)

	require.Zero(t, w.Map)
	for _, i := range []int{0, 2, 4} {
		require.NotZero(t, a.ready&procmap.Map(a.procs[i].tag))
	}
}

func TestResumeNextReadyEmptyReportsFalse(t *testing.T) {
	a := newFakeAgent(2)
	var w service.Waiters
	_, ok := service.ResumeNextReady(a, &w)
	require.False(t, ok)
}

func TestSuspendMarksWaitingAndTimeout(t *testing.T) {
	a := newFakeAgent(3)
	var w service.Waiters

	a.cur = 1
	woken := service.Suspend(a, &w, 5)

	// Nothing resumed this waiter before it "returned" in this synchronous
	// fake, so the tag is still set in w and the timeout outcome is false
	// (spurious/timeout), matching Suspend's contract.
	require.False(t, woken)
	require.Equal(t, 1, a.nSched)
	// A timed-out Suspend must clear its own tag from w (spec.md I4/P2):
	// the bit must not linger so this process can later wait on a
	// different service without appearing in two waiter maps at once.
	require.Zero(t, w.Map)
}
