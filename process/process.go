/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package process implements the base process: the essential attributes
// and operations of spec.md section 3 and section 4.3, realized without
// compile-time polymorphism over priority/stack size (spec.md section 9
// explicitly calls the template-per-process pattern a workaround for
// static stack sizing that a runtime-dispatched table makes unnecessary).
package process

import (
	"errors"

	"github.com/nanokern/nanokern/kagent"
	"github.com/nanokern/nanokern/platform"
	"github.com/nanokern/nanokern/procmap"
)

// ErrRestartDisabled is returned by Terminate when the kernel was
// constructed with ProcessRestartEnable false.
var ErrRestartDisabled = errors.New("process: restart is disabled")

// Option configures a Process at construction.
type Option func(*Process)

// WithName attaches a debug name, used in klog fields and String().
func WithName(name string) Option {
	return func(p *Process) { p.name = name }
}

// StartSuspended leaves the process not-ready after registration; the
// owner must call Start() to launch it, matching spec.md section 4.3's
// "processes declared in suspended start state."
func StartSuspended() Option {
	return func(p *Process) { p.startSuspended = true }
}

// Process is one statically configured execution context: owned stack
// (realized as a parked goroutine, see platform.StackPointer), timeout,
// immutable priority, and the debug/restart bookkeeping spec.md section 3
// calls out.
type Process struct {
	agent    kagent.Agent
	priority int
	tag      procmap.Tag
	name     string

	entry func(*Process)
	sp    platform.StackPointer

	stackSize  int
	guardStack []byte // debug pattern-fill; see StackSlack.

	timeout uint32

	waitingFor    interface{}
	waitingMapRef *procmap.Map

	startSuspended bool
}

const guardPattern = 0xA5

// New constructs a process at priority with the given nominal stack size
// and user entry function. It does not register the process with any
// kernel; kernel.Register does that and wires the kagent.Agent back-
// reference, which is what lets Process's own operations (Sleep, WakeUp,
// ...) reach kernel-private state.
func New(priority, stackSize int, entry func(*Process), opts ...Option) *Process {
	p := &Process{
		priority:  priority,
		entry:     entry,
		sp:        platform.NewStackPointer(),
		stackSize: stackSize,
	}
	for _, o := range opts {
		o(p)
	}
	if p.stackSize > 0 {
		p.guardStack = make([]byte, p.stackSize)
		for i := range p.guardStack {
			p.guardStack[i] = guardPattern
		}
	}
	return p
}

// Bind is called by kernel.Register exactly once: it wires the kagent
// back-reference, computes this process's tag, and spawns its goroutine.
func (p *Process) Bind(agent kagent.Agent, tag procmap.Tag) {
	p.agent = agent
	p.tag = tag
	platform.InitStackFrame(p.sp, func() {
		p.consumeStack()
		p.entry(p)
	})
}

// consumeStack touches the pattern-filled guard slice from the tail so
// StackSlack has something to report; this is a debug approximation, not a
// literal stack high-water mark (Go manages the real goroutine stack).
func (p *Process) consumeStack() {
	if len(p.guardStack) == 0 {
		return
	}
	n := len(p.guardStack) / 4
	for i := len(p.guardStack) - 1; i >= len(p.guardStack)-n; i-- {
		p.guardStack[i] = 0
	}
}

// StackSlack reports the count of still-pattern-filled bytes counted from
// the tail of the nominal guard buffer. See SPEC_FULL.md section 7.1: this
// approximates, rather than replicates, a hardware stack high-water mark.
func (p *Process) StackSlack() int {
	n := 0
	for i := len(p.guardStack) - 1; i >= 0 && p.guardStack[i] == guardPattern; i-- {
		n++
	}
	return n
}

func (p *Process) Priority() int       { return p.priority }
func (p *Process) Tag() procmap.Tag    { return p.tag }
func (p *Process) Name() string        { return p.name }
func (p *Process) StackPointer() platform.StackPointer { return p.sp }
func (p *Process) StartSuspended() bool { return p.startSuspended }

func (p *Process) Timeout() uint32     { return p.timeout }
func (p *Process) SetTimeout(t uint32) { p.timeout = t }

func (p *Process) SetWaitingFor(svc interface{}) {
	if p.agent != nil && p.agent.DebugEnabled() {
		p.waitingFor = svc
	}
}
func (p *Process) ClearWaitingFor()          { p.waitingFor = nil }
func (p *Process) WaitingFor() interface{}   { return p.waitingFor }

func (p *Process) SetWaitingMapRef(m *procmap.Map) { p.waitingMapRef = m }
func (p *Process) ClearWaitingMapRef()             { p.waitingMapRef = nil }

// IsSleeping is timeout > 0: spec.md section 4.3.
func (p *Process) IsSleeping() bool { return p.timeout > 0 }

// IsSuspended is "bit not in ready_map and timeout == 0": spec.md 4.3.
func (p *Process) IsSuspended() bool {
	exit := p.agent.Guard().Enter()
	defer exit()
	return p.agent.ReadyMap()&p.tag == 0 && p.timeout == 0
}

// Sleep is spec.md section 4.3's sleep(timeout), callable only by the
// currently executing process.
func (p *Process) Sleep(timeout uint32) {
	exit := p.agent.Guard().Enter()
	defer exit()
	p.timeout = timeout
	p.agent.ClearReady(p.tag)
	p.agent.InvokeScheduler()
}

// WakeUp is spec.md section 4.3's wake_up(): it only has an effect if the
// target is blocked with a nonzero timeout (sleeping, or waiting with a
// bound); it preserves the "event vs spurious" distinction other waits
// rely on.
func (p *Process) WakeUp() {
	exit := p.agent.Guard().Enter()
	defer exit()
	if p.timeout == 0 {
		return
	}
	p.timeout = 0
	p.agent.SetReady(p.tag)
	p.agent.InvokeScheduler()
}

// ForceWakeUp is spec.md section 4.3's force_wake_up(): unconditional,
// documented as dangerous because it can strand a stale tag in whatever
// waiter map the process was a member of. Per spec.md's open question,
// nanokern behaves defensively: if a waiting-map back-pointer was
// recorded (which it always is, independent of ProcessRestartEnable — see
// DESIGN.md), the tag is removed from it here rather than left stale.
func (p *Process) ForceWakeUp() {
	exit := p.agent.Guard().Enter()
	defer exit()
	p.forceWakeUpLocked()
}

func (p *Process) forceWakeUpLocked() {
	if p.waitingMapRef != nil {
		*p.waitingMapRef &^= p.tag
		p.waitingMapRef = nil
	}
	p.timeout = 0
	p.waitingFor = nil
	p.agent.SetReady(p.tag)
	p.agent.InvokeScheduler()
}

// Start is force_wake_up(), used to launch a process constructed with
// StartSuspended.
func (p *Process) Start() { p.ForceWakeUp() }

// Terminate resets the process to not-ready with a fresh entry frame, for
// use with a subsequent Start(). Only valid when the kernel was
// constructed with ProcessRestartEnable.
func (p *Process) Terminate() error {
	if !p.agent.RestartEnabled() {
		return ErrRestartDisabled
	}
	exit := p.agent.Guard().Enter()
	defer exit()

	if p.waitingMapRef != nil {
		*p.waitingMapRef &^= p.tag
		p.waitingMapRef = nil
	}
	p.timeout = 0
	p.waitingFor = nil
	p.agent.ClearReady(p.tag)

	p.sp = platform.NewStackPointer()
	platform.InitStackFrame(p.sp, func() {
		p.consumeStack()
		p.entry(p)
	})
	return nil
}

func (p *Process) String() string {
	if p.name != "" {
		return p.name
	}
	return "proc"
}
