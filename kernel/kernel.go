/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package kernel is the process-wide singleton of spec.md section 3: ready
// map, process table, ISR nesting, tick counter, and both scheduler
// schemes of section 4.4. It is the only package that implements
// kagent.Agent.
package kernel

import (
	"errors"
	"fmt"

	"github.com/nanokern/nanokern/config"
	"github.com/nanokern/nanokern/critsec"
	"github.com/nanokern/nanokern/klog"
	"github.com/nanokern/nanokern/platform"
	"github.com/nanokern/nanokern/process"
	"github.com/nanokern/nanokern/procmap"
)

var (
	ErrPriorityRange     = errors.New("kernel: priority out of range")
	ErrPrioritySlotTaken = errors.New("kernel: priority already registered")
	ErrIdleMissing       = errors.New("kernel: idle process (lowest priority) not registered")
	ErrAlreadyRunning    = errors.New("kernel: Run called more than once")
)

// ContextSwitchUserHook, SystimerHook and IdleHook are the optional
// callbacks spec.md section 6 lists; nil is a valid, no-op hook.
type ContextSwitchUserHook func()
type SystimerHook func()
type IdleHook func()

// Kernel is the singleton described by spec.md section 3. Construct
// exactly one per program with New.
type Kernel struct {
	cfg config.KernelConfig
	log *klog.Logger

	guard critsec.Guard

	readyMap    procmap.Map
	curPriority int
	// schedPriority and trapPending are the deferred scheme's pending-switch
	// state (spec.md section 4.4). Under the direct scheme only
	// InvokeSchedulerISR writes them and nothing reads them.
	schedPriority int
	trapPending   bool

	procs []*process.Process

	isrNest   int
	tickCount uint64
	tickLock  bool

	running bool

	ctxSwitchHook ContextSwitchUserHook
	systimerHook  SystimerHook
	idleHook      IdleHook
}

// New constructs a Kernel from cfg. It does not register any processes;
// call Register for each of cfg.ProcessCount priorities, including the
// mandatory idle process at the lowest priority, before calling Run.
func New(cfg config.KernelConfig, log *klog.Logger) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = klog.Discard()
	}
	return &Kernel{
		cfg:   cfg,
		log:   log,
		procs: make([]*process.Process, cfg.ProcessCount),
	}, nil
}

// SetContextSwitchUserHook installs the optional hook sched() calls just
// before a context switch under either scheme, gated by
// cfg.ContextSwitchUserHookEnable.
func (k *Kernel) SetContextSwitchUserHook(h ContextSwitchUserHook) { k.ctxSwitchHook = h }

// SetSystimerHook installs the optional hook SystemTick calls, gated by
// cfg.SystimerHookEnable.
func (k *Kernel) SetSystimerHook(h SystimerHook) { k.systimerHook = h }

// SetIdleHook installs the optional hook the idle process's entry loop
// calls, gated by cfg.IdleHookEnable. NewIdleProcess wires this
// automatically.
func (k *Kernel) SetIdleHook(h IdleHook) { k.idleHook = h }

// Register binds p into the process table at p.Priority() (spec.md
// invariant I1: every registered process occupies process_table[priority]
// exactly once) and spawns its goroutine. The lowest priority
// (cfg.IdlePriority()) must be registered with a process built by
// NewIdleProcess.
func (k *Kernel) Register(p *process.Process) error {
	exit := k.guard.Enter()
	defer exit()

	pr := p.Priority()
	if pr < 0 || pr >= k.cfg.ProcessCount {
		return ErrPriorityRange
	}
	if k.procs[pr] != nil {
		return ErrPrioritySlotTaken
	}
	tag := procmap.PrioTag(k.cfg.PriorityOrder, k.cfg.ProcessCount, pr)
	p.Bind(k, tag)
	k.procs[pr] = p

	if !p.StartSuspended() {
		k.readyMap |= tag
	}
	if k.cfg.DebugEnable {
		k.log.Debug("process registered", klog.Field("priority", pr), klog.Field("name", p.Name()))
	}
	return nil
}

// Run is spec.md section 4.7's run(): it hands control to the stack pointer
// of the highest-priority ready process (priority 0 unless that process was
// built with StartSuspended) and, on success, never returns to the caller.
// Every priority in [0, cfg.ProcessCount) must be registered first,
// including the mandatory idle process.
func (k *Kernel) Run() error {
	exit := k.guard.Enter()
	if k.running {
		exit()
		return ErrAlreadyRunning
	}
	for i, p := range k.procs {
		if p == nil {
			exit()
			return fmt.Errorf("%w: priority %d", ErrPriorityRange, i)
		}
	}
	if k.procs[k.cfg.IdlePriority()] == nil {
		exit()
		return ErrIdleMissing
	}
	k.running = true
	k.curPriority = procmap.HighestPriority(k.cfg.PriorityOrder, k.cfg.ProcessCount, k.readyMap)
	first := k.procs[k.curPriority]
	exit()

	platform.StartFirst(first.StackPointer())
	return nil // unreachable: StartFirst never returns
}

// LockSystemTimer pauses tick_count accumulation (spec.md section 6's
// lock_system_timer()); it does not pause per-process timeout decrement,
// which must keep running for sleeping processes to ever wake.
func (k *Kernel) LockSystemTimer() {
	exit := k.guard.Enter()
	defer exit()
	k.tickLock = true
}

// UnlockSystemTimer resumes tick_count accumulation.
func (k *Kernel) UnlockSystemTimer() {
	exit := k.guard.Enter()
	defer exit()
	k.tickLock = false
}

// TickCount returns the current tick counter (0 always if
// cfg.SystemTicksEnable is false).
func (k *Kernel) TickCount() uint64 {
	exit := k.guard.Enter()
	defer exit()
	return k.tickCount
}

// Proc returns the process registered at priority, if any.
func (k *Kernel) Proc(priority int) (*process.Process, bool) {
	exit := k.guard.Enter()
	defer exit()
	if priority < 0 || priority >= len(k.procs) || k.procs[priority] == nil {
		return nil, false
	}
	return k.procs[priority], true
}
