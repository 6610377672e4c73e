/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package kernel

import (
	"github.com/nanokern/nanokern/platform"
	"github.com/nanokern/nanokern/process"
)

// NewIdleProcess builds the mandatory lowest-priority process spec.md
// section 4.3 requires: it never sleeps or suspends, so the ready map
// always has at least one bit set and the scheduler always has somewhere
// to go. It loops calling the kernel's idle hook, if one is installed and
// enabled, and platform.DummyInstr otherwise — then calls InvokeScheduler
// itself on every pass. That last call is load-bearing, not cosmetic: idle
// is the one process guaranteed to never make a blocking kernel call, so
// it is the only process that must poll for ISR-pended switches itself
// rather than discovering them at its own next suspend point (see
// InvokeSchedulerISR's doc comment in agent.go).
func NewIdleProcess(k *Kernel, opts ...process.Option) *process.Process {
	opts = append([]process.Option{process.WithName("idle")}, opts...)
	return process.New(k.cfg.IdlePriority(), k.cfg.IdleProcessStackSize, func(p *process.Process) {
		for {
			if k.cfg.IdleHookEnable && k.idleHook != nil {
				k.idleHook()
			} else {
				platform.DummyInstr()
			}
			exit := k.guard.Enter()
			k.InvokeScheduler()
			exit()
		}
	}, opts...)
}
