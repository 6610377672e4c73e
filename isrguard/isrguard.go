/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package isrguard implements spec.md section 4.6's ISR entry/exit guard:
// a scoped object that increments ISR nesting on entry and, only when
// nesting returns to zero, invokes the ISR-side scheduler.
//
// spec.md's second variant — additionally switching the CPU to a dedicated
// interrupt stack — requires hardware or port-specific support that a
// hosted goroutine simulation has no analogue for (there is no separate
// interrupt stack to switch to), so only the base variant is implemented
// here; see DESIGN.md.
package isrguard

import "github.com/nanokern/nanokern/kagent"

// Enter begins an ISR region against agent. Callers use it exactly like
// critsec.Guard:
//
//	defer isrguard.Enter(agent)()
func Enter(agent kagent.Agent) (exit func()) {
	agent.BeginISR()
	return func() { agent.EndISR() }
}
