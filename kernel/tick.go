/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package kernel

// SystemTick is the periodic timer ISR of spec.md section 4.5: it
// decrements every process's nonzero timeout, makes any process whose
// timeout just reached zero ready, advances tick_count (unless
// LockSystemTimer is in effect), and runs the optional systimer hook.
// Scheduling the readied processes is left to the outermost EndISR.
//
// Callers invoke SystemTick already wrapped in an isrguard.Enter/exit
// pair, matching every other ISR service spec.md section 4.8 describes;
// SystemTick itself never calls InvokeSchedulerISR.
func (k *Kernel) SystemTick() {
	exit := k.guard.Enter()
	defer exit()

	for _, p := range k.procs {
		if p == nil || p.Timeout() == 0 {
			continue
		}
		t := p.Timeout() - 1
		p.SetTimeout(t)
		if t == 0 {
			k.SetReady(p.Tag())
		}
	}

	if k.cfg.SystemTicksEnable && !k.tickLock {
		k.tickCount++
	}
	if k.cfg.SystimerHookEnable && k.systimerHook != nil {
		k.systimerHook()
	}
}
