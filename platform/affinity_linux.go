//go:build linux

/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package platform

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// PinSingleCPU pins the calling OS thread to CPU 0 and caps GOMAXPROCS at 1.
// It is best-effort: a host simulation of a single-CPU part cannot make the
// Go scheduler itself single-threaded without this, and the demo command
// calls it so that "single CPU" is not just a critsec guarantee but also
// true of the underlying hardware thread the simulator runs on. Failure is
// silently ignored; the guard's mutual exclusion remains correct either
// way, this is purely pedagogical fidelity for the demo.
func PinSingleCPU() {
	runtime.GOMAXPROCS(1)
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(0)
	_ = unix.SchedSetaffinity(0, &set)
}
