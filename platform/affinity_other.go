//go:build !linux

/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package platform

import "runtime"

// PinSingleCPU caps GOMAXPROCS at 1; true CPU-affinity pinning is
// Linux-only (see affinity_linux.go), so other hosts get the GOMAXPROCS cap
// alone.
func PinSingleCPU() {
	runtime.GOMAXPROCS(1)
}
