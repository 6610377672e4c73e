/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package procmap implements the priority bitmap primitives shared by the
// kernel and every IPC service: the ready set and every waiter set are a
// procmap.Map, one bit per priority.
package procmap

import "math/bits"

// Map is a bitmap indexed by priority; bit i represents the process running
// at priority i. It is also used, unmodified, as a waiter set by services.
type Map uint32

// Tag is a Map with exactly one bit set, at a single process's priority.
type Tag = Map

// MaxPriorities is the widest process table procmap can address. Raising it
// requires widening Map past uint32, which nanokern does not do: spec.md
// caps the kernel at 32 total priorities.
const MaxPriorities = 32

// Order selects which end of the bitmap is the highest priority.
type Order int

const (
	// LSBFirst: priority 0 is bit 0, and priority 0 is highest.
	LSBFirst Order = 0
	// MSBFirst: priority 0 is bit (n-1), and priority 0 is still highest,
	// but the bit position is reversed. Only the bitmap orientation
	// changes; priority semantics do not.
	MSBFirst Order = 1
)

// PrioTag returns the tag for priority p under the given order and process
// count n.
func PrioTag(order Order, n, p int) Tag {
	if order == MSBFirst {
		return Tag(1) << uint((n-1)-p)
	}
	return Tag(1) << uint(p)
}

// HighestPriority returns the priority of the highest-priority set bit in m.
// It is undefined (returns -1) if m == 0; callers must guarantee a non-empty
// map, which the kernel does by keeping the idle process always ready.
func HighestPriority(order Order, n int, m Map) int {
	if m == 0 {
		return -1
	}
	if order == MSBFirst {
		// The highest priority is the lowest index, which under MSB-first
		// order lives in the most-significant of the n bits in use, i.e.
		// the position of the leading set bit measured from bit (n-1).
		lead := bits.LeadingZeros32(uint32(m)) - (32 - n)
		if lead < 0 {
			lead = 0
		}
		return lead
	}
	return bits.TrailingZeros32(uint32(m))
}

// HighestPrioTag returns the tag of the highest-priority set bit in m.
func HighestPrioTag(order Order, n int, m Map) Tag {
	if order == LSBFirst {
		// isolate lowest set bit; unsigned negation wraps, giving -m in
		// two's complement the same as any signed type.
		return m & (-m)
	}
	p := HighestPriority(order, n, m)
	if p < 0 {
		return 0
	}
	return PrioTag(order, n, p)
}
