/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package config holds the build-time configuration surface nanokern reads
// (spec.md section 6). Real embedded ports gate this at compile time with
// preprocessor macros; nanokern gates it with a struct populated at startup,
// optionally overridden from the environment the same way the ingest
// pipeline this project is grounded on loads its secrets and targets.
package config

import (
	"errors"

	"github.com/nanokern/nanokern/procmap"
)

var (
	// ErrInvalidProcessCount is returned when ProcessCount is out of the
	// [2,32] range spec.md section 6 requires (idle plus at least one user
	// process, capped by the 32-bit ProcessMap).
	ErrInvalidProcessCount = errors.New("config: process count must be in [2,32]")
	// ErrInvalidScheme is returned for an unrecognized ContextSwitchScheme.
	ErrInvalidScheme = errors.New("config: unknown context switch scheme")
)

// Scheme selects the control-transfer mechanism spec.md section 4.4
// describes: direct (inline) or deferred (pended software trap).
type Scheme int

const (
	SchemeDirect   Scheme = 0
	SchemeDeferred Scheme = 1
)

// KernelConfig mirrors spec.md section 6's configuration surface.
type KernelConfig struct {
	// ProcessCount is 2..32, including the mandatory idle process.
	ProcessCount int
	// PriorityOrder selects bitmap orientation; priority 0 is always
	// highest regardless of orientation.
	PriorityOrder procmap.Order

	// SystimerNestIntsEnable permits nested interrupts across the tick ISR.
	SystimerNestIntsEnable bool
	// SystemTicksEnable maintains the kernel's tick counter.
	SystemTicksEnable bool
	// SystimerHookEnable invokes an optional user hook from the tick ISR.
	SystimerHookEnable bool
	// IdleHookEnable invokes an optional user hook from the idle loop.
	IdleHookEnable bool
	// ContextSwitchUserHookEnable invokes an optional hook from sched().
	ContextSwitchUserHookEnable bool

	// ContextSwitchScheme selects direct or deferred switching.
	ContextSwitchScheme Scheme

	// IdleProcessStackSize is the nominal stack size, in bytes, handed to
	// the mandatory idle process's construction.
	IdleProcessStackSize int

	// DebugEnable turns on waiting_for tracking and the kernel's
	// process-registration log line. Stack pattern fill, StackSlack and
	// process names are always available and do not depend on it.
	DebugEnable bool
	// ProcessRestartEnable turns on Terminate/Start restart semantics.
	ProcessRestartEnable bool
}

// Default returns the configuration nanokern's tests and demo use: 8
// priorities, LSB-first order, direct scheme, debug and restart both on.
func Default() KernelConfig {
	return KernelConfig{
		ProcessCount:                8,
		PriorityOrder:               procmap.LSBFirst,
		SystimerNestIntsEnable:      false,
		SystemTicksEnable:           true,
		SystimerHookEnable:          false,
		IdleHookEnable:              false,
		ContextSwitchUserHookEnable: false,
		ContextSwitchScheme:         SchemeDirect,
		IdleProcessStackSize:        2048,
		DebugEnable:                 true,
		ProcessRestartEnable:        true,
	}
}

// Validate checks the structural invariants Load and New both rely on.
func (c KernelConfig) Validate() error {
	if c.ProcessCount < 2 || c.ProcessCount > procmap.MaxPriorities {
		return ErrInvalidProcessCount
	}
	if c.ContextSwitchScheme != SchemeDirect && c.ContextSwitchScheme != SchemeDeferred {
		return ErrInvalidScheme
	}
	return nil
}

// IdlePriority is the lowest priority, always reserved for the idle process.
func (c KernelConfig) IdlePriority() int {
	return c.ProcessCount - 1
}
