/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/nanokern/nanokern/procmap"
)

var (
	errNoEnvArg     = errors.New("config: no env arg")
	ErrEmptyEnvFile = errors.New("config: environment override file is empty")
)

// parsePriorityOrder and parseScheme back the NANOKERN_PRIORITY_ORDER and
// NANOKERN_CONTEXT_SWITCH_SCHEME overrides, accepting "lsb"/"msb" and
// "direct"/"deferred"; the latter is the same spelling cmd/nanokernd's
// -scheme flag uses.
func parsePriorityOrder(s string) (procmap.Order, error) {
	switch s {
	case "lsb":
		return procmap.LSBFirst, nil
	case "msb":
		return procmap.MSBFirst, nil
	default:
		return 0, fmt.Errorf("config: invalid NANOKERN_PRIORITY_ORDER %q: want lsb or msb", s)
	}
}

func parseScheme(s string) (Scheme, error) {
	switch s {
	case "direct":
		return SchemeDirect, nil
	case "deferred":
		return SchemeDeferred, nil
	default:
		return 0, fmt.Errorf("config: invalid NANOKERN_CONTEXT_SWITCH_SCHEME %q: want direct or deferred", s)
	}
}

// Load starts from Default() and overlays any NANOKERN_<FIELD> environment
// variables present, following the same <NAME> / <NAME>_FILE indirection the
// teacher's ingest config loader uses for secrets: if NANOKERN_FOO is unset
// but NANOKERN_FOO_FILE names a readable file, the first line of that file
// is used instead.
func Load() (KernelConfig, error) {
	c := Default()

	if err := loadEnvVarInt(&c.ProcessCount, "NANOKERN_PROCESS_COUNT"); err != nil {
		return c, err
	}
	if err := loadEnvVarBool(&c.SystemTicksEnable, "NANOKERN_SYSTEM_TICKS_ENABLE"); err != nil {
		return c, err
	}
	if err := loadEnvVarBool(&c.DebugEnable, "NANOKERN_DEBUG_ENABLE"); err != nil {
		return c, err
	}
	if err := loadEnvVarBool(&c.ProcessRestartEnable, "NANOKERN_PROCESS_RESTART_ENABLE"); err != nil {
		return c, err
	}
	if err := loadEnvVarInt(&c.IdleProcessStackSize, "NANOKERN_IDLE_PROCESS_STACK_SIZE"); err != nil {
		return c, err
	}
	if err := loadEnvVarBool(&c.SystimerNestIntsEnable, "NANOKERN_SYSTIMER_NEST_INTS_ENABLE"); err != nil {
		return c, err
	}
	if err := loadEnvVarBool(&c.SystimerHookEnable, "NANOKERN_SYSTIMER_HOOK_ENABLE"); err != nil {
		return c, err
	}
	if err := loadEnvVarBool(&c.IdleHookEnable, "NANOKERN_IDLE_HOOK_ENABLE"); err != nil {
		return c, err
	}
	if err := loadEnvVarBool(&c.ContextSwitchUserHookEnable, "NANOKERN_CONTEXT_SWITCH_USER_HOOK_ENABLE"); err != nil {
		return c, err
	}
	if err := loadEnvVarFunc(&c.PriorityOrder, "NANOKERN_PRIORITY_ORDER", parsePriorityOrder); err != nil {
		return c, err
	}
	if err := loadEnvVarFunc(&c.ContextSwitchScheme, "NANOKERN_CONTEXT_SWITCH_SCHEME", parseScheme); err != nil {
		return c, err
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func loadEnvFile(nm string) (r string, err error) {
	fin, err := os.Open(nm)
	if err != nil {
		return
	}
	defer fin.Close()
	s := bufio.NewScanner(fin)
	s.Scan()
	if err = s.Err(); err != nil {
		return
	}
	r = s.Text()
	if r == `` {
		err = ErrEmptyEnvFile
	}
	return
}

func loadEnv(nm string) (s string, err error) {
	var ok bool
	if s, ok = os.LookupEnv(nm); ok {
		return
	}
	if fp, ok := os.LookupEnv(nm + `_FILE`); ok {
		return loadEnvFile(fp)
	}
	err = errNoEnvArg
	return
}

func loadEnvVarBool(dst *bool, name string) error {
	s, err := loadEnv(name)
	if err == errNoEnvArg {
		return nil
	} else if err != nil {
		return err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func loadEnvVarInt(dst *int, name string) error {
	s, err := loadEnv(name)
	if err == errNoEnvArg {
		return nil
	} else if err != nil {
		return err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// loadEnvVarFunc handles the NANOKERN_<FIELD> overrides whose value isn't a
// plain bool or int (PriorityOrder, ContextSwitchScheme): parse selects the
// one accepted spelling set for that field.
func loadEnvVarFunc[T any](dst *T, name string, parse func(string) (T, error)) error {
	s, err := loadEnv(name)
	if err == errNoEnvArg {
		return nil
	} else if err != nil {
		return err
	}
	v, err := parse(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
