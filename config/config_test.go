package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanokern/nanokern/procmap"
)

func TestDefaultValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateProcessCount(t *testing.T) {
	c := Default()
	c.ProcessCount = 1
	assert.ErrorIs(t, c.Validate(), ErrInvalidProcessCount)
	c.ProcessCount = 33
	assert.ErrorIs(t, c.Validate(), ErrInvalidProcessCount)
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("NANOKERN_PROCESS_COUNT", "4")
	defer os.Unsetenv("NANOKERN_PROCESS_COUNT")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, c.ProcessCount)
}

func TestLoadEnvFileIndirection(t *testing.T) {
	f, err := os.CreateTemp("", "nanokern-cfg-*")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	_, err = f.WriteString("16\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	os.Setenv("NANOKERN_PROCESS_COUNT_FILE", f.Name())
	defer os.Unsetenv("NANOKERN_PROCESS_COUNT_FILE")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 16, c.ProcessCount)
}

func TestIdlePriority(t *testing.T) {
	c := Default()
	assert.Equal(t, c.ProcessCount-1, c.IdlePriority())
}

func TestLoadEnvOverridesSchemeAndOrder(t *testing.T) {
	os.Setenv("NANOKERN_CONTEXT_SWITCH_SCHEME", "deferred")
	defer os.Unsetenv("NANOKERN_CONTEXT_SWITCH_SCHEME")
	os.Setenv("NANOKERN_PRIORITY_ORDER", "msb")
	defer os.Unsetenv("NANOKERN_PRIORITY_ORDER")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SchemeDeferred, c.ContextSwitchScheme)
	assert.Equal(t, procmap.MSBFirst, c.PriorityOrder)
}

func TestLoadEnvRejectsUnknownScheme(t *testing.T) {
	os.Setenv("NANOKERN_CONTEXT_SWITCH_SCHEME", "bogus")
	defer os.Unsetenv("NANOKERN_CONTEXT_SWITCH_SCHEME")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadEnvOverridesRemainingBoolFields(t *testing.T) {
	for _, name := range []string{
		"NANOKERN_SYSTIMER_NEST_INTS_ENABLE",
		"NANOKERN_SYSTIMER_HOOK_ENABLE",
		"NANOKERN_IDLE_HOOK_ENABLE",
		"NANOKERN_CONTEXT_SWITCH_USER_HOOK_ENABLE",
	} {
		os.Setenv(name, "true")
	}
	defer func() {
		for _, name := range []string{
			"NANOKERN_SYSTIMER_NEST_INTS_ENABLE",
			"NANOKERN_SYSTIMER_HOOK_ENABLE",
			"NANOKERN_IDLE_HOOK_ENABLE",
			"NANOKERN_CONTEXT_SWITCH_USER_HOOK_ENABLE",
		} {
			os.Unsetenv(name)
		}
	}()

	c, err := Load()
	require.NoError(t, err)
	assert.True(t, c.SystimerNestIntsEnable)
	assert.True(t, c.SystimerHookEnable)
	assert.True(t, c.IdleHookEnable)
	assert.True(t, c.ContextSwitchUserHookEnable)
}
