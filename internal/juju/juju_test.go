package juju

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katharostech/lucky/internal/hook"
)

func TestSetStatusNoToolIsNoOp(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	tools := NewTools(zerolog.Nop())
	err := tools.SetStatus(context.Background(), hook.Status{State: hook.StateActive})
	require.NoError(t, err)
}

func TestSetStatusInvokesStatusSet(t *testing.T) {
	binDir := t.TempDir()
	marker := filepath.Join(binDir, "args")
	script := "#!/bin/sh\necho \"$@\" > " + marker + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "status-set"), []byte(script), 0755))
	t.Setenv("PATH", binDir)

	tools := NewTools(zerolog.Nop())
	err := tools.SetStatus(context.Background(), hook.Status{State: hook.StateBlocked, Message: "db unreachable"})
	require.NoError(t, err)

	content, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "blocked db unreachable\n", string(content))
}

func TestLogNoToolIsNoOp(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	tools := NewTools(zerolog.Nop())
	require.NoError(t, tools.Log(context.Background(), "hello"))
}

func TestLogInvokesJujuLog(t *testing.T) {
	binDir := t.TempDir()
	marker := filepath.Join(binDir, "args")
	script := "#!/bin/sh\necho \"$@\" > " + marker + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "juju-log"), []byte(script), 0755))
	t.Setenv("PATH", binDir)

	tools := NewTools(zerolog.Nop())
	require.NoError(t, tools.Log(context.Background(), "hello from charm"))

	content, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "hello from charm\n", string(content))
}
