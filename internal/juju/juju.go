package juju

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/katharostech/lucky/internal/hook"
)

// StatusSetter pushes a consolidated unit status to Juju.
type StatusSetter interface {
	SetStatus(ctx context.Context, status hook.Status) error
}

// Tools invokes the Juju hook tools (status-set, juju-log) available inside
// a hook context. Outside a hook context the tools are missing from PATH;
// Tools degrades to logging only so the daemon still runs in dev.
type Tools struct {
	logger zerolog.Logger
}

// NewTools creates a new Tools.
func NewTools(logger zerolog.Logger) *Tools {
	return &Tools{
		logger: logger.With().Str("component", "juju-tools").Logger(),
	}
}

// SetStatus runs `status-set <state> <message>`.
func (t *Tools) SetStatus(ctx context.Context, status hook.Status) error {
	t.logger.Info().
		Str("state", status.State.String()).
		Str("message", status.Message).
		Msg("setting juju unit status")

	if _, err := exec.LookPath("status-set"); err != nil {
		t.logger.Warn().Msg("status-set not on PATH, skipping juju status update")
		return nil
	}

	args := []string{status.State.String()}
	if status.Message != "" {
		args = append(args, status.Message)
	}

	cmd := exec.CommandContext(ctx, "status-set", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("status-set %v: %s: %w", args, string(output), err)
	}
	return nil
}

// Log runs `juju-log <message>` so charm messages land in the Juju unit log.
func (t *Tools) Log(ctx context.Context, message string) error {
	if _, err := exec.LookPath("juju-log"); err != nil {
		t.logger.Debug().Str("message", message).Msg("juju-log not on PATH")
		return nil
	}

	cmd := exec.CommandContext(ctx, "juju-log", message)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("juju-log: %s: %w", string(output), err)
	}
	return nil
}
