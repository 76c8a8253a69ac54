package charm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/rs/zerolog"
)

// The bootstrap script Juju invokes per lifecycle event: make sure the daemon
// is up, then ask it to run this event's hook. The CLI's own logging is
// silenced because the daemon already logs every trigger.
const hookScriptTemplate = `#!/bin/bash
# Auto-generated by lucky for hook {{ .HookName }}
# DO NOT EDIT MANUALLY
set -e

export LUCKY_LOG_LEVEL=off

lucky daemon start --ignore-already-running
lucky daemon trigger-hook {{ .HookName }}
`

var hookScriptTmpl = template.Must(template.New("hookscript").Parse(hookScriptTemplate))

type hookScriptData struct {
	HookName string
}

// HookScriptWriter installs the per-event bootstrap scripts into the charm's
// hooks directory.
type HookScriptWriter struct {
	logger   zerolog.Logger
	charmDir string
}

// NewHookScriptWriter creates a new HookScriptWriter.
func NewHookScriptWriter(logger zerolog.Logger, charmDir string) *HookScriptWriter {
	return &HookScriptWriter{
		logger:   logger.With().Str("component", "hookscript-writer").Logger(),
		charmDir: charmDir,
	}
}

// RenderHookScript renders the bootstrap script for a single hook.
func RenderHookScript(hookName string) (string, error) {
	if !hookNameRegex.MatchString(hookName) {
		return "", fmt.Errorf("invalid hook name %q", hookName)
	}

	var buf bytes.Buffer
	if err := hookScriptTmpl.Execute(&buf, hookScriptData{HookName: hookName}); err != nil {
		return "", fmt.Errorf("render hook script template: %w", err)
	}
	return buf.String(), nil
}

// Install writes one bootstrap script per hook declared in the metadata into
// <charm dir>/hooks, replacing whatever is already there.
func (w *HookScriptWriter) Install(md *Metadata) error {
	hooksDir := filepath.Join(w.charmDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0755); err != nil {
		return fmt.Errorf("create hooks dir: %w", err)
	}

	for _, name := range md.HookNames() {
		script, err := RenderHookScript(name)
		if err != nil {
			return err
		}

		path := filepath.Join(hooksDir, name)
		if err := os.WriteFile(path, []byte(script), 0755); err != nil {
			return fmt.Errorf("write hook script %s: %w", name, err)
		}

		w.logger.Info().
			Str("hook", name).
			Str("path", path).
			Msg("installed hook script")
	}

	return nil
}
