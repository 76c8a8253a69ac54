// Package cli implements the lucky subcommands. Each function maps one CLI
// invocation onto the daemon and returns an error the main package turns
// into an exit status, which Juju reads as the hook outcome.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/katharostech/lucky/internal/charm"
	"github.com/katharostech/lucky/internal/client"
	"github.com/katharostech/lucky/internal/config"
	"github.com/katharostech/lucky/internal/daemon"
	"github.com/katharostech/lucky/internal/hook"
	"github.com/katharostech/lucky/internal/juju"
)

// ErrStartup means the daemon process could not be spawned or never became
// ready within the start timeout.
var ErrStartup = errors.New("daemon failed to start")

// startPollInterval is how often DaemonStart re-probes the socket while
// waiting for readiness.
const startPollInterval = 100 * time.Millisecond

// DaemonStart ensures a daemon is running for this unit. With
// ignoreAlreadyRunning a live daemon is a successful no-op; without it, a
// live daemon is an error. Otherwise the daemon is spawned detached and
// DaemonStart blocks until it answers on the socket or the start timeout
// expires.
func DaemonStart(ctx context.Context, logger zerolog.Logger, cfg *config.Config, ignoreAlreadyRunning bool) error {
	c := client.New(cfg.SocketPath())

	if err := c.Ping(ctx); err == nil {
		if ignoreAlreadyRunning {
			logger.Debug().Str("socket", cfg.SocketPath()).Msg("daemon already running")
			return nil
		}
		return fmt.Errorf("%w on %s", daemon.ErrAlreadyRunning, cfg.SocketPath())
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("%w: resolve executable: %v", ErrStartup, err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("%w: create data dir: %v", ErrStartup, err)
	}

	// The detached daemon logs to a per-unit file; the CLI's stdio belongs
	// to the hook script and must stay clean.
	logPath := filepath.Join(cfg.DataDir, cfg.UnitID()+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("%w: open daemon log: %v", ErrStartup, err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, "daemon", "run")
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	// "off" silences only this CLI invocation; the daemon keeps logging.
	env := os.Environ()
	if cfg.LogLevel == "off" {
		env = append(env, "LUCKY_LOG_LEVEL=info")
	}
	cmd.Env = env
	// New session: the daemon must outlive the hook script and its tty.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: spawn: %v", ErrStartup, err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("%w: detach: %v", ErrStartup, err)
	}

	logger.Info().
		Str("socket", cfg.SocketPath()).
		Msg("daemon spawned, waiting for readiness")

	deadline := time.Now().Add(cfg.StartTimeout)
	for {
		if err := c.Ping(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: not ready after %s (see %s)", ErrStartup, cfg.StartTimeout, logPath)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrStartup, ctx.Err())
		case <-time.After(startPollInterval):
		}
	}
}

// DaemonRun runs the daemon in the foreground: loads the charm's hook table,
// binds the unit socket, and serves until stopped.
func DaemonRun(ctx context.Context, logger zerolog.Logger, cfg *config.Config) error {
	if cfg.CharmDir == "" {
		return errors.New("no charm dir: set LUCKY_CHARM_DIR or JUJU_CHARM_DIR")
	}

	md, err := charm.LoadMetadata(cfg.CharmDir)
	if err != nil {
		return err
	}

	registry := hook.NewRegistry(md)
	executor := hook.NewExecutor(logger, cfg.CharmDir, cfg.UnitName, cfg.HookTimeout)
	tools := juju.NewTools(logger)

	d := daemon.New(logger, registry, executor, tools)
	srv := daemon.NewServer(logger, d)

	l, err := daemon.Listen(logger, cfg.DataDir, cfg.SocketPath(), cfg.PIDPath())
	if err != nil {
		return err
	}

	logger.Info().
		Str("charm", md.Name).
		Strs("hooks", registry.Names()).
		Msg("daemon starting")

	return srv.Run(ctx, l)
}

// DaemonStop asks the daemon to shut down and waits until the socket stops
// answering.
func DaemonStop(ctx context.Context, logger zerolog.Logger, cfg *config.Config) error {
	c := client.New(cfg.SocketPath())

	if err := c.Stop(ctx); err != nil {
		return err
	}

	deadline := time.Now().Add(cfg.StartTimeout)
	for {
		if err := c.Ping(ctx); err != nil {
			logger.Info().Msg("daemon stopped")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon did not stop within %s", cfg.StartTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(startPollInterval):
		}
	}
}

// TriggerHook forwards a hook trigger to the daemon and prints the hook's
// output. The error reflects the hook's outcome and becomes this process's
// exit status.
func TriggerHook(ctx context.Context, logger zerolog.Logger, cfg *config.Config, hookName string) error {
	if hookName == "" {
		return errors.New("hook name must not be empty")
	}

	c := client.New(cfg.SocketPath())

	result, err := c.TriggerHook(ctx, hookName)
	if err != nil {
		var execErr *hook.ExecutionError
		if errors.As(err, &execErr) && execErr.Output != "" {
			fmt.Fprint(os.Stderr, execErr.Output)
		}
		return err
	}

	if result.Output != "" {
		fmt.Print(result.Output)
	}

	logger.Debug().
		Str("hook", hookName).
		Str("execution_id", result.ExecutionID).
		Int64("duration_ms", result.DurationMS).
		Msg("hook completed")

	return nil
}

// SetStatus reports a charm script's status to the daemon.
func SetStatus(ctx context.Context, cfg *config.Config, scriptID, stateName, message string) error {
	state, err := hook.ParseState(stateName)
	if err != nil {
		return err
	}

	c := client.New(cfg.SocketPath())
	return c.SetScriptStatus(ctx, scriptID, hook.Status{State: state, Message: message})
}

// Status prints the daemon's consolidated unit status.
func Status(ctx context.Context, cfg *config.Config) error {
	c := client.New(cfg.SocketPath())

	status, err := c.UnitStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Println(status.String())
	return nil
}

// HooksInstall renders the bootstrap hook scripts for every hook declared in
// the charm's lucky.yaml.
func HooksInstall(logger zerolog.Logger, cfg *config.Config) error {
	if cfg.CharmDir == "" {
		return errors.New("no charm dir: set LUCKY_CHARM_DIR or JUJU_CHARM_DIR")
	}

	md, err := charm.LoadMetadata(cfg.CharmDir)
	if err != nil {
		return err
	}

	w := charm.NewHookScriptWriter(logger, cfg.CharmDir)
	return w.Install(md)
}
