package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/katharostech/lucky/internal/cli"
	"github.com/katharostech/lucky/internal/config"
	"github.com/katharostech/lucky/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "daemon":
		runDaemonCommand(ctx, logger, cfg, os.Args[2:])

	case "hooks":
		if len(os.Args) < 3 || os.Args[2] != "install" {
			fmt.Fprintln(os.Stderr, "Usage: lucky hooks install")
			os.Exit(1)
		}
		if err := cli.HooksInstall(logger, cfg); err != nil {
			fail(err)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runDaemonCommand(ctx context.Context, logger zerolog.Logger, cfg *config.Config, args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "start":
		fs := flag.NewFlagSet("daemon start", flag.ExitOnError)
		ignore := fs.Bool("ignore-already-running", false, "Succeed if a daemon is already running")
		fs.Parse(args[1:])

		if err := cli.DaemonStart(ctx, logger, cfg, *ignore); err != nil {
			fail(err)
		}

	case "run":
		if err := cli.DaemonRun(ctx, logger, cfg); err != nil {
			fail(err)
		}

	case "stop":
		if err := cli.DaemonStop(ctx, logger, cfg); err != nil {
			fail(err)
		}

	case "trigger-hook":
		fs := flag.NewFlagSet("daemon trigger-hook", flag.ExitOnError)
		fs.Parse(args[1:])

		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: lucky daemon trigger-hook <hook_name>")
			os.Exit(1)
		}

		if err := cli.TriggerHook(ctx, logger, cfg, fs.Arg(0)); err != nil {
			fail(err)
		}

	case "set-status":
		fs := flag.NewFlagSet("daemon set-status", flag.ExitOnError)
		message := fs.String("message", "", "Optional status message")
		fs.Parse(args[1:])

		if fs.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: lucky daemon set-status [-message MSG] <script-id> <state>")
			os.Exit(1)
		}

		if err := cli.SetStatus(ctx, cfg, fs.Arg(0), fs.Arg(1), *message); err != nil {
			fail(err)
		}

	case "status":
		if err := cli.Status(ctx, cfg); err != nil {
			fail(err)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown daemon command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  lucky daemon start [--ignore-already-running]
  lucky daemon run
  lucky daemon stop
  lucky daemon trigger-hook <hook_name>
  lucky daemon set-status [-message MSG] <script-id> <state>
  lucky daemon status
  lucky hooks install

Commands:
  daemon start         Start the unit daemon in the background (idempotent with the flag)
  daemon run           Run the unit daemon in the foreground
  daemon stop          Stop the unit daemon
  daemon trigger-hook  Run the charm logic registered for a lifecycle hook
  daemon set-status    Report a charm script's status (active|waiting|maintenance|blocked)
  daemon status        Print the consolidated unit status
  hooks install        Generate the per-hook bootstrap scripts from lucky.yaml

Environment:
  LUCKY_UNIT_NAME      Juju unit name (falls back to JUJU_UNIT_NAME)
  LUCKY_DATA_DIR       Runtime dir for the unit socket and pid file (default /run/lucky)
  LUCKY_CHARM_DIR      Charm root containing lucky.yaml (falls back to JUJU_CHARM_DIR)
  LUCKY_LOG_LEVEL      Log level; "off" silences this CLI (the daemon still logs)
  LUCKY_HOOK_TIMEOUT   Per-hook execution timeout (default 5m)
  LUCKY_START_TIMEOUT  Daemon readiness timeout for "daemon start" (default 10s)`)
}
