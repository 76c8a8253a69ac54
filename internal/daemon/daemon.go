package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/katharostech/lucky/internal/charm"
	"github.com/katharostech/lucky/internal/hook"
	"github.com/katharostech/lucky/internal/juju"
)

// HookRunner executes the scripts registered for one hook.
type HookRunner interface {
	Run(ctx context.Context, hookName string, scripts []charm.Script) (*hook.Result, error)
}

// Daemon is the long-lived per-unit coordinator. It owns the hook dispatch
// table and the script statuses, and serializes hook executions: two trigger
// requests never interleave, matching Juju's sequential hook model.
type Daemon struct {
	logger   zerolog.Logger
	registry *hook.Registry
	runner   HookRunner
	status   juju.StatusSetter

	// runMu serializes hook executions. Waiters queue here while one
	// execution is active.
	runMu sync.Mutex

	statusMu       sync.RWMutex
	scriptStatuses map[string]hook.Status

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a new Daemon.
func New(logger zerolog.Logger, registry *hook.Registry, runner HookRunner, status juju.StatusSetter) *Daemon {
	return &Daemon{
		logger:         logger.With().Str("component", "daemon").Logger(),
		registry:       registry,
		runner:         runner,
		status:         status,
		scriptStatuses: make(map[string]hook.Status),
		stopCh:         make(chan struct{}),
	}
}

// TriggerHook looks up and runs the logic registered for hookName,
// synchronously, to completion. Unknown hooks fail before anything executes.
func (d *Daemon) TriggerHook(ctx context.Context, hookName string) (*hook.Result, error) {
	scripts, err := d.registry.Lookup(hookName)
	if err != nil {
		d.logger.Warn().Str("hook", hookName).Msg("trigger for unregistered hook")
		hookExecutions.WithLabelValues(hookName, "unknown").Inc()
		return nil, err
	}

	d.logger.Info().Str("hook", hookName).Msg("triggering hook")

	hookQueueDepth.Inc()
	d.runMu.Lock()
	hookQueueDepth.Dec()
	defer d.runMu.Unlock()

	hookInFlight.Set(1)
	defer hookInFlight.Set(0)

	start := time.Now()
	result, err := d.runner.Run(ctx, hookName, scripts)
	hookDuration.WithLabelValues(hookName).Observe(time.Since(start).Seconds())

	if err != nil {
		hookExecutions.WithLabelValues(hookName, "failure").Inc()
		return nil, err
	}

	hookExecutions.WithLabelValues(hookName, "success").Inc()
	return result, nil
}

// SetScriptStatus records a script's status and pushes the consolidated unit
// status to Juju.
func (d *Daemon) SetScriptStatus(ctx context.Context, scriptID string, status hook.Status) error {
	d.logger.Info().
		Str("script", scriptID).
		Str("status", status.String()).
		Msg("setting script status")

	d.statusMu.Lock()
	d.scriptStatuses[scriptID] = status
	consolidated := hook.Consolidate(d.scriptStatuses)
	d.statusMu.Unlock()

	return d.status.SetStatus(ctx, consolidated)
}

// UnitStatus returns the consolidated status over all script statuses.
func (d *Daemon) UnitStatus() hook.Status {
	d.statusMu.RLock()
	defer d.statusMu.RUnlock()
	return hook.Consolidate(d.scriptStatuses)
}

// Hooks returns the registered hook names.
func (d *Daemon) Hooks() []string {
	return d.registry.Names()
}

// RequestStop asks the daemon's server loop to shut down. Safe to call more
// than once.
func (d *Daemon) RequestStop() {
	d.stopOnce.Do(func() {
		d.logger.Info().Msg("stop requested")
		close(d.stopCh)
	})
}

// Done is closed once a stop has been requested.
func (d *Daemon) Done() <-chan struct{} {
	return d.stopCh
}
