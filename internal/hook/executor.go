package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/katharostech/lucky/internal/charm"
)

// outputTailLimit bounds how much script output an ExecutionError carries.
const outputTailLimit = 4096

// ExecutionError wraps a failed hook script with enough context for the CLI
// to surface a useful message.
type ExecutionError struct {
	Hook   string
	Script string
	Output string
	Err    error
}

func (e *ExecutionError) Error() string {
	// Errors reconstructed from a daemon response carry the full message in
	// Err and no script context.
	if e.Hook == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("hook %q: script %q failed: %v", e.Hook, e.Script, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Result is the outcome of one hook execution.
type Result struct {
	ExecutionID string `json:"execution_id"`
	Hook        string `json:"hook"`
	Output      string `json:"output,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

// Executor runs hook scripts inside the charm dir.
type Executor struct {
	logger   zerolog.Logger
	charmDir string
	unitName string
	timeout  time.Duration
}

// NewExecutor creates a new Executor. A zero timeout disables the per-hook
// deadline.
func NewExecutor(logger zerolog.Logger, charmDir, unitName string, timeout time.Duration) *Executor {
	return &Executor{
		logger:   logger.With().Str("component", "hook-executor").Logger(),
		charmDir: charmDir,
		unitName: unitName,
		timeout:  timeout,
	}
}

// Run executes a hook's scripts sequentially, stopping at the first failure.
// The caller is responsible for serialization; Run itself takes no locks.
func (e *Executor) Run(ctx context.Context, hookName string, scripts []charm.Script) (*Result, error) {
	executionID := uuid.NewString()
	start := time.Now()

	logger := e.logger.With().
		Str("hook", hookName).
		Str("execution_id", executionID).
		Logger()
	logger.Info().Int("scripts", len(scripts)).Msg("running hook")

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var output strings.Builder
	for _, script := range scripts {
		out, err := e.runScript(ctx, logger, hookName, executionID, script)
		output.WriteString(out)
		if err != nil {
			logger.Error().Err(err).Str("script", script.Path).Msg("hook script failed")
			return nil, &ExecutionError{
				Hook:   hookName,
				Script: script.Path,
				Output: tail(out),
				Err:    err,
			}
		}
	}

	duration := time.Since(start)
	logger.Info().Dur("duration", duration).Msg("hook completed")

	return &Result{
		ExecutionID: executionID,
		Hook:        hookName,
		Output:      output.String(),
		DurationMS:  duration.Milliseconds(),
	}, nil
}

func (e *Executor) runScript(ctx context.Context, logger zerolog.Logger, hookName, executionID string, script charm.Script) (string, error) {
	path := script.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.charmDir, path)
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Dir = e.charmDir
	cmd.Env = e.scriptEnv(hookName, executionID, script.Environment)

	logger.Debug().Str("script", script.Path).Msg("running hook script")

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return string(out), fmt.Errorf("hook timed out: %w", ctxErr)
		}
		return string(out), err
	}
	return string(out), nil
}

// scriptEnv builds the script environment: the daemon's own environment, the
// lucky context vars, then per-script overrides from lucky.yaml.
func (e *Executor) scriptEnv(hookName, executionID string, extra map[string]string) []string {
	env := os.Environ()
	env = append(env,
		"LUCKY_HOOK="+hookName,
		"LUCKY_EXECUTION_ID="+executionID,
		"LUCKY_UNIT_NAME="+e.unitName,
		"LUCKY_CHARM_DIR="+e.charmDir,
	)

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}

	return env
}

func tail(s string) string {
	if len(s) <= outputTailLimit {
		return s
	}
	return s[len(s)-outputTailLimit:]
}
